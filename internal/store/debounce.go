package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// sessionDebouncer buffers mutations for one session and flushes them as a
// single batch after the configured debounce window elapses, per rule 3.
// Reads issued by the same session must observe buffered-but-unflushed
// writes (read-your-writes), so FetchInteractionForSession consults pending writes
// before querying the store.
type sessionDebouncer struct {
	store     *Store
	sessionID string

	mu      sync.Mutex
	pending []Mutation
	overlay map[string]Mutation // keyed by mutation target id (params["subject"])
	timer   *time.Timer
}

func newSessionDebouncer(s *Store, sessionID string) *sessionDebouncer {
	return &sessionDebouncer{
		store:     s,
		sessionID: sessionID,
		overlay:   make(map[string]Mutation),
	}
}

// enqueue buffers a mutation and (re)arms the debounce timer.
func (d *sessionDebouncer) enqueue(m Mutation) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.pending = append(d.pending, m)
	if id, ok := m.Params["subject"]; ok {
		d.overlay[id] = m
	}

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.store.opts.DebounceWindow, func() {
		d.flush(context.Background())
	})
}

// pendingFor returns the last buffered mutation targeting id, for the
// read-your-writes overlay consulted by FetchInteractionForSession.
func (d *sessionDebouncer) pendingFor(id string) (Mutation, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	m, ok := d.overlay[id]
	return m, ok
}

// flush applies every buffered mutation as one batch and clears the buffer,
// regardless of whether the debounce timer actually fired (used for forced
// flush on Stop or on a degraded→healthy transition). While the store is
// degraded the batch goes back into the buffer for the next flush.
func (d *sessionDebouncer) flush(ctx context.Context) {
	d.mu.Lock()
	batch := d.pending
	d.pending = nil
	d.overlay = make(map[string]Mutation)
	d.mu.Unlock()

	if len(batch) == 0 {
		return
	}
	if err := d.store.Batch(ctx, batch); err != nil {
		if errors.Is(err, ErrDegraded) {
			d.mu.Lock()
			d.pending = append(batch, d.pending...)
			d.mu.Unlock()
			return
		}
		d.store.logger.Error("store: debounced flush failed",
			zap.String("session_id", d.sessionID), zap.Error(err))
	}
}

// EnqueueWrite buffers a mutation on behalf of sessionID, debounced per
// rule 3. The mutation is applied to the Persistent Store no sooner than
// the configured debounce window after the last write in the same window.
func (s *Store) EnqueueWrite(sessionID string, m Mutation) {
	s.mu.Lock()
	d, ok := s.debouncers[sessionID]
	if !ok {
		d = newSessionDebouncer(s, sessionID)
		s.debouncers[sessionID] = d
	}
	s.mu.Unlock()

	d.enqueue(m)

	if mutated, ok := m.Params["subject"]; ok {
		s.load.invalidate(mutated)
	}
}

// FlushSession forces an immediate flush of sessionID's buffered writes,
// used when a session ends or when the caller needs a durability
// checkpoint before replying (e.g. enhancement records before reply).
func (s *Store) FlushSession(ctx context.Context, sessionID string) {
	s.mu.Lock()
	d, ok := s.debouncers[sessionID]
	s.mu.Unlock()
	if !ok {
		return
	}
	d.flush(ctx)
}

func (s *Store) flushAllSessions(ctx context.Context) {
	s.mu.Lock()
	debouncers := make([]*sessionDebouncer, 0, len(s.debouncers))
	for _, d := range s.debouncers {
		debouncers = append(debouncers, d)
	}
	s.mu.Unlock()

	for _, d := range debouncers {
		d.flush(ctx)
	}
}

// pendingOverlay returns the most recent buffered mutation for id within
// sessionID's debounce window, if any, supporting read-your-writes.
func (s *Store) pendingOverlay(sessionID, id string) (Mutation, bool) {
	s.mu.Lock()
	d, ok := s.debouncers[sessionID]
	s.mu.Unlock()
	if !ok {
		return Mutation{}, false
	}
	return d.pendingFor(id)
}
