package vecindex

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/philippgille/chromem-go"
	"go.uber.org/zap"
)

// ErrNotFound is returned by Remove when the ID is not present.
var ErrNotFound = errors.New("vecindex: id not found")

// Match is one nearest-neighbour result.
type Match struct {
	ID    string
	Score float32
}

type bufferedWrite struct {
	id        string
	vector    []float32
	namespace string
	remove    bool
}

// Index is an in-memory ANN cache keyed by stable IDs, namespaced by kind
// (e.g. "interaction", "concept") so searches can be scoped without scanning
// everything.
type Index struct {
	db     *chromem.DB
	logger *zap.Logger

	mu          sync.Mutex
	collections map[string]*chromem.Collection

	flushMu       sync.Mutex
	buffer        []bufferedWrite
	debounce      time.Duration
	flushTimer    *time.Timer
	flushInFlight bool
}

// Options configures an Index.
type Options struct {
	FlushDebounce time.Duration
}

// DefaultOptions returns the spec's default 500ms debounce window.
func DefaultOptions() Options {
	return Options{FlushDebounce: 500 * time.Millisecond}
}

// refuseEmbeddingFunc returns an error if chromem-go ever tries to compute an
// embedding itself: every Document this package adds always carries a
// precomputed vector, so the collection's own embedding function must never
// be invoked.
func refuseEmbeddingFunc(context.Context, string) ([]float32, error) {
	return nil, fmt.Errorf("vecindex: collection embedding function invoked unexpectedly; callers must supply precomputed vectors")
}

// New constructs a purely in-memory Index (no on-disk persistence — the
// Persistent Store owns durable state).
func New(logger *zap.Logger, opts Options) *Index {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.FlushDebounce <= 0 {
		opts.FlushDebounce = DefaultOptions().FlushDebounce
	}
	return &Index{
		db:          chromem.NewDB(),
		logger:      logger,
		collections: make(map[string]*chromem.Collection),
		debounce:    opts.FlushDebounce,
	}
}

func (idx *Index) collectionFor(namespace string) (*chromem.Collection, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if c, ok := idx.collections[namespace]; ok {
		return c, nil
	}
	c, err := idx.db.CreateCollection(namespace, nil, refuseEmbeddingFunc)
	if err != nil {
		return nil, fmt.Errorf("vecindex: create collection %q: %w", namespace, err)
	}
	idx.collections[namespace] = c
	return c, nil
}

// Add buffers a (namespace, id, vector) write, flushing after the debounce
// window elapses since the last write.
func (idx *Index) Add(namespace, id string, vector []float32) {
	idx.enqueue(bufferedWrite{id: id, vector: vector, namespace: namespace})
}

// Remove buffers a deletion.
func (idx *Index) Remove(namespace, id string) {
	idx.enqueue(bufferedWrite{id: id, namespace: namespace, remove: true})
}

func (idx *Index) enqueue(w bufferedWrite) {
	idx.flushMu.Lock()
	defer idx.flushMu.Unlock()

	idx.buffer = append(idx.buffer, w)
	if idx.flushTimer != nil {
		idx.flushTimer.Stop()
	}
	idx.flushTimer = time.AfterFunc(idx.debounce, idx.flushNow)
}

// Flush forces any buffered writes to apply immediately, bypassing the
// debounce window. Intended for tests and graceful shutdown.
func (idx *Index) Flush(ctx context.Context) error {
	idx.flushMu.Lock()
	if idx.flushTimer != nil {
		idx.flushTimer.Stop()
		idx.flushTimer = nil
	}
	pending := idx.buffer
	idx.buffer = nil
	idx.flushMu.Unlock()

	return idx.apply(ctx, pending)
}

func (idx *Index) flushNow() {
	idx.flushMu.Lock()
	pending := idx.buffer
	idx.buffer = nil
	idx.flushTimer = nil
	idx.flushMu.Unlock()

	if err := idx.apply(context.Background(), pending); err != nil {
		idx.logger.Error("vecindex: flush failed", zap.Error(err))
	}
}

func (idx *Index) apply(ctx context.Context, writes []bufferedWrite) error {
	byNamespace := make(map[string][]bufferedWrite)
	for _, w := range writes {
		byNamespace[w.namespace] = append(byNamespace[w.namespace], w)
	}

	for ns, ws := range byNamespace {
		coll, err := idx.collectionFor(ns)
		if err != nil {
			return err
		}
		var docs []chromem.Document
		for _, w := range ws {
			if w.remove {
				_ = coll.Delete(ctx, nil, nil, w.id)
				continue
			}
			docs = append(docs, chromem.Document{ID: w.id, Embedding: w.vector})
		}
		if len(docs) > 0 {
			if err := coll.AddDocuments(ctx, docs, 1); err != nil {
				return fmt.Errorf("vecindex: add documents to %q: %w", ns, err)
			}
		}
	}
	return nil
}

// Search returns up to k nearest neighbours of vector within namespace.
// Callers should Flush before Search if they need to see just-added writes
// immediately (read-your-writes is not implied across the debounce window).
func (idx *Index) Search(ctx context.Context, namespace string, vector []float32, k int) ([]Match, error) {
	coll, err := idx.collectionFor(namespace)
	if err != nil {
		return nil, err
	}
	count := coll.Count()
	if count == 0 {
		return nil, nil
	}
	if k > count {
		k = count
	}
	results, err := coll.QueryEmbedding(ctx, vector, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("vecindex: query %q: %w", namespace, err)
	}
	matches := make([]Match, len(results))
	for i, r := range results {
		matches[i] = Match{ID: r.ID, Score: r.Similarity}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	return matches, nil
}

// RebuildFrom repopulates namespace from a slice of (id, vector) pairs
// fetched from the Persistent Store — used on cold start when the engine
// chooses to warm up rather than lazily populate on first query.
func (idx *Index) RebuildFrom(ctx context.Context, namespace string, pairs map[string][]float32) error {
	writes := make([]bufferedWrite, 0, len(pairs))
	for id, vec := range pairs {
		writes = append(writes, bufferedWrite{id: id, vector: vec, namespace: namespace})
	}
	return idx.apply(ctx, writes)
}
