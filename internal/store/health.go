package store

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// HealthMonitor tracks liveness of the backing SPARQL endpoint and flips
// the store into degraded (session-cache-only) mode when it becomes
// unreachable, per rule 4. It periodically re-probes and clears degraded
// mode once the endpoint answers again, at which point buffered session
// writes are flushed.
type HealthMonitor struct {
	store    *Store
	interval time.Duration
	logger   *zap.Logger

	degraded atomic.Bool

	ctx    context.Context
	cancel context.CancelFunc
}

func newHealthMonitor(s *Store, logger *zap.Logger, interval time.Duration) *HealthMonitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	hm := &HealthMonitor{
		store:    s,
		interval: interval,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}
	hm.degraded.Store(true) // assume degraded until the first probe succeeds
	return hm
}

// probeOnce issues a single liveness ASK query and updates degraded state.
func (hm *HealthMonitor) probeOnce(ctx context.Context) {
	reachable := hm.probe(ctx)
	hm.updateDegraded(!reachable)
}

func (hm *HealthMonitor) probe(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	body, err := hm.store.renderWithGraph("ask-liveness", nil)
	if err != nil {
		hm.logger.Error("store: liveness template render failed", zap.Error(err))
		return false
	}
	if _, err := hm.store.postQuery(probeCtx, body); err != nil {
		hm.logger.Warn("store: liveness probe failed", zap.Error(err))
		return false
	}
	return true
}

// Start begins the periodic re-probe loop. Calling Start more than once is
// harmless; each call spawns an independent ticker bound to the same
// cancellable context, so Stop still halts all of them.
func (hm *HealthMonitor) Start() error {
	go hm.run()
	return nil
}

func (hm *HealthMonitor) run() {
	defer func() {
		if r := recover(); r != nil {
			hm.logger.Error("store: health monitor panicked, recovering", zap.Any("panic", r))
		}
	}()

	ticker := time.NewTicker(hm.interval)
	defer ticker.Stop()

	for {
		select {
		case <-hm.ctx.Done():
			return
		case <-ticker.C:
			hm.probeOnce(hm.ctx)
		}
	}
}

// Stop halts the health monitor's background loop.
func (hm *HealthMonitor) Stop() {
	hm.cancel()
}

// Degraded reports the store's current degraded status.
func (hm *HealthMonitor) Degraded() bool {
	return hm.degraded.Load()
}

func (hm *HealthMonitor) updateDegraded(degraded bool) {
	wasDegraded := hm.degraded.Swap(degraded)
	if wasDegraded == degraded {
		return
	}
	if degraded {
		hm.logger.Warn("store: persistent store unreachable, entering degraded mode")
		return
	}
	hm.logger.Info("store: persistent store reachable again, leaving degraded mode")
	go hm.store.flushAllSessions(context.Background())
}
