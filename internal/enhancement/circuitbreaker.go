package enhancement

import (
	"math"
	"sync/atomic"
	"time"
)

const (
	circuitClosed   uint32 = 0
	circuitOpen     uint32 = 1
	circuitHalfOpen uint32 = 2
)

// circuitBreaker protects a single provider from repeated-failure pile-up:
// once threshold consecutive failures accrue it stops allowing calls for
// resetAfter, then allows exactly one probe request through (half-open)
// before either closing again or re-opening. Grounded on the teacher's
// vectorstore/sync.go CircuitBreaker, retargeted from sync failures to
// enhancement-provider failures.
type circuitBreaker struct {
	failures    atomic.Int32
	threshold   int32
	resetAfter  time.Duration
	state       atomic.Uint32
	lastFailure atomic.Int64
}

func newCircuitBreaker(threshold int32, resetAfter time.Duration) *circuitBreaker {
	if threshold <= 0 {
		threshold = 5
	}
	if resetAfter <= 0 {
		resetAfter = 5 * time.Minute
	}
	return &circuitBreaker{threshold: threshold, resetAfter: resetAfter}
}

// allow reports whether a call may proceed.
func (cb *circuitBreaker) allow() bool {
	for {
		switch cb.state.Load() {
		case circuitOpen:
			lastFail := time.Unix(0, cb.lastFailure.Load())
			if time.Since(lastFail) > cb.resetAfter {
				if cb.state.CompareAndSwap(circuitOpen, circuitHalfOpen) {
					return true
				}
				continue
			}
			return false
		case circuitHalfOpen:
			return false
		default:
			return true
		}
	}
}

func (cb *circuitBreaker) recordSuccess() {
	cb.failures.Store(0)
	cb.state.Store(circuitClosed)
}

func (cb *circuitBreaker) recordFailure() {
	for {
		current := cb.failures.Load()
		if current == math.MaxInt32 {
			return
		}
		next := current + 1
		if !cb.failures.CompareAndSwap(current, next) {
			continue
		}
		if next >= cb.threshold {
			if cb.state.CompareAndSwap(circuitClosed, circuitOpen) ||
				cb.state.CompareAndSwap(circuitHalfOpen, circuitOpen) {
				cb.lastFailure.Store(time.Now().UnixNano())
			}
		}
		return
	}
}

func (cb *circuitBreaker) stateName() string {
	switch cb.state.Load() {
	case circuitOpen:
		return "open"
	case circuitHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}
