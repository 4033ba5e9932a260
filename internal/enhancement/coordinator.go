package enhancement

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/danja/semem/internal/embedding"
	"github.com/danja/semem/internal/model"
)

// Options configures a Coordinator.
type Options struct {
	CacheTTL          time.Duration
	MaxRetries        int
	RetryBaseDelay    time.Duration
	RetryCapDelay     time.Duration
	RetryJitter       float64
	PerProviderTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.CacheTTL <= 0 {
		o.CacheTTL = 7 * 24 * time.Hour
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = 2
	}
	if o.RetryBaseDelay <= 0 {
		o.RetryBaseDelay = 250 * time.Millisecond
	}
	if o.RetryCapDelay <= 0 {
		o.RetryCapDelay = 2 * time.Second
	}
	if o.RetryJitter <= 0 {
		o.RetryJitter = 0.2
	}
	if o.PerProviderTimeout <= 0 {
		o.PerProviderTimeout = 8 * time.Second
	}
	return o
}

// Result is the outcome of consulting one provider for one question.
type Result struct {
	Provider model.EnhancementProvider
	Record   *model.Interaction
	CacheHit bool
	Err      error
}

// Coordinator implements the Enhancement Coordinator (§4.4): cache-first,
// retried, circuit-broken calls to factual/encyclopedic/hypothetical
// providers, persisting successful results as EnhancementRecords.
type Coordinator struct {
	opts       Options
	providers  map[model.EnhancementProvider]Provider
	embeddings *embedding.Service
	logger     *zap.Logger

	cache *cache

	mu       sync.Mutex
	breakers map[model.EnhancementProvider]*circuitBreaker
}

// New constructs a Coordinator over the given providers.
func New(providers []Provider, embeddings *embedding.Service, logger *zap.Logger, opts Options) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts = opts.withDefaults()

	byName := make(map[model.EnhancementProvider]Provider, len(providers))
	breakers := make(map[model.EnhancementProvider]*circuitBreaker, len(providers))
	for _, p := range providers {
		byName[p.Name()] = p
		breakers[p.Name()] = newCircuitBreaker(5, 5*time.Minute)
	}

	return &Coordinator{
		opts:       opts,
		providers:  byName,
		embeddings: embeddings,
		logger:     logger,
		cache:      newCache(),
		breakers:   breakers,
	}
}

// Enhance consults every requested provider for question, returning one
// Result per provider. Per-provider failure never aborts the call: the
// overall Enhance succeeds with whatever subset returned (§4.4 failure
// semantics). The hypothetical-expansion provider's record is included
// like any other but callers must never cite it as a source — it exists
// only to seed an augmented local-branch search round. Providers that miss
// the cache are called concurrently; results keep the order of wanted.
func (c *Coordinator) Enhance(ctx context.Context, question string, wanted []model.EnhancementProvider) []Result {
	now := time.Now()
	results := make([]Result, len(wanted))
	var g errgroup.Group

	for i, name := range wanted {
		provider, ok := c.providers[name]
		if !ok {
			results[i] = Result{Provider: name, Err: errUnknownProvider(name)}
			continue
		}

		if record, hit := c.cache.get(name, question, now); hit {
			results[i] = Result{Provider: name, Record: record, CacheHit: true}
			continue
		}

		g.Go(func() error {
			record, err := c.fetchAndPersist(ctx, provider, question, now)
			results[i] = Result{Provider: name, Record: record, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (c *Coordinator) fetchAndPersist(ctx context.Context, provider Provider, question string, now time.Time) (*model.Interaction, error) {
	breaker := c.breakerFor(provider.Name())
	if !breaker.allow() {
		return nil, errCircuitOpen(provider.Name())
	}

	text, err := c.callWithRetry(ctx, provider, question)
	if err != nil {
		breaker.recordFailure()
		c.logger.Warn("enhancement: provider failed",
			zap.String("provider", string(provider.Name())), zap.Error(err))
		return nil, err
	}
	breaker.recordSuccess()

	record := &model.Interaction{
		ID:       model.NewID(model.KindEnhancement, string(provider.Name()), question),
		Response: text,
		Kind:     model.KindEnhancement,
		Metadata: model.Metadata{Created: now, LastAccessed: now},
		Enhancement: &model.EnhancementInfo{
			SourceQuery: question,
			Provider:    provider.Name(),
			CacheTTL:    c.opts.CacheTTL,
			CachedAt:    now,
		},
	}
	if c.embeddings != nil {
		if vec, err := c.embeddings.Generate(ctx, text); err == nil {
			record.Embedding = vec
		} else {
			c.logger.Warn("enhancement: embedding generation failed", zap.Error(err))
		}
	}

	c.cache.put(provider.Name(), question, record)
	return record, nil
}

// callWithRetry invokes provider.Lookup with up to opts.MaxRetries
// retries, exponential backoff (base/cap configurable, ±jitter), and a
// per-call timeout.
func (c *Coordinator) callWithRetry(ctx context.Context, provider Provider, question string) (string, error) {
	var lastErr error
	delay := c.opts.RetryBaseDelay

	for attempt := 0; attempt <= c.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			wait := jitter(delay, c.opts.RetryJitter)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(wait):
			}
			delay *= 2
			if delay > c.opts.RetryCapDelay {
				delay = c.opts.RetryCapDelay
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, c.opts.PerProviderTimeout)
		text, err := provider.Lookup(callCtx, question)
		cancel()
		if err == nil {
			return text, nil
		}
		lastErr = err
	}
	return "", lastErr
}

func jitter(base time.Duration, fraction float64) time.Duration {
	if fraction <= 0 {
		return base
	}
	delta := float64(base) * fraction
	offset := (rand.Float64()*2 - 1) * delta
	result := time.Duration(float64(base) + offset)
	if result < 0 {
		return 0
	}
	return result
}

func (c *Coordinator) breakerFor(name model.EnhancementProvider) *circuitBreaker {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.breakers[name]
	if !ok {
		b = newCircuitBreaker(5, 5*time.Minute)
		c.breakers[name] = b
	}
	return b
}
