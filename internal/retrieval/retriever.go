package retrieval

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/danja/semem/internal/embedding"
	"github.com/danja/semem/internal/enhancement"
	"github.com/danja/semem/internal/graph"
	"github.com/danja/semem/internal/llm"
	"github.com/danja/semem/internal/memory"
	"github.com/danja/semem/internal/model"
	"github.com/danja/semem/internal/store"
	"github.com/danja/semem/internal/vecindex"
	"github.com/danja/semem/internal/zpt"
)

// Config tunes the Retriever's timeouts and graph-walk parameters (§5).
type Config struct {
	LocalBranchTimeout       time.Duration
	EnhancementBranchTimeout time.Duration
	ActivationHops           int
	ActivationDecay          float64
}

func (c Config) withDefaults() Config {
	if c.LocalBranchTimeout <= 0 {
		c.LocalBranchTimeout = 3 * time.Second
	}
	if c.EnhancementBranchTimeout <= 0 {
		c.EnhancementBranchTimeout = 10 * time.Second
	}
	if c.ActivationHops <= 0 {
		c.ActivationHops = 2
	}
	if c.ActivationDecay <= 0 {
		c.ActivationDecay = 0.5
	}
	return c
}

// Retriever implements the Hybrid Retriever (§4.3): ask() orchestration
// over the Memory Manager, the concept Graph, the ZPT Manager and the
// Enhancement Coordinator, merged and handed to the LLM Service.
type Retriever struct {
	memory     *memory.Manager
	embeddings *embedding.Service
	index      *vecindex.Index
	graph      *graph.Graph
	llmService *llm.Service
	enhancer   *enhancement.Coordinator
	zptManager *zpt.Manager
	store      *store.Store
	logger     *zap.Logger
	cfg        Config
}

// New constructs a Retriever. index may be nil, in which case the local
// branch degrades to the session cache only.
func New(mem *memory.Manager, embeddings *embedding.Service, idx *vecindex.Index, g *graph.Graph, llmService *llm.Service,
	enhancer *enhancement.Coordinator, zptManager *zpt.Manager, st *store.Store, logger *zap.Logger, cfg Config) *Retriever {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retriever{
		memory:     mem,
		embeddings: embeddings,
		index:      idx,
		graph:      g,
		llmService: llmService,
		enhancer:   enhancer,
		zptManager: zptManager,
		store:      st,
		logger:     logger,
		cfg:        cfg.withDefaults(),
	}
}

const namespaceInteractions = "interaction"

// Ask implements §4.3's ask() contract: concurrent local and enhancement
// branches, merge, durability-before-reply, then LLM synthesis.
func (r *Retriever) Ask(ctx context.Context, sessionID, question string, opts Options) (*Result, error) {
	start := time.Now()
	opts.Mode = opts.Mode.withDefault()
	timings := map[string]int64{}
	cacheHits := map[string]bool{}

	queryVec, err := r.embeddings.Generate(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("retrieval: embed question: %w", err)
	}
	state := r.zptManager.State(sessionID)

	var (
		localCandidates []*candidate
		enhResults      []enhancement.Result
	)

	g, gctx := errgroup.WithContext(ctx)

	if opts.UseContext {
		g.Go(func() error {
			t0 := time.Now()
			localCandidates = r.runLocalBranch(gctx, sessionID, question, queryVec, state, opts)
			timings["local_ms"] = time.Since(t0).Milliseconds()
			return nil
		})
	}

	wanted := wantedProviders(opts)
	if len(wanted) > 0 && r.enhancer != nil {
		g.Go(func() error {
			t0 := time.Now()
			enhCtx, cancel := context.WithTimeout(gctx, r.cfg.EnhancementBranchTimeout)
			defer cancel()
			enhResults = r.enhancer.Enhance(enhCtx, question, wanted)
			timings["enhancement_ms"] = time.Since(t0).Milliseconds()
			return nil
		})
	}

	// Neither branch returns a Go error (enhancement-provider failures are
	// reported per-provider inside enhResults, never here), so Wait only
	// blocks until both complete — it never aborts one branch for the
	// other's failure (§4.4 failure semantics).
	_ = g.Wait()

	enhCandidates, hydeRecord := r.splitEnhancementResults(enhResults, state, cacheHits)

	// A hypothetical-answer expansion re-seeds a second local search round
	// (§4.4): its text is embedded and searched, but it is never itself a
	// cited source.
	if hydeRecord != nil && opts.UseContext {
		if hydeVec, err := r.embeddings.Generate(ctx, hydeRecord.Response); err == nil {
			extra := r.searchLocal(ctx, sessionID, hydeVec, kLocalFor(opts.Mode), state, Query{Text: question, Embedding: queryVec})
			localCandidates = append(localCandidates, extra...)
		}
	}

	all := append(localCandidates, enhCandidates...)

	w := classify(question)
	applyWeights(all, w)
	all = dedupe(all)
	rank(all)
	if len(all) > kFinalFor(opts.Mode) {
		all = all[:kFinalFor(opts.Mode)]
	}

	r.flushEnhancementRecords(ctx, sessionID, enhResults)

	answer, contextItems, sourcesUsed := r.synthesize(ctx, question, all)
	timings["total_ms"] = time.Since(start).Milliseconds()

	return &Result{
		Answer:       answer,
		ContextItems: contextItems,
		SourcesUsed:  sourcesUsed,
		TimingsMs:    timings,
		CacheHits:    cacheHits,
	}, nil
}

// wantedProviders maps Options' boolean flags to the Enhancement
// Coordinator's provider set (§4.3 contract).
func wantedProviders(opts Options) []model.EnhancementProvider {
	var wanted []model.EnhancementProvider
	if opts.UseWikidata {
		wanted = append(wanted, model.ProviderFactual)
	}
	if opts.UseWikipedia {
		wanted = append(wanted, model.ProviderEncyclopedic)
	}
	if opts.UseHyDE {
		wanted = append(wanted, model.ProviderHypothetical)
	}
	return wanted
}

// runLocalBranch resolves the vector-search branch and the concept
// spreading-activation branch into scored candidates via zpt.ApplyTo
// (§4.3 step 3).
func (r *Retriever) runLocalBranch(ctx context.Context, sessionID, question string, queryVec []float32, state model.NavigationState, opts Options) []*candidate {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.LocalBranchTimeout)
	defer cancel()

	q := Query{Text: question, Embedding: queryVec}
	return r.searchLocal(ctx, sessionID, queryVec, kLocalFor(opts.Mode), state, q)
}

// Query mirrors zpt.Query; kept as a local alias so callers of this package
// don't need to import internal/zpt directly.
type Query = zpt.Query

func (r *Retriever) searchLocal(ctx context.Context, sessionID string, queryVec []float32, k int, state model.NavigationState, q Query) []*candidate {
	pool := r.candidatePool(ctx, sessionID, queryVec, k, queryText(q))

	scored := r.zptManager.ApplyTo(ctx, pool, state, q)

	now := time.Now()
	out := make([]*candidate, 0, len(scored))
	for _, sc := range scored {
		out = append(out, &candidate{
			interaction: sc.Interaction,
			source:      sourcePersonal,
			personal:    sc.Score,
			authority:   0,
			recency:     recencyScore(sc.Interaction, now),
			zptMatch:    zptMatchScore(sc.Interaction, state),
		})
	}
	return out
}

func queryText(q Query) string { return q.Text }

// candidatePool gathers the local branch's raw candidate set: vector-index
// nearest neighbours plus concept-graph spreading activation over the
// session's recently-touched Interactions (§4.8). The concept graph stores
// label adjacency only, so activation is resolved back to Interactions by
// filtering the session cache for concept overlap rather than a dedicated
// index.
func (r *Retriever) candidatePool(ctx context.Context, sessionID string, queryVec []float32, k int, text string) []*model.Interaction {
	seen := make(map[string]*model.Interaction)

	if r.index != nil {
		matches, err := r.index.Search(ctx, namespaceInteractions, queryVec, k)
		if err != nil {
			r.logger.Warn("retrieval: vector search failed", zap.Error(err))
		}
		for _, m := range matches {
			interaction, err := r.memory.Get(ctx, sessionID, m.ID)
			if err != nil || interaction == nil {
				continue
			}
			seen[interaction.ID] = interaction
		}
	}

	if r.graph != nil && r.llmService != nil {
		seeds := r.llmService.ExtractConcepts(ctx, text)
		if len(seeds) > 0 {
			activations := r.graph.SpreadActivation(seeds, r.cfg.ActivationHops, r.cfg.ActivationDecay)
			activated := make(map[string]bool, len(activations))
			for _, a := range activations {
				activated[a.Label] = true
			}
			recent := r.memory.SessionCache(sessionID).Recent(64)
			for _, interaction := range recent {
				if _, already := seen[interaction.ID]; already {
					continue
				}
				if conceptOverlap(interaction.Concepts, activated) {
					seen[interaction.ID] = interaction
				}
			}
		}
	}

	out := make([]*model.Interaction, 0, len(seen))
	for _, interaction := range seen {
		out = append(out, interaction)
	}
	return out
}

func conceptOverlap(concepts []string, activated map[string]bool) bool {
	for _, c := range concepts {
		if activated[c] {
			return true
		}
	}
	return false
}

// splitEnhancementResults turns Coordinator results into merge candidates,
// separately returning a hypothetical-provider record (if any) since that
// one never becomes a candidate or a cited source (§4.4).
func (r *Retriever) splitEnhancementResults(results []enhancement.Result, state model.NavigationState, cacheHits map[string]bool) ([]*candidate, *model.Interaction) {
	var (
		candidates []*candidate
		hyde       *model.Interaction
	)
	now := time.Now()
	for _, res := range results {
		if res.Err != nil || res.Record == nil {
			continue
		}
		cacheHits[string(res.Provider)] = res.CacheHit
		if res.Provider == model.ProviderHypothetical {
			hyde = res.Record
			continue
		}
		candidates = append(candidates, &candidate{
			interaction: res.Record,
			source:      sourceForProvider(res.Provider),
			personal:    0,
			authority:   1.0,
			recency:     recencyScore(res.Record, now),
			zptMatch:    zptMatchScore(res.Record, state),
		})
	}
	return candidates, hyde
}

// flushEnhancementRecords persists freshly-fetched (non-cache-hit)
// EnhancementRecords and flushes them before the response is returned
// (§4.3.2 durability-before-reply).
func (r *Retriever) flushEnhancementRecords(ctx context.Context, sessionID string, results []enhancement.Result) {
	if r.store == nil {
		return
	}
	wrote := false
	for _, res := range results {
		if res.CacheHit || res.Err != nil || res.Record == nil || res.Record.Enhancement == nil {
			continue
		}
		r.store.EnqueueWrite(sessionID, store.Mutation{
			Template: "update-insert-enhancement",
			Params: map[string]string{
				"subject":     res.Record.ID,
				"response":    res.Record.Response,
				"sourceQuery": res.Record.Enhancement.SourceQuery,
				"provider":    string(res.Provider),
				"cacheTTL":    res.Record.Enhancement.CacheTTL.String(),
			},
		})
		wrote = true
	}
	if wrote {
		r.store.FlushSession(ctx, sessionID)
	}
}

// synthesize builds the attributed context text and calls the LLM Service
// (§4.3 step 6).
func (r *Retriever) synthesize(ctx context.Context, question string, candidates []*candidate) (string, []ContextItem, []string) {
	contextItems := make([]ContextItem, 0, len(candidates))
	texts := make([]string, 0, len(candidates))
	sourceSet := map[string]bool{}
	var sourcesUsed []string

	for _, c := range candidates {
		label := c.source
		if label == "" {
			label = sourcePersonal
		}
		texts = append(texts, fmt.Sprintf("[%s] %s", label, c.interaction.Content()))
		contextItems = append(contextItems, ContextItem{
			Interaction: c.interaction,
			Source:      label,
			Weight:      c.weight,
		})
		if !sourceSet[label] {
			sourceSet[label] = true
			sourcesUsed = append(sourcesUsed, label)
		}
	}

	answer, _, err := r.llmService.Chat(ctx, question, texts, llm.ChatOptions{})
	if err != nil {
		r.logger.Warn("retrieval: synthesis failed", zap.Error(err))
		answer = ""
	}
	return answer, contextItems, sourcesUsed
}
