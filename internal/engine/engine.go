// Package engine wires every component of the semem verb engine into a
// single explicit value. There is no package-level singleton anywhere in
// this module: callers construct one Engine and pass it by reference, the
// way the teacher's cmd/contextd/main.go builds a deps struct and hands it
// to the server instead of reaching for globals.
package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/danja/semem/internal/chunk"
	"github.com/danja/semem/internal/config"
	"github.com/danja/semem/internal/embedding"
	"github.com/danja/semem/internal/enhancement"
	"github.com/danja/semem/internal/graph"
	"github.com/danja/semem/internal/llm"
	"github.com/danja/semem/internal/memory"
	"github.com/danja/semem/internal/model"
	"github.com/danja/semem/internal/reranker"
	"github.com/danja/semem/internal/retrieval"
	"github.com/danja/semem/internal/store"
	"github.com/danja/semem/internal/vecindex"
	"github.com/danja/semem/internal/zpt"
)

// Engine holds every leaf-to-top component of the verb engine, constructed
// once from a Config and handed to the Verb Dispatcher.
type Engine struct {
	Config *config.Config
	Logger *zap.Logger

	Embeddings  *embedding.Service
	LLM         *llm.Service
	Chunker     *chunk.Chunker
	Index       *vecindex.Index
	Graph       *graph.Graph
	Store       *store.Store
	Enhancer    *enhancement.Coordinator
	Memory      *memory.Manager
	ZPT         *zpt.Manager
	Retriever   *retrieval.Retriever

	decayScheduler *graph.DecayScheduler
}

// New constructs an Engine from cfg. Construction never touches the
// network beyond the Persistent Store's initial liveness probe (§4.10
// rule 4), which New's caller starts explicitly via Start.
func New(cfg *config.Config, logger *zap.Logger) (*Engine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	embeddings, err := buildEmbeddings(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("engine: embeddings: %w", err)
	}

	llmService := buildLLM(cfg, logger)

	chunker := chunk.NewChunker(chunk.Options{
		MaxChunkSize:   cfg.Chunker.MaxChunkSize,
		MinChunkSize:   cfg.Chunker.MinChunkSize,
		Overlap:        cfg.Chunker.Overlap,
		Strategy:       chunk.Strategy(cfg.Chunker.Strategy),
		BoundaryWindow: cfg.Chunker.BoundaryWindow,
	})

	index := vecindex.New(logger, vecindex.Options{
		FlushDebounce: msDuration(cfg.VectorIndex.FlushDebounceMS),
	})

	g := graph.New()

	var schedulerOpts []graph.SchedulerOption
	if cfg.Graph.DecayFactor > 0 {
		schedulerOpts = append(schedulerOpts, graph.WithFactor(cfg.Graph.DecayFactor))
	}
	if cfg.Graph.DecayIntervalHours > 0 {
		schedulerOpts = append(schedulerOpts, graph.WithInterval(hoursDuration(cfg.Graph.DecayIntervalHours)))
	}
	decayScheduler, err := graph.NewDecayScheduler(g, logger, schedulerOpts...)
	if err != nil {
		return nil, fmt.Errorf("engine: decay scheduler: %w", err)
	}

	persistentStore, err := store.New(store.Options{
		QueryEndpoint:  cfg.Store.QueryEndpoint,
		UpdateEndpoint: cfg.Store.UpdateEndpoint,
		Graph:          cfg.Store.Graph,
		TemplateDir:    cfg.Store.TemplateDir,
		RequestTimeout: secDuration(cfg.Store.RequestTimeoutSeconds),
		DebounceWindow: msDuration(cfg.Store.DebounceWindowMS),
		LoadCacheCap:   cfg.Store.LoadCacheCap,
		ProbeInterval:  secDuration(cfg.Store.ProbeIntervalSeconds),
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("engine: store: %w", err)
	}

	enhancer := buildEnhancer(cfg, llmService, embeddings, logger)

	mem := memory.New(chunker, embeddings, llmService, index, g, persistentStore, logger, memory.Options{
		ChunkThreshold:   cfg.Chunker.MaxChunkSize,
		ProcessBatchSize: 50,
	})

	zptManager := zpt.New(g, embeddings, reranker.NewSimpleReranker(), logger)
	zptManager.SetSessionDefaults(
		model.Zoom(cfg.ZPT.DefaultZoom),
		model.Tilt(cfg.ZPT.DefaultTilt),
		cfg.ZPT.DefaultRelevanceThreshold,
	)

	retriever := retrieval.New(mem, embeddings, index, g, llmService, enhancer, zptManager, persistentStore, logger, retrieval.Config{
		ActivationHops:  cfg.Graph.ActivationHops,
		ActivationDecay: cfg.Graph.ActivationDecay,
	})

	return &Engine{
		Config:         cfg,
		Logger:         logger,
		Embeddings:     embeddings,
		LLM:            llmService,
		Chunker:        chunker,
		Index:          index,
		Graph:          g,
		Store:          persistentStore,
		Enhancer:       enhancer,
		Memory:         mem,
		ZPT:            zptManager,
		Retriever:      retriever,
		decayScheduler: decayScheduler,
	}, nil
}

// Start brings up every background goroutine the Engine owns: the
// Persistent Store's liveness probe and the Concept Graph's decay
// scheduler. It returns once both are running; neither failing to reach
// the backing store is fatal (the store degrades per §4.10 rule 4).
func (e *Engine) Start(ctx context.Context) error {
	if err := e.Store.Start(ctx); err != nil {
		e.Logger.Warn("engine: store starting in degraded mode", zap.Error(err))
	} else if e.Store.Degraded() {
		e.Logger.Warn("engine: store starting in degraded mode")
	}
	if err := e.decayScheduler.Start(); err != nil {
		return fmt.Errorf("engine: decay scheduler: %w", err)
	}
	return nil
}

// Stop tears down every background goroutine started by Start.
func (e *Engine) Stop() {
	e.decayScheduler.Stop()
	e.Store.Stop()
}
