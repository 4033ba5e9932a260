package memory

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/danja/semem/internal/chunk"
	"github.com/danja/semem/internal/embedding"
	"github.com/danja/semem/internal/graph"
	"github.com/danja/semem/internal/llm"
	"github.com/danja/semem/internal/model"
	"github.com/danja/semem/internal/store"
	"github.com/danja/semem/internal/vecindex"
)

const namespaceInteractions = "interaction"

// Options configures a Manager.
type Options struct {
	// ChunkThreshold is Cmax: content longer than this is split by the
	// Chunker before processing (§4.2).
	ChunkThreshold int
	ProcessBatchSize int
}

func (o Options) withDefaults() Options {
	if o.ChunkThreshold <= 0 {
		o.ChunkThreshold = 4000
	}
	if o.ProcessBatchSize <= 0 {
		o.ProcessBatchSize = 50
	}
	return o
}

// Manager implements the Memory Manager contract: store, retrieve, and
// processLazy over Interactions.
type Manager struct {
	opts       Options
	chunker    *chunk.Chunker
	embeddings *embedding.Service
	llm        *llm.Service
	index      *vecindex.Index
	graph      *graph.Graph
	store      *store.Store
	logger     *zap.Logger

	mu       sync.Mutex
	sessions map[string]*model.SessionCache

	pendingMu sync.Mutex
	pending   map[string]*model.Interaction
}

// New constructs a Manager. Any of embeddings, llm, index, graph, or
// persistentStore may be nil in a minimal/test configuration; the
// corresponding processing steps are then skipped, and a skipped step does
// not leave the Interaction pendingProcessing.
func New(
	chunker *chunk.Chunker,
	embeddings *embedding.Service,
	llmService *llm.Service,
	index *vecindex.Index,
	g *graph.Graph,
	persistentStore *store.Store,
	logger *zap.Logger,
	opts Options,
) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		opts:       opts.withDefaults(),
		chunker:    chunker,
		embeddings: embeddings,
		llm:        llmService,
		index:      index,
		graph:      g,
		store:      persistentStore,
		logger:     logger,
		sessions:   make(map[string]*model.SessionCache),
		pending:    make(map[string]*model.Interaction),
	}
}

func (m *Manager) sessionCache(sessionID string) *model.SessionCache {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.sessions[sessionID]
	if !ok {
		c = model.NewSessionCache(200)
		m.sessions[sessionID] = c
	}
	return c
}

// Store persists content as an Interaction of the given kind. When lazy is
// true, only raw content and an ID are persisted: embedding and concept
// extraction are skipped entirely and pendingProcessing is set so a later
// processLazy call can complete it.
func (m *Manager) Store(ctx context.Context, sessionID string, kind model.Kind, content string, metadata model.Metadata, lazy bool) (*model.Interaction, error) {
	if content == "" {
		return nil, model.ErrEmptyContent
	}

	now := time.Now()
	if metadata.Created.IsZero() {
		metadata.Created = now
	}
	metadata.LastAccessed = now

	interaction := &model.Interaction{
		ID:       model.NewRandomID(kind),
		Prompt:   content,
		Kind:     kind,
		Metadata: metadata,
	}

	if lazy {
		interaction.PendingProcessing = true
		m.persistRaw(sessionID, interaction)
		return interaction, nil
	}

	if len(content) > m.opts.ChunkThreshold && m.chunker != nil {
		return m.storeChunked(ctx, sessionID, interaction)
	}

	m.process(ctx, interaction)
	m.persist(sessionID, interaction)
	return interaction, nil
}

func (m *Manager) storeChunked(ctx context.Context, sessionID string, parent *model.Interaction) (*model.Interaction, error) {
	title := parent.Metadata.Source
	if title == "" {
		title = parent.ID
	}
	results := m.chunker.Split(parent.Prompt, title)

	parent.Kind = model.KindDocument
	m.persistRaw(sessionID, parent)

	for i, r := range results {
		child := &model.Interaction{
			ID:       model.NewRandomID(model.KindDocumentChunk),
			Prompt:   r.Text,
			Kind:     model.KindDocumentChunk,
			Metadata: parent.Metadata,
			Chunk: &model.ChunkInfo{
				ParentID:    parent.ID,
				Index:       i,
				TotalChunks: len(results),
				Title:       r.Info.Title,
				Offset:      r.Info.Offset,
				Length:      r.Info.Length,
			},
		}
		m.process(ctx, child)
		m.persist(sessionID, child)
	}
	return parent, nil
}

// process runs the embedding + concept-extraction + index/graph-update
// pipeline for a single Interaction. Any provider failure is recoverable:
// the Interaction is left pendingProcessing and added to the pending set
// for a later processLazy pass (§4.2 durability guarantee).
func (m *Manager) process(ctx context.Context, interaction *model.Interaction) {
	if m.embeddings != nil {
		vec, err := m.embeddings.Generate(ctx, interaction.Prompt)
		if err != nil {
			m.logger.Warn("memory: embedding failed, deferring to processLazy",
				zap.String("id", interaction.ID), zap.Error(err))
			m.markPending(interaction)
			return
		}
		interaction.Embedding = vec
		if m.index != nil {
			m.index.Add(namespaceInteractions, interaction.ID, vec)
		}
	}

	if m.llm != nil {
		concepts := m.llm.ExtractConcepts(ctx, interaction.Prompt)
		interaction.Concepts = concepts
		if m.graph != nil {
			for i := 0; i < len(concepts); i++ {
				for j := i + 1; j < len(concepts); j++ {
					m.graph.AddEdge(concepts[i], concepts[j], 1)
				}
			}
		}
	}

	interaction.PendingProcessing = false
}

func (m *Manager) markPending(interaction *model.Interaction) {
	interaction.PendingProcessing = true
	m.pendingMu.Lock()
	m.pending[interaction.ID] = interaction
	m.pendingMu.Unlock()
}

func (m *Manager) persist(sessionID string, interaction *model.Interaction) {
	m.sessionCache(sessionID).Put(interaction)
	if m.store != nil {
		m.store.EnqueueWrite(sessionID, store.Mutation{
			Template: "update-insert-interaction",
			Params: map[string]string{
				"subject":  interaction.ID,
				"prompt":   interaction.Prompt,
				"response": interaction.Response,
				"kind":     string(interaction.Kind),
				"created":  interaction.Metadata.Created.Format(time.RFC3339Nano),
			},
		})
	}
}

func (m *Manager) persistRaw(sessionID string, interaction *model.Interaction) {
	m.persist(sessionID, interaction)
	if interaction.PendingProcessing {
		m.pendingMu.Lock()
		m.pending[interaction.ID] = interaction
		m.pendingMu.Unlock()
	}
}
