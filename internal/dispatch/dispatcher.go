package dispatch

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/danja/semem/internal/chunk"
	"github.com/danja/semem/internal/embedding"
	"github.com/danja/semem/internal/engine"
	"github.com/danja/semem/internal/graph"
	"github.com/danja/semem/internal/llm"
	"github.com/danja/semem/internal/memory"
	"github.com/danja/semem/internal/model"
	"github.com/danja/semem/internal/retrieval"
	"github.com/danja/semem/internal/store"
	"github.com/danja/semem/internal/zpt"
)

// defaultVerbDeadline is the §5 default total deadline applied to every
// verb invocation that does not already carry a shorter one.
const defaultVerbDeadline = 30 * time.Second

// Dispatcher implements the Verb Dispatcher (§4.1): it validates arguments,
// resolves a session's NavigationState, invokes the matching handler under
// a per-session write lock when the verb mutates that state, and returns a
// uniform Envelope. It is grounded on the teacher's
// internal/orchestrator/executor.go phase-handler map, retargeted from
// workflow phases to the twelve verbs.
type Dispatcher struct {
	memory    *memory.Manager
	retriever *retrieval.Retriever
	zptMgr    *zpt.Manager
	llmSvc    *llm.Service
	chunker   *chunk.Chunker
	embedSvc  *embedding.Service
	graph     *graph.Graph
	store     *store.Store
	logger    *zap.Logger

	verbDeadline   time.Duration
	chunkThreshold int

	mu           sync.Mutex
	sessionLocks map[string]*sync.Mutex
}

// New constructs a Dispatcher over an already-started Engine.
func New(eng *engine.Engine) *Dispatcher {
	chunkThreshold := eng.Config.Chunker.MaxChunkSize
	if chunkThreshold <= 0 {
		chunkThreshold = 2000
	}

	return &Dispatcher{
		memory:         eng.Memory,
		retriever:      eng.Retriever,
		zptMgr:         eng.ZPT,
		llmSvc:         eng.LLM,
		chunker:        eng.Chunker,
		embedSvc:       eng.Embeddings,
		graph:          eng.Graph,
		store:          eng.Store,
		logger:         eng.Logger,
		verbDeadline:   defaultVerbDeadline,
		chunkThreshold: chunkThreshold,
		sessionLocks:   make(map[string]*sync.Mutex),
	}
}

// Dispatch is the single entry point: it resolves the session, applies the
// verb deadline, routes to the matching handler, and always returns an
// Envelope — never a raw error (§4.1 step 5, §7 propagation policy).
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) Envelope {
	start := time.Now()

	if req.SessionID == "" {
		req.SessionID = model.NewRandomID(model.KindInteraction)
	}
	if req.Args == nil {
		req.Args = map[string]any{}
	}

	ctx, cancel := context.WithTimeout(ctx, d.verbDeadline)
	defer cancel()

	result, diag, err := d.route(ctx, req.SessionID, req)
	state := d.zptMgr.State(req.SessionID)

	if diag.TimingsMs == nil {
		diag.TimingsMs = map[string]int64{}
	}
	diag.TimingsMs["verb_ms"] = elapsedMs(start)

	if err != nil {
		kind, message := classifyError(err)
		d.logger.Warn("dispatch: verb failed",
			zap.String("verb", string(req.Verb)),
			zap.String("session", req.SessionID),
			zap.String("errorKind", string(kind)),
			zap.Error(err))
		env := errorEnvelope(req.Verb, state, kind, message)
		env.Diagnostics = diag
		return env
	}

	return successEnvelope(req.Verb, result, state, diag)
}

func (d *Dispatcher) route(ctx context.Context, sessionID string, req Request) (any, Diagnostics, error) {
	switch req.Verb {
	case VerbTell:
		return d.handleTell(ctx, sessionID, req.Args)
	case VerbAsk:
		return d.handleAsk(ctx, sessionID, req.Args)
	case VerbAugment:
		return d.handleAugment(ctx, sessionID, req.Args)
	case VerbInspect:
		return d.handleInspect(ctx, sessionID, req.Args)
	case VerbState:
		return d.handleState(ctx, sessionID, req.Args)
	case VerbZoom:
		return d.handleZoom(ctx, sessionID, req.Args)
	case VerbPan:
		return d.handlePan(ctx, sessionID, req.Args)
	case VerbTilt:
		return d.handleTilt(ctx, sessionID, req.Args)
	case VerbRemember:
		return d.handleRemember(ctx, sessionID, req.Args)
	case VerbRecall:
		return d.handleRecall(ctx, sessionID, req.Args)
	case VerbChat:
		return d.handleChat(ctx, sessionID, req.Args)
	case VerbChatEnhanced:
		return d.handleChatEnhanced(ctx, sessionID, req.Args)
	default:
		return nil, Diagnostics{}, validationErrorf("unknown verb %q", req.Verb)
	}
}

// withSessionWriteLock serializes zoom/pan/tilt mutations of sessionID's
// NavigationState (§4.1's dispatcher-level write-serialization
// responsibility), layered on top of zpt.Manager's own per-session lock
// which protects the state value itself.
func (d *Dispatcher) withSessionWriteLock(sessionID string, fn func()) {
	d.mu.Lock()
	lock, ok := d.sessionLocks[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		d.sessionLocks[sessionID] = lock
	}
	d.mu.Unlock()

	lock.Lock()
	defer lock.Unlock()
	fn()
}
