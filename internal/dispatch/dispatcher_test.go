package dispatch

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/danja/semem/internal/chunk"
	"github.com/danja/semem/internal/config"
	"github.com/danja/semem/internal/embedding"
	"github.com/danja/semem/internal/engine"
	"github.com/danja/semem/internal/enhancement"
	"github.com/danja/semem/internal/graph"
	"github.com/danja/semem/internal/llm"
	"github.com/danja/semem/internal/memory"
	"github.com/danja/semem/internal/reranker"
	"github.com/danja/semem/internal/retrieval"
	"github.com/danja/semem/internal/vecindex"
	"github.com/danja/semem/internal/zpt"
)

// newTestDispatcher wires a Dispatcher over hand-built components instead of
// engine.New, so the test never depends on a reachable Persistent Store or
// remote embedding/LLM endpoints (mirrors memory.newTestManager's approach).
func newTestDispatcher(t *testing.T) *Dispatcher {
	t.Helper()

	embSvc := embedding.NewService(embedding.NewDeterministicProvider(8), nil)
	llmSvc := llm.NewService(nil, llm.NewStaticProvider("static"))
	chunker := chunk.NewChunker(chunk.DefaultOptions())
	idx := vecindex.New(nil, vecindex.DefaultOptions())
	g := graph.New()
	mem := memory.New(chunker, embSvc, llmSvc, idx, g, nil, nil, memory.Options{ChunkThreshold: 2000})
	zptMgr := zpt.New(g, embSvc, reranker.NewSimpleReranker(), nil)
	enh := enhancement.New(nil, embSvc, nil, enhancement.Options{})
	retriever := retrieval.New(mem, embSvc, idx, g, llmSvc, enh, zptMgr, nil, nil, retrieval.Config{})

	eng := &engine.Engine{
		Config:     &config.Config{Chunker: config.ChunkerConfig{MaxChunkSize: 2000}},
		Logger:     zap.NewNop(),
		Memory:     mem,
		Retriever:  retriever,
		ZPT:        zptMgr,
		LLM:        llmSvc,
		Chunker:    chunker,
		Embeddings: embSvc,
		Graph:      g,
	}
	return New(eng)
}

func TestDispatcher_TellThenAsk(t *testing.T) {
	d := newTestDispatcher(t)
	ctx := context.Background()
	sessionID := "s1"

	tellEnv := d.Dispatch(ctx, Request{
		Verb:      VerbTell,
		SessionID: sessionID,
		Args: map[string]any{
			"content": "Mitochondria produce ATP via cellular respiration.",
			"type":    "concept",
		},
	})
	require.True(t, tellEnv.Success)
	tellResult, ok := tellEnv.Result.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, tellResult["stored"])
	assert.NotEmpty(t, tellResult["id"])

	askEnv := d.Dispatch(ctx, Request{
		Verb:      VerbAsk,
		SessionID: sessionID,
		Args: map[string]any{
			"question": "How do cells produce energy?",
		},
	})
	require.True(t, askEnv.Success)
	askResult, ok := askEnv.Result.(map[string]any)
	require.True(t, ok)
	assert.Contains(t, askResult["answer"], "ATP")
}

func TestDispatcher_LazyTellThenProcessLazy(t *testing.T) {
	d := newTestDispatcher(t)
	ctx := context.Background()
	sessionID := "s2"

	tellEnv := d.Dispatch(ctx, Request{
		Verb:      VerbTell,
		SessionID: sessionID,
		Args: map[string]any{
			"content": "note A",
			"type":    "interaction",
			"lazy":    true,
		},
	})
	require.True(t, tellEnv.Success)
	result := tellEnv.Result.(map[string]any)
	_, hasChunks := result["chunks"]
	assert.False(t, hasChunks, "lazy tell should not report chunks/conceptsExtracted")

	augEnv := d.Dispatch(ctx, Request{
		Verb:      VerbAugment,
		SessionID: sessionID,
		Args: map[string]any{
			"target":    "all",
			"operation": "process_lazy",
		},
	})
	require.True(t, augEnv.Success, "augment errored: %s", augEnv.ErrorMessage)
}

func TestDispatcher_ZoomPanTiltRoundTrip(t *testing.T) {
	d := newTestDispatcher(t)
	ctx := context.Background()
	sessionID := "s3"

	zoomEnv := d.Dispatch(ctx, Request{Verb: VerbZoom, SessionID: sessionID, Args: map[string]any{"level": "entity"}})
	require.True(t, zoomEnv.Success)
	assert.EqualValues(t, "entity", zoomEnv.ZPTState.Zoom)

	panEnv := d.Dispatch(ctx, Request{Verb: VerbPan, SessionID: sessionID, Args: map[string]any{"domains": []any{"a"}}})
	require.True(t, panEnv.Success)
	assert.Contains(t, panEnv.ZPTState.Pan.Domains, "a")

	tiltEnv := d.Dispatch(ctx, Request{Verb: VerbTilt, SessionID: sessionID, Args: map[string]any{"style": "graph"}})
	require.True(t, tiltEnv.Success)
	assert.EqualValues(t, "graph", tiltEnv.ZPTState.Tilt)

	stateEnv := d.Dispatch(ctx, Request{Verb: VerbState, SessionID: sessionID})
	require.True(t, stateEnv.Success)
	assert.EqualValues(t, "entity", stateEnv.ZPTState.Zoom)
	assert.EqualValues(t, "graph", stateEnv.ZPTState.Tilt)
	assert.Contains(t, stateEnv.ZPTState.Pan.Domains, "a")
}

func TestDispatcher_ValidationError(t *testing.T) {
	d := newTestDispatcher(t)
	env := d.Dispatch(context.Background(), Request{Verb: VerbTell, SessionID: "s4", Args: map[string]any{}})
	assert.False(t, env.Success)
	assert.Equal(t, ErrorKindValidation, env.ErrorKind)
}

func TestDispatcher_RememberThenRecall(t *testing.T) {
	d := newTestDispatcher(t)
	ctx := context.Background()
	sessionID := "s5"

	rememberEnv := d.Dispatch(ctx, Request{
		Verb:      VerbRemember,
		SessionID: sessionID,
		Args: map[string]any{
			"content":    "the deploy key rotates every 90 days",
			"importance": "high",
			"domain":     "ops",
		},
	})
	require.True(t, rememberEnv.Success)

	recallEnv := d.Dispatch(ctx, Request{
		Verb:      VerbRecall,
		SessionID: sessionID,
		Args: map[string]any{
			"query":  "deploy key rotation",
			"domain": "ops",
		},
	})
	require.True(t, recallEnv.Success)
	result := recallEnv.Result.(map[string]any)
	memories := result["memories"].([]map[string]any)
	require.Len(t, memories, 1)
	assert.Contains(t, memories[0]["content"], "deploy key")
}
