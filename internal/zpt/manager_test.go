package zpt

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danja/semem/internal/graph"
	"github.com/danja/semem/internal/model"
)

func TestManager_PanIsAdditiveAcrossCalls(t *testing.T) {
	m := New(graph.New(), nil, nil, nil)

	m.Pan("s1", model.Pan{Keywords: []string{"go"}}, false)
	state := m.Pan("s1", model.Pan{Keywords: []string{"rust"}}, false)

	assert.ElementsMatch(t, []string{"go", "rust"}, state.Pan.Keywords)
}

func TestManager_PanResetReplaces(t *testing.T) {
	m := New(graph.New(), nil, nil, nil)

	m.Pan("s1", model.Pan{Keywords: []string{"go"}}, false)
	state := m.Pan("s1", model.Pan{Keywords: []string{"rust"}}, true)

	assert.Equal(t, []string{"rust"}, state.Pan.Keywords)
}

func TestManager_ZoomFiltersByKind(t *testing.T) {
	m := New(graph.New(), nil, nil, nil)
	state := m.Zoom("s1", model.ZoomText)

	candidates := []*model.Interaction{
		{ID: "a", Kind: model.KindDocument},
		{ID: "b", Kind: model.KindDocumentChunk},
	}

	scored := m.ApplyTo(context.Background(), candidates, state, Query{})
	require.Len(t, scored, 1)
	assert.Equal(t, "a", scored[0].Interaction.ID)
}

func TestManager_TiltTemporalFavorsRecent(t *testing.T) {
	m := New(graph.New(), nil, nil, nil)
	state := m.Tilt("s1", model.TiltTemporal)
	state.Zoom = model.ZoomCorpus

	now := time.Now()
	candidates := []*model.Interaction{
		{ID: "old", Kind: model.KindInteraction, Metadata: model.Metadata{Created: now.Add(-30 * 24 * time.Hour)}},
		{ID: "new", Kind: model.KindInteraction, Metadata: model.Metadata{Created: now}},
	}

	scored := m.ApplyTo(context.Background(), candidates, state, Query{})
	require.Len(t, scored, 2)
	assert.Equal(t, "new", scored[0].Interaction.ID, "more recent interaction should rank first")
}

func TestManager_RelevanceThresholdDropsLowScores(t *testing.T) {
	m := New(graph.New(), nil, nil, nil)
	state := m.Tilt("s1", model.TiltEmbedding)
	state.Zoom = model.ZoomCorpus
	state.RelevanceThreshold = 0.5

	candidates := []*model.Interaction{
		{ID: "no-embedding", Kind: model.KindInteraction},
	}

	scored := m.ApplyTo(context.Background(), candidates, state, Query{Embedding: []float32{1, 0}})
	assert.Empty(t, scored, "candidate with no embedding scores 0 and should be dropped by the threshold")
}
