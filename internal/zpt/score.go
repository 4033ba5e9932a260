package zpt

import (
	"context"
	"strings"
	"time"

	"github.com/danja/semem/internal/embedding"
	"github.com/danja/semem/internal/model"
	"github.com/danja/semem/internal/reranker"
)

// score computes the primary ranking signal selected by state.Tilt for a
// single candidate (§4.3 step 5 / §4.9).
func (m *Manager) score(ctx context.Context, c *model.Interaction, state model.NavigationState, query Query) float64 {
	switch state.Tilt {
	case model.TiltEmbedding:
		return m.scoreEmbedding(c, query)
	case model.TiltGraph:
		return m.scoreGraph(c, state)
	case model.TiltTemporal:
		return scoreTemporal(c)
	case model.TiltKeywords:
		return m.scoreKeywords(ctx, c, query)
	default:
		return m.scoreEmbedding(c, query)
	}
}

func (m *Manager) scoreEmbedding(c *model.Interaction, query Query) float64 {
	if c.Embedding == nil || query.Embedding == nil {
		return 0
	}
	sim, err := embedding.Similarity(c.Embedding, query.Embedding)
	if err != nil {
		return 0
	}
	return sim
}

func (m *Manager) scoreGraph(c *model.Interaction, state model.NavigationState) float64 {
	if m.graph == nil || len(c.Concepts) == 0 {
		return 0
	}
	activations := m.graph.SpreadActivation(c.Concepts, 2, 0.5)
	var best float64
	for _, a := range activations {
		if a.Score > best {
			best = a.Score
		}
	}
	if state.Zoom == model.ZoomCommunity {
		return best + m.communityBonus(c)
	}
	return best
}

// communityBonus adds a small bonus when a candidate's concepts share a
// community with each other, rewarding internally-coherent clusters.
func (m *Manager) communityBonus(c *model.Interaction) float64 {
	if len(c.Concepts) < 2 {
		return 0
	}
	first, ok := m.communities.communityOf(m.graph, c.Concepts[0])
	if !ok {
		return 0
	}
	matches := 0
	for _, concept := range c.Concepts[1:] {
		if id, ok := m.communities.communityOf(m.graph, concept); ok && id == first {
			matches++
		}
	}
	return float64(matches) / float64(len(c.Concepts))
}

func scoreTemporal(c *model.Interaction) float64 {
	age := time.Since(c.Metadata.Created)
	if age < 0 {
		age = 0
	}
	// Inverse age, decaying toward 0 as age grows, never reaching it.
	return 1.0 / (1.0 + age.Hours()/24.0)
}

func (m *Manager) scoreKeywords(ctx context.Context, c *model.Interaction, query Query) float64 {
	if m.reranker == nil {
		return fallbackKeywordScore(c, query)
	}
	docs := []reranker.Document{{ID: c.ID, Content: c.Prompt + "\n" + c.Response}}
	ranked, err := m.reranker.Rerank(ctx, query.Text, docs, 1)
	if err != nil || len(ranked) == 0 {
		return fallbackKeywordScore(c, query)
	}
	return float64(ranked[0].RerankerScore)
}

func fallbackKeywordScore(c *model.Interaction, query Query) float64 {
	if query.Text == "" {
		return 0
	}
	haystack := strings.ToLower(c.Prompt + " " + c.Response)
	terms := strings.Fields(strings.ToLower(query.Text))
	if len(terms) == 0 {
		return 0
	}
	hits := 0
	for _, t := range terms {
		if strings.Contains(haystack, t) {
			hits++
		}
	}
	return float64(hits) / float64(len(terms))
}
