package memory

import (
	"context"
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/danja/semem/internal/model"
)

// epsilon is the score tie-break tolerance from §4.2: within this
// distance, candidates are ordered by recency, then by ID.
const epsilon = 1e-6

// Get fetches a single Interaction by ID: the session cache first, falling
// back to the Persistent Store's lazy-load path. Used by the Hybrid
// Retriever to resolve vector-index and concept-graph hits into full
// Interactions.
func (m *Manager) Get(ctx context.Context, sessionID, id string) (*model.Interaction, error) {
	if interaction, ok := m.sessionCache(sessionID).Get(id); ok {
		return interaction, nil
	}
	if m.store == nil {
		return nil, nil
	}
	return m.store.FetchInteractionForSession(ctx, sessionID, id)
}

// SessionCache exposes the session's LRU cache, used by the Hybrid
// Retriever to consider recently-touched Interactions without a vector
// search round-trip (e.g. read-your-writes right after a tell).
func (m *Manager) SessionCache(sessionID string) *model.SessionCache {
	return m.sessionCache(sessionID)
}

// ScoredInteraction pairs an Interaction with its retrieval score.
type ScoredInteraction struct {
	Interaction *model.Interaction
	Score       float64
}

// Retrieve is the pure-read local path (no enhancement providers): embed
// the query, apply the Vector Index's buffered writes, search it, fetch the
// matched Interactions, and return those at or above threshold, ranked by
// score with the §4.2 tie-break.
func (m *Manager) Retrieve(ctx context.Context, sessionID, query string, limit int, threshold float64) ([]ScoredInteraction, error) {
	if m.embeddings == nil || m.index == nil {
		return nil, nil
	}

	vec, err := m.embeddings.Generate(ctx, query)
	if err != nil {
		return nil, err
	}

	// Flush first so a just-stored Interaction is searchable (read-your-writes).
	if err := m.index.Flush(ctx); err != nil {
		m.logger.Warn("memory: vector index flush failed during retrieve", zap.Error(err))
	}

	matches, err := m.index.Search(ctx, namespaceInteractions, vec, limit)
	if err != nil {
		return nil, err
	}

	cache := m.sessionCache(sessionID)
	out := make([]ScoredInteraction, 0, len(matches))
	for _, match := range matches {
		if float64(match.Score) < threshold {
			continue
		}
		interaction, ok := cache.Get(match.ID)
		if !ok && m.store != nil {
			fetched, err := m.store.FetchInteractionForSession(ctx, sessionID, match.ID)
			if err != nil {
				m.logger.Warn("memory: lazy fetch failed during retrieve",
					zap.String("id", match.ID), zap.Error(err))
				continue
			}
			interaction = fetched
		}
		if interaction == nil {
			continue
		}
		out = append(out, ScoredInteraction{Interaction: interaction, Score: float64(match.Score)})
	}

	sort.Slice(out, func(i, j int) bool {
		if math.Abs(out[i].Score-out[j].Score) > epsilon {
			return out[i].Score > out[j].Score
		}
		ri, rj := out[i].Interaction.Metadata.LastAccessed, out[j].Interaction.Metadata.LastAccessed
		if !ri.Equal(rj) {
			return ri.After(rj)
		}
		return out[i].Interaction.ID < out[j].Interaction.ID
	})
	return out, nil
}
