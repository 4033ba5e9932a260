package retrieval

import (
	"sort"
	"time"

	"github.com/danja/semem/internal/embedding"
	"github.com/danja/semem/internal/model"
	"github.com/danja/semem/internal/zpt"
)

// candidate is one merge-step input: an Interaction plus the four §4.3.1
// signal scores that combine into its final weight.
type candidate struct {
	interaction *model.Interaction
	source      string // "" for personal (not a cited external source)
	personal    float64
	authority   float64
	recency     float64
	zptMatch    float64
	weight      float64
}

// recencyScore is the same inverse-age curve used by zpt's temporal tilt,
// normalized to (0, 1].
func recencyScore(i *model.Interaction, now time.Time) float64 {
	created := i.Metadata.Created
	if created.IsZero() {
		return 0
	}
	age := now.Sub(created)
	if age < 0 {
		age = 0
	}
	return 1.0 / (1.0 + age.Hours()/24.0)
}

// zptMatchScore implements §4.3.1's zpt_match factor: 1.0 when both zoom
// and pan match, 0.5 when exactly one does, 0 otherwise.
func zptMatchScore(i *model.Interaction, state model.NavigationState) float64 {
	zoomOK := zpt.MatchesZoom(i, state.Zoom)
	panOK := zpt.MatchesPan(i, state.Pan)
	switch {
	case zoomOK && panOK:
		return 1.0
	case zoomOK || panOK:
		return 0.5
	default:
		return 0
	}
}

// applyWeights sets every candidate's final weight from w and the
// precomputed per-signal scores.
func applyWeights(candidates []*candidate, w weights) {
	for _, c := range candidates {
		c.weight = w.Personal*c.personal + w.Authority*c.authority +
			w.Recency*c.recency + w.ZPT*c.zptMatch
	}
}

// dedupe removes exact-ID duplicates (keeping the higher-weight copy) and
// collapses near-duplicate content (cosine similarity >= 0.97), per §4.3
// step 5.
func dedupe(candidates []*candidate) []*candidate {
	byID := make(map[string]*candidate, len(candidates))
	order := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if existing, ok := byID[c.interaction.ID]; !ok || c.weight > existing.weight {
			if !ok {
				order = append(order, c.interaction.ID)
			}
			byID[c.interaction.ID] = c
		}
	}

	out := make([]*candidate, 0, len(order))
	for _, id := range order {
		out = append(out, byID[id])
	}

	kept := make([]*candidate, 0, len(out))
	for _, c := range out {
		dupIdx := -1
		for ki, k := range kept {
			if c.interaction.Embedding == nil || k.interaction.Embedding == nil {
				continue
			}
			sim, err := embedding.Similarity(c.interaction.Embedding, k.interaction.Embedding)
			if err == nil && sim >= 0.97 {
				dupIdx = ki
				break
			}
		}
		if dupIdx >= 0 {
			if c.weight > kept[dupIdx].weight {
				kept[dupIdx] = c
			}
			continue
		}
		kept = append(kept, c)
	}
	return kept
}

// rank sorts candidates by (weight desc, id asc), the §4.3.2 determinism
// rule that restores a stable order regardless of enhancement-branch
// response timing.
func rank(candidates []*candidate) {
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].weight != candidates[j].weight {
			return candidates[i].weight > candidates[j].weight
		}
		return candidates[i].interaction.ID < candidates[j].interaction.ID
	})
}
