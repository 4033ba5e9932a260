package zpt

import "github.com/danja/semem/internal/model"

// Query carries the retrieval request's text and (if already computed)
// embedding, used by the embedding/keywords/temporal tilt scorers.
type Query struct {
	Text      string
	Embedding []float32
}

// ScoredCandidate is an Interaction annotated with the ZPT score computed
// by applyTo for the active NavigationState.
type ScoredCandidate struct {
	Interaction *model.Interaction
	Score       float64
}
