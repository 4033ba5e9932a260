package model

import "time"

// ConceptNode is a short labelled token extracted by the LLM Service,
// participating as a vertex in the Concept Graph.
type ConceptNode struct {
	Label       string
	Embedding   []float32
	FirstSeen   time.Time
	Occurrences int
}

// ConceptEdge is an undirected, weighted edge between two concept labels.
// Weight accumulates co-occurrence counts within a single Interaction or
// chunk (invariant 4: symmetric, non-negative integer weight).
type ConceptEdge struct {
	A, B   string
	Weight int
}

// NormalizedPair returns (a, b) in a canonical order so that edge (x, y) and
// edge (y, x) address the same undirected edge.
func NormalizedPair(a, b string) (string, string) {
	if a <= b {
		return a, b
	}
	return b, a
}
