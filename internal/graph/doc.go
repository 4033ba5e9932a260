// Package graph implements the Concept Graph: an undirected, weighted
// adjacency map over extracted concept labels, spreading activation for
// retrieval scoring, and a background decay scheduler. The Start/Stop
// lifecycle and panic-recovered run loop are grounded on the teacher's
// ConsolidationScheduler; the decay schedule is retargeted from memory
// consolidation to edge-weight decay.
package graph
