// Package model defines the durable entities the verb engine manipulates:
// Interactions (and their Chunk/EnhancementRecord variants), ConceptNodes,
// per-session NavigationState, and the SessionCache that fronts the
// Persistent Store.
package model
