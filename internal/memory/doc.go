// Package memory implements the Memory Manager: the store/retrieve/
// processLazy contract of §4.2. It composes the Chunker, Embedding
// Service, LLM Service, Vector Index, Concept Graph, and Persistent Store
// to turn raw content into fully processed Interactions, with a lazy
// fallback guaranteeing durability when a provider is offline. Grounded on
// the teacher's conversation/reasoningbank service shape: an Interaction
// flows through the same store-then-background-process pipeline, just
// for memory instead of coding-session history.
package memory
