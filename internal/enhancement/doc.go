// Package enhancement implements the Enhancement Coordinator: cached,
// retried calls out to factual, encyclopedic, and hypothetical-expansion
// providers, producing EnhancementRecord interactions. The cache-then-
// retry-with-backoff shape is grounded on the teacher's extraction/llm.go
// provider calls; the circuit-breaker-style failure containment is
// grounded on the teacher's vectorstore/sync.go SyncManager.
package enhancement
