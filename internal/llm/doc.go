// Package llm implements the LLM Service: chat completion and concept
// extraction over a typed failover chain of providers, grounded on the
// teacher's Anthropic-calling extraction client (rate limiting, secret
// scrubbing before outbound calls). The chain itself never retries — each
// provider is responsible for its own retry policy — it simply advances to
// the next provider in priority order on failure.
package llm
