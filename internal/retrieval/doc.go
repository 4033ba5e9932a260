// Package retrieval implements the Hybrid Retriever (§4.3): the ask-path
// orchestration that fans out a local personal-memory branch and an
// external-enhancement branch concurrently, merges the two by a
// question-class-dependent weighting policy, and hands the merged context
// to the LLM Service for a grounded answer.
package retrieval
