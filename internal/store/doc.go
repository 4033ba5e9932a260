// Package store implements the Persistent Store: the authoritative RDF
// triple store accessed through a narrow select/construct/update/ask/batch
// abstraction over a generic SPARQL 1.1 Query/Update endpoint pair. No
// SPARQL client library exists in the retrieved corpus, so this package is
// built on net/http and text/template (for the parameterized query
// templates loaded from a template directory at startup — no query text is
// ever concatenated from user input). Liveness probing, degraded-mode
// fallback, per-session debounced writes, and lazy LRU-backed loading are
// grounded on the teacher's health-monitor and sync-manager patterns.
package store
