// Package embedding implements the Embedding Service: a pluggable provider
// interface (one active provider per deployment, grounded on the teacher's
// TEI HTTP embedding client), strict fixed-dimension validation against the
// dimension the active provider reports, an explicit Adjust for
// model-migration padding/truncation, and cosine similarity. There is no
// model-name to dimension table: the dimension comes from configuration
// through the provider.
package embedding
