package embedding

import "context"

// Provider generates embedding vectors for text. Implementations are free to
// call a local model or a remote API; the Service enforces dimension
// validation uniformly regardless of provider.
type Provider interface {
	// Generate returns the embedding vector for a single piece of text.
	Generate(ctx context.Context, text string) ([]float32, error)

	// GenerateBatch returns one vector per input text, in order. Each vector
	// is validated independently by the Service — a single bad vector does
	// not invalidate the rest of the batch's successfully generated ones.
	GenerateBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension reports the vector length this provider produces.
	Dimension() int

	// Name identifies the provider for logging and diagnostics.
	Name() string
}
