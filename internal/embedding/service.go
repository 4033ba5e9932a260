package embedding

import (
	"context"
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"
)

// ErrDimensionMismatch is returned when a provider yields a vector whose
// length does not match the configured model dimension.
var ErrDimensionMismatch = errors.New("embedding: dimension mismatch")

// ErrLengthMismatch is returned by Similarity when its two inputs differ in
// length.
var ErrLengthMismatch = errors.New("embedding: vectors must have identical length")

// Service wraps a single active Provider and enforces the invariant that a
// vector whose length differs from the provider's configured dimension fails
// the enclosing operation — the service never silently pads or truncates
// except via the explicit Adjust function.
type Service struct {
	provider Provider
	dim      int
	logger   *zap.Logger
}

// NewService constructs a Service around provider, using its reported
// Dimension() as the enforced model dimension.
func NewService(provider Provider, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{provider: provider, dim: provider.Dimension(), logger: logger}
}

// Dimension returns the enforced vector length D.
func (s *Service) Dimension() int {
	return s.dim
}

// Generate produces and validates a single embedding.
func (s *Service) Generate(ctx context.Context, text string) ([]float32, error) {
	vec, err := s.provider.Generate(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embedding: %s provider: %w", s.provider.Name(), err)
	}
	if len(vec) != s.dim {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vec), s.dim)
	}
	return vec, nil
}

// GenerateBatch produces and independently validates one embedding per text.
// A dimension failure on one vector is reported per-index; callers decide
// whether to treat that item as pendingProcessing.
func (s *Service) GenerateBatch(ctx context.Context, texts []string) ([][]float32, []error) {
	vecs, err := s.provider.GenerateBatch(ctx, texts)
	if err != nil {
		errs := make([]error, len(texts))
		wrapped := fmt.Errorf("embedding: %s provider: %w", s.provider.Name(), err)
		for i := range errs {
			errs[i] = wrapped
		}
		return make([][]float32, len(texts)), errs
	}

	errs := make([]error, len(vecs))
	for i, v := range vecs {
		if len(v) != s.dim {
			errs[i] = fmt.Errorf("%w at index %d: got %d, want %d", ErrDimensionMismatch, i, len(v), s.dim)
		}
	}
	return vecs, errs
}

// Adjust explicitly pads (with zeros) or truncates vector to length dim. It
// exists solely for migrating between embedding models with different
// dimensions and must never be called implicitly by Generate/GenerateBatch.
func Adjust(vector []float32, dim int) []float32 {
	if len(vector) == dim {
		out := make([]float32, dim)
		copy(out, vector)
		return out
	}
	out := make([]float32, dim)
	copy(out, vector)
	return out
}

// Similarity computes cosine similarity between a and b. Both must have
// identical length.
func Similarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, ErrLengthMismatch
	}
	var dot, normA, normB float64
	for i := range a {
		fa, fb := float64(a[i]), float64(b[i])
		dot += fa * fb
		normA += fa * fa
		normB += fb * fb
	}
	if normA == 0 || normB == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}
