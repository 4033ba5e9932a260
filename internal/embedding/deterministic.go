package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
)

// DeterministicProvider is an in-memory Provider used in tests and for
// migrations: it derives a fixed-dimension vector from a hash of the input
// text, so the same text always yields the same vector without any network
// dependency.
type DeterministicProvider struct {
	dim int
}

// NewDeterministicProvider returns a DeterministicProvider of the given
// dimension.
func NewDeterministicProvider(dim int) *DeterministicProvider {
	return &DeterministicProvider{dim: dim}
}

// Name implements Provider.
func (p *DeterministicProvider) Name() string { return "deterministic" }

// Dimension implements Provider.
func (p *DeterministicProvider) Dimension() int { return p.dim }

// Generate implements Provider.
func (p *DeterministicProvider) Generate(_ context.Context, text string) ([]float32, error) {
	return deterministicVector(text, p.dim), nil
}

// GenerateBatch implements Provider.
func (p *DeterministicProvider) GenerateBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = deterministicVector(t, p.dim)
	}
	return out, nil
}

func deterministicVector(text string, dim int) []float32 {
	vec := make([]float32, dim)
	seed := text
	block := sha256.Sum256([]byte(seed))
	for i := 0; i < dim; i++ {
		if i > 0 && i%len(block) == 0 {
			block = sha256.Sum256(block[:])
		}
		offset := i % (len(block) - 4)
		bits := binary.BigEndian.Uint32(block[offset : offset+4])
		vec[i] = float32(bits%2000)/1000.0 - 1.0 // map into roughly [-1, 1)
	}
	return vec
}
