package embedding

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestService_GenerateValidatesDimension(t *testing.T) {
	svc := NewService(NewDeterministicProvider(8), nil)

	vec, err := svc.Generate(context.Background(), "hello world")
	require.NoError(t, err)
	assert.Len(t, vec, 8)
	assert.Equal(t, 8, svc.Dimension())
}

func TestService_GenerateBatchReportsPerIndexErrors(t *testing.T) {
	svc := NewService(NewDeterministicProvider(4), nil)

	vecs, errs := svc.GenerateBatch(context.Background(), []string{"a", "b", "c"})
	require.Len(t, vecs, 3)
	require.Len(t, errs, 3)
	for _, e := range errs {
		assert.NoError(t, e)
	}
}

func TestAdjust_PadsAndTruncates(t *testing.T) {
	padded := Adjust([]float32{1, 2}, 4)
	assert.Equal(t, []float32{1, 2, 0, 0}, padded)

	truncated := Adjust([]float32{1, 2, 3, 4}, 2)
	assert.Equal(t, []float32{1, 2}, truncated)
}

func TestSimilarity(t *testing.T) {
	sim, err := Similarity([]float32{1, 0}, []float32{1, 0})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, sim, 1e-9)

	sim, err = Similarity([]float32{1, 0}, []float32{0, 1})
	require.NoError(t, err)
	assert.InDelta(t, 0.0, sim, 1e-9)

	_, err = Similarity([]float32{1}, []float32{1, 2})
	assert.ErrorIs(t, err, ErrLengthMismatch)
}

func TestDeterministicProvider_SameTextSameVector(t *testing.T) {
	p := NewDeterministicProvider(16)
	v1, err := p.Generate(context.Background(), "concept: mitochondria")
	require.NoError(t, err)
	v2, err := p.Generate(context.Background(), "concept: mitochondria")
	require.NoError(t, err)
	assert.Equal(t, v1, v2)
}
