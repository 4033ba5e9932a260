package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidateEmbeddingDimension(t *testing.T) {
	tests := []struct {
		name    string
		vec     []float32
		dim     int
		wantErr bool
	}{
		{"matches", []float32{1, 2, 3}, 3, false},
		{"too short", []float32{1, 2}, 3, true},
		{"too long", []float32{1, 2, 3, 4}, 3, true},
		{"empty wants zero", nil, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEmbeddingDimension(tt.vec, tt.dim)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateChunkReconstruction(t *testing.T) {
	parent := "hello world, this is a test document."

	err := ValidateChunkReconstruction(parent, "world, this", 6, 11)
	assert.NoError(t, err)

	err = ValidateChunkReconstruction(parent, "wrong text", 6, 11)
	assert.Error(t, err)

	err = ValidateChunkReconstruction(parent, "overflow", len(parent)-2, 10)
	assert.Error(t, err)
}

func TestNewID_StableForSameInputs(t *testing.T) {
	id1 := NewID(KindEnhancement, "wikipedia", "capital of france")
	id2 := NewID(KindEnhancement, "wikipedia", "capital of france")
	id3 := NewID(KindEnhancement, "wikidata", "capital of france")

	assert.Equal(t, id1, id2)
	assert.NotEqual(t, id1, id3)
}

func TestEnhancementInfo_Expired(t *testing.T) {
	now := time.Now()
	e := &EnhancementInfo{CacheTTL: 0}
	assert.False(t, e.Expired(now))

	e2 := &EnhancementInfo{CacheTTL: time.Second, CachedAt: now.Add(-2 * time.Second)}
	assert.True(t, e2.Expired(now))
}

func TestInteraction_Content(t *testing.T) {
	tellStored := &Interaction{Prompt: "Mitochondria produce ATP."}
	assert.Equal(t, "Mitochondria produce ATP.", tellStored.Content())

	enhancement := &Interaction{Prompt: "capital of france", Response: "Paris is the capital of France."}
	assert.Equal(t, "Paris is the capital of France.", enhancement.Content())
}
