package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfidence_HigherInputsYieldHigherConfidence(t *testing.T) {
	low := Confidence(0.1, 0.1)
	high := Confidence(0.9, 0.9)

	assert.Less(t, low, high)
	assert.GreaterOrEqual(t, low, 0.0)
	assert.LessOrEqual(t, high, 1.0)
}

func TestConfidence_ClampsOutOfRangeInputs(t *testing.T) {
	assert.Equal(t, Confidence(0, 0), Confidence(-5, -5))
	assert.Equal(t, Confidence(1, 1), Confidence(5, 5))
}
