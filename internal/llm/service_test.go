package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestService_ChatFailsOverToNextProvider(t *testing.T) {
	primary := NewStaticProvider("primary")
	primary.FailErr = ErrStaticProviderForcedFailure
	secondary := NewStaticProvider("secondary")

	svc := NewService(nil, primary, secondary)

	text, usedProvider, err := svc.Chat(context.Background(), "hello", nil, ChatOptions{})
	require.NoError(t, err)
	assert.Equal(t, "secondary", usedProvider)
	assert.Equal(t, "hello", text)
}

func TestService_ChatReturnsErrorWhenAllProvidersFail(t *testing.T) {
	p1 := NewStaticProvider("p1")
	p1.FailErr = ErrStaticProviderForcedFailure
	p2 := NewStaticProvider("p2")
	p2.FailErr = ErrStaticProviderForcedFailure

	svc := NewService(nil, p1, p2)

	_, _, err := svc.Chat(context.Background(), "hello", nil, ChatOptions{})
	assert.ErrorIs(t, err, ErrAllProvidersFailed)
}

func TestService_ExtractConceptsNeverFatal(t *testing.T) {
	p1 := NewStaticProvider("p1")
	p1.FailErr = ErrStaticProviderForcedFailure
	p2 := NewStaticProvider("p2")
	p2.FailErr = ErrStaticProviderForcedFailure

	svc := NewService(nil, p1, p2)

	concepts := svc.ExtractConcepts(context.Background(), "anything")
	assert.Empty(t, concepts)
}

func TestService_ExtractConceptsNormalizes(t *testing.T) {
	p := NewStaticProvider("p")
	svc := NewService(nil, p)

	concepts := svc.ExtractConcepts(context.Background(), "Mitochondria Mitochondria cellular respiration")
	assert.Contains(t, concepts, "mitochondria")
	assert.Contains(t, concepts, "cellular")
	// deduplicated: only one "mitochondria" entry
	count := 0
	for _, c := range concepts {
		if c == "mitochondria" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestNormalizeConcepts_TrimsLength(t *testing.T) {
	long := ""
	for i := 0; i < 100; i++ {
		long += "a"
	}
	out := normalizeConcepts([]string{long})
	require.Len(t, out, 1)
	assert.LessOrEqual(t, len(out[0]), maxConceptLength)
}
