package enhancement

import (
	"context"

	"github.com/danja/semem/internal/model"
)

// Provider is a single external-knowledge source consulted by the
// Enhancement Coordinator: factual lookup, encyclopedic lookup, or
// hypothetical (LLM-generated "as-if" answer) expansion.
type Provider interface {
	Name() model.EnhancementProvider
	Lookup(ctx context.Context, question string) (string, error)
}
