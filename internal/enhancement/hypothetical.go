package enhancement

import (
	"context"
	"fmt"

	"github.com/danja/semem/internal/llm"
	"github.com/danja/semem/internal/model"
)

// HypotheticalProvider generates an "as-if" answer to question via an LLM
// chat call and returns it as the lookup result. Per §4.4 its record must
// never be surfaced as a cited source by callers — it exists only to seed
// an augmented local-branch search round.
type HypotheticalProvider struct {
	chat *llm.Service
}

// NewHypotheticalProvider constructs a HypotheticalProvider over an LLM
// service.
func NewHypotheticalProvider(chat *llm.Service) *HypotheticalProvider {
	return &HypotheticalProvider{chat: chat}
}

// Name implements Provider.
func (p *HypotheticalProvider) Name() model.EnhancementProvider {
	return model.ProviderHypothetical
}

// Lookup implements Provider.
func (p *HypotheticalProvider) Lookup(ctx context.Context, question string) (string, error) {
	prompt := fmt.Sprintf("Write a brief hypothetical answer, as if you knew the answer, to: %s", question)
	text, _, err := p.chat.Chat(ctx, prompt, nil, llm.ChatOptions{MaxTokens: 256})
	if err != nil {
		return "", fmt.Errorf("enhancement: hypothetical expansion: %w", err)
	}
	return text, nil
}
