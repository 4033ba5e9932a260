package llm

import "context"

// ChatOptions carries tunables for a single chat call.
type ChatOptions struct {
	MaxTokens   int
	Temperature float64
}

// Provider is a single LLM backend capable of chat completion and concept
// extraction.
type Provider interface {
	Chat(ctx context.Context, prompt string, contextItems []string, opts ChatOptions) (string, error)
	ExtractConcepts(ctx context.Context, text string) ([]string, error)
	Name() string
}
