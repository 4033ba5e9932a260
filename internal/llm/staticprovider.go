package llm

import (
	"context"
	"errors"
	"regexp"
	"strings"
)

// StaticProvider is a deterministic, dependency-free Provider for tests: it
// echoes context items plus the prompt as its "chat" response and extracts
// concepts via simple word tokenization.
type StaticProvider struct {
	name    string
	FailErr error // if set, Chat and ExtractConcepts both return this error
}

// NewStaticProvider returns a StaticProvider identified by name.
func NewStaticProvider(name string) *StaticProvider {
	return &StaticProvider{name: name}
}

// Name implements Provider.
func (p *StaticProvider) Name() string { return p.name }

// Chat implements Provider.
func (p *StaticProvider) Chat(_ context.Context, prompt string, contextItems []string, _ ChatOptions) (string, error) {
	if p.FailErr != nil {
		return "", p.FailErr
	}
	if len(contextItems) == 0 {
		return prompt, nil
	}
	return strings.Join(contextItems, " ") + " | " + prompt, nil
}

var wordPattern = regexp.MustCompile(`[A-Za-z][A-Za-z0-9_-]{2,}`)

// ExtractConcepts implements Provider by tokenizing words of length >= 3.
func (p *StaticProvider) ExtractConcepts(_ context.Context, text string) ([]string, error) {
	if p.FailErr != nil {
		return nil, p.FailErr
	}
	return wordPattern.FindAllString(text, -1), nil
}

// ErrStaticProviderForcedFailure is a convenience sentinel for tests that
// want a named failure reason.
var ErrStaticProviderForcedFailure = errors.New("llm: static provider forced failure")
