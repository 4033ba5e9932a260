package llm

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// ErrNoProviders is returned when a Service has no providers configured.
var ErrNoProviders = errors.New("llm: no providers configured")

// ErrAllProvidersFailed is returned by Chat when every provider in the chain
// failed.
var ErrAllProvidersFailed = errors.New("llm: all providers in chain failed")

const maxConceptLength = 64

// Service calls a typed, priority-ordered failover chain of providers. A
// provider failure triggers the next one; the chain itself does not retry.
type Service struct {
	providers []Provider
	logger    *zap.Logger
}

// NewService builds a Service from providers in priority order (first tried
// first).
func NewService(logger *zap.Logger, providers ...Provider) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{providers: providers, logger: logger}
}

// Chat tries each provider in order, returning the first success. If all
// providers fail, it returns ErrAllProvidersFailed wrapping the last error.
func (s *Service) Chat(ctx context.Context, prompt string, contextItems []string, opts ChatOptions) (string, string, error) {
	if len(s.providers) == 0 {
		return "", "", ErrNoProviders
	}

	var lastErr error
	for _, p := range s.providers {
		text, err := p.Chat(ctx, prompt, contextItems, opts)
		if err == nil {
			return text, p.Name(), nil
		}
		s.logger.Warn("llm provider failed, advancing chain",
			zap.String("provider", p.Name()), zap.Error(err))
		lastErr = err
	}
	return "", "", fmt.Errorf("%w: %v", ErrAllProvidersFailed, lastErr)
}

// ExtractConcepts tries each provider in order and returns a normalized
// concept set (lowercase, de-duplicated, trimmed, each ≤ 64 chars). Failure
// across the whole chain is never fatal: it returns an empty set.
func (s *Service) ExtractConcepts(ctx context.Context, text string) []string {
	for _, p := range s.providers {
		raw, err := p.ExtractConcepts(ctx, text)
		if err != nil {
			s.logger.Warn("concept extraction provider failed, advancing chain",
				zap.String("provider", p.Name()), zap.Error(err))
			continue
		}
		return normalizeConcepts(raw)
	}
	return []string{}
}

func normalizeConcepts(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, c := range raw {
		c = strings.ToLower(strings.TrimSpace(c))
		if c == "" {
			continue
		}
		if len(c) > maxConceptLength {
			c = c[:maxConceptLength]
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}
