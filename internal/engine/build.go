package engine

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/danja/semem/internal/config"
	"github.com/danja/semem/internal/embedding"
	"github.com/danja/semem/internal/enhancement"
	"github.com/danja/semem/internal/llm"
	"github.com/danja/semem/internal/model"
)

func msDuration(ms int) time.Duration       { return time.Duration(ms) * time.Millisecond }
func secDuration(sec int) time.Duration     { return time.Duration(sec) * time.Second }
func hoursDuration(hours int) time.Duration { return time.Duration(hours) * time.Hour }

// buildEmbeddings constructs the Embedding Service's active provider per
// cfg.Embedding.Provider: "http" against a remote TEI-style endpoint, or
// "deterministic" for the hash-based test double used when no real
// embedding backend is configured.
func buildEmbeddings(cfg *config.Config, logger *zap.Logger) (*embedding.Service, error) {
	switch cfg.Embedding.Provider {
	case "", "deterministic":
		dim := cfg.Embedding.Dimension
		if dim <= 0 {
			dim = 768
		}
		return embedding.NewService(embedding.NewDeterministicProvider(dim), logger), nil
	case "http":
		provider := embedding.NewHTTPProvider(embedding.HTTPProviderConfig{
			BaseURL:           cfg.Embedding.BaseURL,
			Model:             cfg.Embedding.Model,
			Dimension:         cfg.Embedding.Dimension,
			Timeout:           secDuration(cfg.Embedding.TimeoutSeconds),
			RequestsPerSecond: cfg.Embedding.RequestsPerSecond,
			Burst:             cfg.Embedding.Burst,
		})
		return embedding.NewService(provider, logger), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Embedding.Provider)
	}
}

// buildLLM constructs the LLM Service's failover chain: the Anthropic
// provider first (when an API key is configured), then the deterministic
// StaticProvider last when EnableStaticFallback is set, so the engine
// degrades to canned responses instead of failing outright (§4.7).
func buildLLM(cfg *config.Config, logger *zap.Logger) *llm.Service {
	var providers []llm.Provider
	if cfg.LLM.AnthropicAPIKey.IsSet() {
		providers = append(providers, llm.NewAnthropicProvider(llm.AnthropicProviderConfig{
			APIKey:            cfg.LLM.AnthropicAPIKey,
			Model:             cfg.LLM.AnthropicModel,
			BaseURL:           cfg.LLM.AnthropicBaseURL,
			Timeout:           secDuration(cfg.LLM.AnthropicTimeoutSeconds),
			RequestsPerSecond: cfg.LLM.AnthropicRequestsPerSecond,
			MaxRetries:        cfg.LLM.AnthropicMaxRetries,
		}))
	}
	if cfg.LLM.EnableStaticFallback || len(providers) == 0 {
		providers = append(providers, llm.NewStaticProvider("static-fallback"))
	}
	return llm.NewService(logger, providers...)
}

// buildEnhancer constructs the Enhancement Coordinator's three providers
// (§4.4): factual and encyclopedic lookups over configured HTTP endpoints,
// and the hypothetical-expansion provider over the LLM Service. The
// hypothetical provider is registered only when
// Enhancement.HypotheticalEnabled is set; factual/encyclopedic
// registration follows whether an endpoint is configured at all.
func buildEnhancer(cfg *config.Config, llmService *llm.Service, embeddings *embedding.Service, logger *zap.Logger) *enhancement.Coordinator {
	timeout := secDuration(cfg.Enhancement.PerProviderTimeoutSeconds)

	var providers []enhancement.Provider
	if cfg.Enhancement.WikidataBaseURL != "" {
		providers = append(providers, enhancement.NewHTTPProvider(enhancement.HTTPProviderConfig{
			Name:    model.ProviderFactual,
			BaseURL: cfg.Enhancement.WikidataBaseURL,
			Timeout: timeout,
		}))
	}
	if cfg.Enhancement.WikipediaBaseURL != "" {
		providers = append(providers, enhancement.NewHTTPProvider(enhancement.HTTPProviderConfig{
			Name:    model.ProviderEncyclopedic,
			BaseURL: cfg.Enhancement.WikipediaBaseURL,
			Timeout: timeout,
		}))
	}
	if cfg.Enhancement.HypotheticalEnabled {
		providers = append(providers, enhancement.NewHypotheticalProvider(llmService))
	}

	return enhancement.New(providers, embeddings, logger, enhancement.Options{
		CacheTTL:           hoursDuration(cfg.Enhancement.CacheTTLHours),
		MaxRetries:         cfg.Enhancement.MaxRetries,
		RetryBaseDelay:     msDuration(cfg.Enhancement.RetryBaseDelayMS),
		RetryCapDelay:      msDuration(cfg.Enhancement.RetryCapDelayMS),
		RetryJitter:        cfg.Enhancement.RetryJitter,
		PerProviderTimeout: timeout,
	})
}
