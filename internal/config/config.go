// Package config provides configuration loading for the semem verb engine.
//
// Configuration is loaded from a YAML file with environment-variable
// overrides and sensible defaults, the same layered precedence the
// teacher's config package uses.
package config

import (
	"errors"
	"fmt"
	"strings"
)

// Config holds the complete semem engine configuration.
type Config struct {
	Production    ProductionConfig
	Observability ObservabilityConfig
	Embedding     EmbeddingConfig
	LLM           LLMConfig
	VectorIndex   VectorIndexConfig
	Graph         GraphConfig
	Chunker       ChunkerConfig
	Enhancement   EnhancementConfig
	Store         StoreConfig
	ZPT           ZPTConfig
	Session       SessionConfig
}

// EmbeddingConfig configures the Embedding Service (§4.6).
type EmbeddingConfig struct {
	// Provider selects the backing implementation: "http" (a remote
	// text-embeddings-inference style endpoint) or "deterministic" (the
	// hash-based test double).
	Provider string `koanf:"provider"`

	BaseURL           string  `koanf:"base_url"`
	Model             string  `koanf:"model"`
	Dimension         int     `koanf:"dimension"`
	TimeoutSeconds    int     `koanf:"timeout_seconds"`
	RequestsPerSecond float64 `koanf:"requests_per_second"`
	Burst             int     `koanf:"burst"`
}

// LLMConfig configures the LLM Service's failover chain (§4.7).
type LLMConfig struct {
	AnthropicAPIKey           Secret  `koanf:"anthropic_api_key"`
	AnthropicModel            string  `koanf:"anthropic_model"`
	AnthropicBaseURL          string  `koanf:"anthropic_base_url"`
	AnthropicTimeoutSeconds   int     `koanf:"anthropic_timeout_seconds"`
	AnthropicRequestsPerSecond float64 `koanf:"anthropic_requests_per_second"`
	AnthropicMaxRetries       int     `koanf:"anthropic_max_retries"`

	// EnableStaticFallback appends the deterministic StaticProvider to the
	// end of the chain, so the engine degrades to canned responses rather
	// than failing outright when every real provider is unreachable.
	EnableStaticFallback bool `koanf:"enable_static_fallback"`
}

// VectorIndexConfig configures the Vector Index (§4.8).
type VectorIndexConfig struct {
	FlushDebounceMS int `koanf:"flush_debounce_ms"`
}

// GraphConfig configures the Concept Graph (§4.8) and its decay scheduler.
type GraphConfig struct {
	// DecayFactor and DecayIntervalHours answer Open Question 2: the
	// spec's defensible default (daily, ×0.995), overridable per operator.
	DecayFactor         float64 `koanf:"decay_factor"`
	DecayIntervalHours  int     `koanf:"decay_interval_hours"`
	ActivationHops      int     `koanf:"activation_hops"`
	ActivationDecay     float64 `koanf:"activation_decay"`
}

// ChunkerConfig configures the Chunker (§4.5).
type ChunkerConfig struct {
	MaxChunkSize   int    `koanf:"max_chunk_size"`
	MinChunkSize   int    `koanf:"min_chunk_size"`
	Overlap        int    `koanf:"overlap"`
	Strategy       string `koanf:"strategy"`
	BoundaryWindow int    `koanf:"boundary_window"`
}

// EnhancementConfig configures the Enhancement Coordinator (§4.4).
type EnhancementConfig struct {
	CacheTTLHours            int     `koanf:"cache_ttl_hours"`
	MaxRetries               int     `koanf:"max_retries"`
	RetryBaseDelayMS         int     `koanf:"retry_base_delay_ms"`
	RetryCapDelayMS          int     `koanf:"retry_cap_delay_ms"`
	RetryJitter              float64 `koanf:"retry_jitter"`
	PerProviderTimeoutSeconds int    `koanf:"per_provider_timeout_seconds"`

	WikipediaBaseURL string `koanf:"wikipedia_base_url"`
	WikidataBaseURL  string `koanf:"wikidata_base_url"`
	HypotheticalEnabled bool `koanf:"hypothetical_enabled"`
}

// StoreConfig configures the Persistent Store (§4.10).
type StoreConfig struct {
	QueryEndpoint         string `koanf:"query_endpoint"`
	UpdateEndpoint        string `koanf:"update_endpoint"`
	Graph                 string `koanf:"graph"`
	TemplateDir           string `koanf:"template_dir"`
	RequestTimeoutSeconds int    `koanf:"request_timeout_seconds"`
	DebounceWindowMS      int    `koanf:"debounce_window_ms"`
	LoadCacheCap          int    `koanf:"load_cache_cap"`
	ProbeIntervalSeconds  int    `koanf:"probe_interval_seconds"`
}

// ZPTConfig configures the default NavigationState every new session starts
// from (§4.9).
type ZPTConfig struct {
	DefaultZoom               string  `koanf:"default_zoom"`
	DefaultTilt               string  `koanf:"default_tilt"`
	DefaultRelevanceThreshold float64 `koanf:"default_relevance_threshold"`
}

// SessionConfig configures per-session resource limits.
type SessionConfig struct {
	CacheCapacity int `koanf:"cache_capacity"`
}

// ObservabilityConfig holds OpenTelemetry/logging configuration.
type ObservabilityConfig struct {
	EnableTelemetry   bool   `koanf:"enable_telemetry"`
	ServiceName       string `koanf:"service_name"`
	OTLPEndpoint      string `koanf:"otlp_endpoint"`
	OTLPProtocol      string `koanf:"otlp_protocol"`
	OTLPInsecure      bool   `koanf:"otlp_insecure"`
	OTLPTLSSkipVerify bool   `koanf:"otlp_tls_skip_verify"`
	LogLevel          string `koanf:"log_level"`
}

// ProductionConfig holds production deployment safety checks, grounded on
// the teacher's own production-mode gate.
type ProductionConfig struct {
	Enabled                  bool `koanf:"enabled"`
	LocalModeAcknowledged    bool `koanf:"local_mode_acknowledged"`
	RequireAuthentication    bool `koanf:"require_authentication"`
	AuthenticationConfigured bool `koanf:"authentication_configured"`
	RequireTLS               bool `koanf:"require_tls"`
	AllowNoIsolation         bool `koanf:"allow_no_isolation"`
}

// IsProduction returns true if running in production mode.
func (c *ProductionConfig) IsProduction() bool {
	return c.Enabled
}

// IsLocal returns true if local mode is acknowledged.
func (c *ProductionConfig) IsLocal() bool {
	return c.LocalModeAcknowledged
}

// Validate checks production configuration for security issues.
func (c *ProductionConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.AllowNoIsolation {
		return errors.New("SECURITY: NoIsolation mode cannot be enabled in production")
	}
	if c.RequireAuthentication && !c.AuthenticationConfigured {
		return errors.New("SECURITY: RequireAuthentication enabled but authentication not configured")
	}
	return nil
}

// Validate validates the configuration end to end.
func (c *Config) Validate() error {
	if c.Observability.EnableTelemetry && c.Observability.ServiceName == "" {
		return errors.New("service name required when telemetry is enabled")
	}

	if c.Embedding.Dimension <= 0 {
		return fmt.Errorf("embedding dimension must be positive, got %d", c.Embedding.Dimension)
	}
	if c.Embedding.Provider == "http" {
		if err := validateURL(c.Embedding.BaseURL); err != nil {
			return fmt.Errorf("invalid embedding base_url: %w", err)
		}
	}

	if c.Chunker.MinChunkSize > 0 && c.Chunker.MaxChunkSize > 0 && c.Chunker.MinChunkSize > c.Chunker.MaxChunkSize {
		return fmt.Errorf("chunker min_chunk_size (%d) exceeds max_chunk_size (%d)", c.Chunker.MinChunkSize, c.Chunker.MaxChunkSize)
	}

	if c.Enhancement.WikipediaBaseURL != "" {
		if err := validateURL(c.Enhancement.WikipediaBaseURL); err != nil {
			return fmt.Errorf("invalid enhancement wikipedia_base_url: %w", err)
		}
	}
	if c.Enhancement.WikidataBaseURL != "" {
		if err := validateURL(c.Enhancement.WikidataBaseURL); err != nil {
			return fmt.Errorf("invalid enhancement wikidata_base_url: %w", err)
		}
	}

	if c.Store.QueryEndpoint != "" {
		if err := validateURL(c.Store.QueryEndpoint); err != nil {
			return fmt.Errorf("invalid store query_endpoint: %w", err)
		}
	}
	if c.Store.UpdateEndpoint != "" {
		if err := validateURL(c.Store.UpdateEndpoint); err != nil {
			return fmt.Errorf("invalid store update_endpoint: %w", err)
		}
	}
	if c.Store.TemplateDir != "" {
		if err := validatePath(c.Store.TemplateDir); err != nil {
			return fmt.Errorf("invalid store template_dir: %w", err)
		}
	}

	if c.ZPT.DefaultRelevanceThreshold < 0 || c.ZPT.DefaultRelevanceThreshold > 1 {
		return fmt.Errorf("zpt default_relevance_threshold must be in [0,1], got %f", c.ZPT.DefaultRelevanceThreshold)
	}

	if err := c.Production.Validate(); err != nil {
		return fmt.Errorf("production config validation failed: %w", err)
	}

	return nil
}

// validatePath checks if a path is safe (no path traversal).
func validatePath(path string) error {
	if strings.Contains(path, "..") {
		return fmt.Errorf("path contains traversal sequence: %s", path)
	}
	return nil
}

// validateURL checks if a URL uses allowed schemes (http/https only).
func validateURL(urlStr string) error {
	if !strings.HasPrefix(urlStr, "http://") && !strings.HasPrefix(urlStr, "https://") {
		return fmt.Errorf("URL must use http:// or https:// scheme, got: %s", urlStr)
	}
	return nil
}
