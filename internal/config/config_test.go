package config

import "testing"

func TestConfig_Validate_Defaults(t *testing.T) {
	cfg := &Config{}
	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config failed validation: %v", err)
	}
	if cfg.Embedding.Dimension != 384 {
		t.Errorf("Embedding.Dimension = %d, want 384", cfg.Embedding.Dimension)
	}
	if cfg.Graph.DecayFactor != 0.995 {
		t.Errorf("Graph.DecayFactor = %v, want 0.995", cfg.Graph.DecayFactor)
	}
	if cfg.Chunker.MaxChunkSize != 2000 {
		t.Errorf("Chunker.MaxChunkSize = %d, want 2000", cfg.Chunker.MaxChunkSize)
	}
	if cfg.ZPT.DefaultRelevanceThreshold != 0.3 {
		t.Errorf("ZPT.DefaultRelevanceThreshold = %v, want 0.3", cfg.ZPT.DefaultRelevanceThreshold)
	}
	if cfg.Session.CacheCapacity != 256 {
		t.Errorf("Session.CacheCapacity = %d, want 256", cfg.Session.CacheCapacity)
	}
}

func TestConfig_Validate_RejectsZeroDimension(t *testing.T) {
	cfg := &Config{}
	applyDefaults(cfg)
	cfg.Embedding.Dimension = 0

	if err := cfg.Validate(); err == nil {
		t.Error("expected error for zero embedding dimension, got nil")
	}
}

func TestConfig_Validate_RejectsBadEmbeddingURL(t *testing.T) {
	cfg := &Config{}
	applyDefaults(cfg)
	cfg.Embedding.Provider = "http"
	cfg.Embedding.BaseURL = "ftp://localhost:8080"

	if err := cfg.Validate(); err == nil {
		t.Error("expected error for non-http(s) embedding base_url, got nil")
	}
}

func TestConfig_Validate_RejectsInvertedChunkSizes(t *testing.T) {
	cfg := &Config{}
	applyDefaults(cfg)
	cfg.Chunker.MinChunkSize = 5000
	cfg.Chunker.MaxChunkSize = 2000

	if err := cfg.Validate(); err == nil {
		t.Error("expected error when min_chunk_size exceeds max_chunk_size, got nil")
	}
}

func TestConfig_Validate_RejectsOutOfRangeThreshold(t *testing.T) {
	cfg := &Config{}
	applyDefaults(cfg)
	cfg.ZPT.DefaultRelevanceThreshold = 1.5

	if err := cfg.Validate(); err == nil {
		t.Error("expected error for out-of-range relevance threshold, got nil")
	}
}

func TestConfig_Validate_RejectsTraversalInTemplateDir(t *testing.T) {
	cfg := &Config{}
	applyDefaults(cfg)
	cfg.Store.TemplateDir = "../../etc/templates"

	if err := cfg.Validate(); err == nil {
		t.Error("expected error for path traversal in store.template_dir, got nil")
	}
}

func TestConfig_Validate_TelemetryRequiresServiceName(t *testing.T) {
	cfg := &Config{}
	applyDefaults(cfg)
	cfg.Observability.EnableTelemetry = true
	cfg.Observability.ServiceName = ""

	if err := cfg.Validate(); err == nil {
		t.Error("expected error when telemetry enabled without a service name, got nil")
	}
}

func TestProductionConfig_Validate(t *testing.T) {
	p := ProductionConfig{Enabled: true, AllowNoIsolation: true}
	if err := p.Validate(); err == nil {
		t.Error("expected error for AllowNoIsolation in production mode, got nil")
	}

	p = ProductionConfig{Enabled: true, RequireAuthentication: true, AuthenticationConfigured: false}
	if err := p.Validate(); err == nil {
		t.Error("expected error for unconfigured required authentication, got nil")
	}

	p = ProductionConfig{Enabled: false, AllowNoIsolation: true}
	if err := p.Validate(); err != nil {
		t.Errorf("disabled production mode should skip validation, got: %v", err)
	}
}
