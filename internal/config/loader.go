package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	maxConfigFileSize = 1024 * 1024 // 1MB
)

// LoadWithFile loads configuration from a YAML file, then overrides with
// environment variables.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (EMBEDDING_PROVIDER, STORE_QUERY_ENDPOINT, etc.)
//  2. YAML config file (~/.config/semem/config.yaml)
//  3. Hardcoded defaults
//
// # Security Considerations
//
// File Permissions: Configuration file MUST have 0600 or 0400 permissions.
// Files with weaker permissions (e.g., 0644 world-readable) are rejected.
//
// Path Validation: Only configuration files in allowed directories can be
// loaded: ~/.config/semem/ (user config) or /etc/semem/ (system-wide).
// Absolute paths outside these directories are rejected.
//
// File Size Limit: Configuration files larger than 1MB are rejected.
//
// # Environment Variable Mapping
//
// Environment variables use underscore separator and are uppercased. The
// transformer maps them to section.field_name, splitting on the first
// underscore:
//
//	EMBEDDING_PROVIDER -> embedding.provider
//	STORE_QUERY_ENDPOINT -> store.query_endpoint
func LoadWithFile(configPath string) (*Config, error) {
	k := koanf.New(".")

	if configPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		configPath = filepath.Join(home, ".config", "semem", "config.yaml")
	}

	if err := validateConfigPath(configPath); err != nil {
		return nil, fmt.Errorf("config path validation failed: %w", err)
	}

	if _, err := os.Stat(configPath); err == nil {
		f, err := os.Open(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open config file: %w", err)
		}
		defer f.Close()

		info, err := f.Stat()
		if err != nil {
			return nil, fmt.Errorf("failed to stat config file: %w", err)
		}
		if err := validateConfigFileProperties(info); err != nil {
			return nil, fmt.Errorf("config file validation failed: %w", err)
		}

		content, err := io.ReadAll(f)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", func(s string) string {
		lower := strings.ToLower(s)
		parts := strings.SplitN(lower, "_", 2)
		if len(parts) == 1 {
			return lower
		}
		return parts[0] + "." + parts[1]
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// EnsureConfigDir creates the semem config directory if it doesn't exist,
// with 0700 permissions (owner read/write/execute only).
func EnsureConfigDir() error {
	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}
	configDir := filepath.Join(home, ".config", "semem")
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory %s: %w", configDir, err)
	}
	return nil
}

// validateConfigPath checks if path is in allowed directories. This
// validation runs even if the file doesn't exist yet.
func validateConfigPath(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	resolvedPath, err := filepath.EvalSymlinks(absPath)
	if err != nil {
		resolvedPath = absPath
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	allowedDirs := []string{
		filepath.Join(home, ".config", "semem"),
		"/etc/semem",
	}

	allowed := false
	for _, dir := range allowedDirs {
		if resolvedPath == dir || strings.HasPrefix(resolvedPath, dir+string(filepath.Separator)) {
			allowed = true
			break
		}
	}
	if !allowed {
		return fmt.Errorf("config file must be in ~/.config/semem/ or /etc/semem/")
	}
	return nil
}

// validateConfigFileProperties checks file permissions and size. Takes
// FileInfo from an already-opened file descriptor to avoid a TOCTOU race.
func validateConfigFileProperties(info os.FileInfo) error {
	if runtime.GOOS != "windows" {
		perm := info.Mode().Perm()
		if perm != 0600 && perm != 0400 {
			return fmt.Errorf("insecure config file permissions: %v (expected 0600 or 0400)", perm)
		}
	}
	if info.Size() > maxConfigFileSize {
		return fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
	}
	return nil
}

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.Observability.ServiceName == "" {
		cfg.Observability.ServiceName = "semem"
	}
	if cfg.Observability.LogLevel == "" {
		cfg.Observability.LogLevel = "info"
	}

	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "http"
	}
	if cfg.Embedding.BaseURL == "" {
		cfg.Embedding.BaseURL = "http://localhost:8080"
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "BAAI/bge-small-en-v1.5"
	}
	if cfg.Embedding.Dimension == 0 {
		cfg.Embedding.Dimension = 384
	}
	if cfg.Embedding.TimeoutSeconds == 0 {
		cfg.Embedding.TimeoutSeconds = 30
	}
	if cfg.Embedding.RequestsPerSecond == 0 {
		cfg.Embedding.RequestsPerSecond = 10
	}
	if cfg.Embedding.Burst == 0 {
		cfg.Embedding.Burst = 5
	}

	if cfg.LLM.AnthropicModel == "" {
		cfg.LLM.AnthropicModel = "claude-sonnet-4-5"
	}
	if cfg.LLM.AnthropicBaseURL == "" {
		cfg.LLM.AnthropicBaseURL = "https://api.anthropic.com"
	}
	if cfg.LLM.AnthropicTimeoutSeconds == 0 {
		cfg.LLM.AnthropicTimeoutSeconds = 30
	}
	if cfg.LLM.AnthropicRequestsPerSecond == 0 {
		cfg.LLM.AnthropicRequestsPerSecond = 5
	}
	if cfg.LLM.AnthropicMaxRetries == 0 {
		cfg.LLM.AnthropicMaxRetries = 2
	}

	if cfg.VectorIndex.FlushDebounceMS == 0 {
		cfg.VectorIndex.FlushDebounceMS = 500
	}

	if cfg.Graph.DecayFactor == 0 {
		cfg.Graph.DecayFactor = 0.995
	}
	if cfg.Graph.DecayIntervalHours == 0 {
		cfg.Graph.DecayIntervalHours = 24
	}
	if cfg.Graph.ActivationHops == 0 {
		cfg.Graph.ActivationHops = 2
	}
	if cfg.Graph.ActivationDecay == 0 {
		cfg.Graph.ActivationDecay = 0.5
	}

	if cfg.Chunker.MaxChunkSize == 0 {
		cfg.Chunker.MaxChunkSize = 2000
	}
	if cfg.Chunker.MinChunkSize == 0 {
		cfg.Chunker.MinChunkSize = 100
	}
	if cfg.Chunker.Overlap == 0 {
		cfg.Chunker.Overlap = 100
	}
	if cfg.Chunker.Strategy == "" {
		cfg.Chunker.Strategy = "semantic"
	}
	if cfg.Chunker.BoundaryWindow == 0 {
		cfg.Chunker.BoundaryWindow = 200
	}

	if cfg.Enhancement.CacheTTLHours == 0 {
		cfg.Enhancement.CacheTTLHours = 24 * 7
	}
	if cfg.Enhancement.MaxRetries == 0 {
		cfg.Enhancement.MaxRetries = 2
	}
	if cfg.Enhancement.RetryBaseDelayMS == 0 {
		cfg.Enhancement.RetryBaseDelayMS = 250
	}
	if cfg.Enhancement.RetryCapDelayMS == 0 {
		cfg.Enhancement.RetryCapDelayMS = 2000
	}
	if cfg.Enhancement.RetryJitter == 0 {
		cfg.Enhancement.RetryJitter = 0.2
	}
	if cfg.Enhancement.PerProviderTimeoutSeconds == 0 {
		cfg.Enhancement.PerProviderTimeoutSeconds = 8
	}
	if cfg.Enhancement.WikipediaBaseURL == "" {
		cfg.Enhancement.WikipediaBaseURL = "https://en.wikipedia.org/w/api.php"
	}
	if cfg.Enhancement.WikidataBaseURL == "" {
		cfg.Enhancement.WikidataBaseURL = "https://www.wikidata.org/w/api.php"
	}

	if cfg.Store.Graph == "" {
		cfg.Store.Graph = "http://semem.dev/graph/default"
	}
	if cfg.Store.QueryEndpoint == "" {
		cfg.Store.QueryEndpoint = "http://localhost:3030/semem/query"
	}
	if cfg.Store.UpdateEndpoint == "" {
		cfg.Store.UpdateEndpoint = "http://localhost:3030/semem/update"
	}
	if cfg.Store.RequestTimeoutSeconds == 0 {
		cfg.Store.RequestTimeoutSeconds = 10
	}
	if cfg.Store.DebounceWindowMS == 0 {
		cfg.Store.DebounceWindowMS = 500
	}
	if cfg.Store.LoadCacheCap == 0 {
		cfg.Store.LoadCacheCap = 10000
	}
	if cfg.Store.ProbeIntervalSeconds == 0 {
		cfg.Store.ProbeIntervalSeconds = 30
	}

	if cfg.ZPT.DefaultZoom == "" {
		cfg.ZPT.DefaultZoom = "entity"
	}
	if cfg.ZPT.DefaultTilt == "" {
		cfg.ZPT.DefaultTilt = "embedding"
	}
	if cfg.ZPT.DefaultRelevanceThreshold == 0 {
		cfg.ZPT.DefaultRelevanceThreshold = 0.3
	}

	if cfg.Session.CacheCapacity == 0 {
		cfg.Session.CacheCapacity = 256
	}

	cfg.Production = loadProductionConfig()
}

// loadProductionConfig loads production configuration from environment
// variables, independent of the YAML/env koanf layering above since these
// flags gate startup safety checks rather than domain behaviour.
func loadProductionConfig() ProductionConfig {
	prodMode := os.Getenv("SEMEM_PRODUCTION_MODE") == "1"
	localMode := os.Getenv("SEMEM_LOCAL_MODE") == "1"

	return ProductionConfig{
		Enabled:               prodMode,
		LocalModeAcknowledged: localMode,
		RequireAuthentication: prodMode && !localMode,
		RequireTLS:            prodMode && !localMode,
		AllowNoIsolation:      false,
	}
}
