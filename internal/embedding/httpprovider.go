package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// HTTPProvider calls a remote text-embeddings-inference style endpoint:
// POST {baseURL}/embed with {"inputs": [...]} returning a JSON array of
// float arrays. It is grounded on the teacher's TEI HTTP embedding client —
// same request shape, retargeted to this service's Provider interface.
type HTTPProvider struct {
	baseURL    string
	model      string
	dim        int
	httpClient *http.Client
	limiter    *rate.Limiter
}

// HTTPProviderConfig configures an HTTPProvider.
type HTTPProviderConfig struct {
	BaseURL            string
	Model              string
	Dimension          int
	Timeout            time.Duration
	RequestsPerSecond  float64
	Burst              int
}

// NewHTTPProvider constructs a provider against a remote embedding endpoint.
func NewHTTPProvider(cfg HTTPProviderConfig) *HTTPProvider {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 10
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 5
	}
	return &HTTPProvider{
		baseURL:    cfg.BaseURL,
		model:      cfg.Model,
		dim:        cfg.Dimension,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
	}
}

// Name implements Provider.
func (p *HTTPProvider) Name() string { return "http:" + p.model }

// Dimension implements Provider.
func (p *HTTPProvider) Dimension() int { return p.dim }

// Generate implements Provider.
func (p *HTTPProvider) Generate(ctx context.Context, text string) ([]float32, error) {
	vecs, err := p.GenerateBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// GenerateBatch implements Provider.
func (p *HTTPProvider) GenerateBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("embedding: rate limiter: %w", err)
	}

	body, err := json.Marshal(map[string]any{"inputs": texts})
	if err != nil {
		return nil, fmt.Errorf("embedding: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("embedding: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		limited, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("embedding: provider returned status %d: %s", resp.StatusCode, string(limited))
	}

	var vectors [][]float32
	if err := json.NewDecoder(resp.Body).Decode(&vectors); err != nil {
		return nil, fmt.Errorf("embedding: decode response: %w", err)
	}
	return vectors, nil
}
