package enhancement

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/danja/semem/internal/model"
)

// HTTPProvider implements Provider against a generic GET-based lookup
// endpoint, used for the factual and encyclopedic providers (structured
// knowledge-base and article-snippet sources respectively). Grounded on
// the HTTP-transport shape already used by embedding.HTTPProvider.
type HTTPProvider struct {
	name       model.EnhancementProvider
	baseURL    string
	httpClient *http.Client
}

// HTTPProviderConfig configures an HTTPProvider.
type HTTPProviderConfig struct {
	Name    model.EnhancementProvider
	BaseURL string
	Timeout time.Duration
}

// NewHTTPProvider constructs an HTTPProvider.
func NewHTTPProvider(cfg HTTPProviderConfig) *HTTPProvider {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 8 * time.Second
	}
	return &HTTPProvider{
		name:       cfg.Name,
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// Name implements Provider.
func (p *HTTPProvider) Name() model.EnhancementProvider { return p.name }

// Lookup implements Provider, issuing GET {baseURL}?q=<question> and
// decoding a {"answer": "..."} JSON body.
func (p *HTTPProvider) Lookup(ctx context.Context, question string) (string, error) {
	endpoint := p.baseURL + "?q=" + url.QueryEscape(question)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("enhancement: %s: build request: %w", p.name, err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("enhancement: %s: request failed: %w", p.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("enhancement: %s: status %d", p.name, resp.StatusCode)
	}

	var parsed struct {
		Answer string `json:"answer"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("enhancement: %s: decode response: %w", p.name, err)
	}
	return parsed.Answer, nil
}
