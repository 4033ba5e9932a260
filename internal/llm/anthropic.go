package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/danja/semem/internal/config"
	"golang.org/x/time/rate"
)

// AnthropicProvider calls the Anthropic messages API. It is grounded on the
// teacher's anthropicSummarizer: a rate.Limiter bounding outbound calls, a
// bounded exponential-backoff retry loop distinguishing retryable from
// permanent failures, and scrubbing of likely secrets from prompts before
// they are sent.
type AnthropicProvider struct {
	apiKey     config.Secret
	model      string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	maxRetries int
}

// AnthropicProviderConfig configures an AnthropicProvider.
type AnthropicProviderConfig struct {
	APIKey            config.Secret
	Model             string
	BaseURL           string
	Timeout           time.Duration
	RequestsPerSecond float64
	MaxRetries        int
}

// NewAnthropicProvider constructs a provider against the Anthropic API.
func NewAnthropicProvider(cfg AnthropicProviderConfig) *AnthropicProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.anthropic.com"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 5
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 2
	}
	return &AnthropicProvider{
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 2),
		maxRetries: cfg.MaxRetries,
	}
}

// Name implements Provider.
func (p *AnthropicProvider) Name() string { return "anthropic:" + p.model }

var secretLikePattern = regexp.MustCompile(`(?i)(api[_-]?key|secret|token|password)\s*[:=]\s*\S+`)

func scrubSecrets(text string) string {
	return secretLikePattern.ReplaceAllString(text, "$1=[REDACTED]")
}

type retryableError struct {
	err error
}

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

// Chat implements Provider.
func (p *AnthropicProvider) Chat(ctx context.Context, prompt string, contextItems []string, opts ChatOptions) (string, error) {
	scrubbedPrompt := scrubSecrets(prompt)
	fullPrompt := scrubbedPrompt
	if len(contextItems) > 0 {
		fullPrompt = strings.Join(contextItems, "\n---\n") + "\n\n" + scrubbedPrompt
	}

	var lastErr error
	backoff := 250 * time.Millisecond
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > 2*time.Second {
				backoff = 2 * time.Second
			}
		}

		text, err := p.doChat(ctx, fullPrompt, opts)
		if err == nil {
			return text, nil
		}
		var re *retryableError
		if !isRetryable(err, &re) {
			return "", err
		}
		lastErr = err
	}
	return "", fmt.Errorf("anthropic: exhausted retries: %w", lastErr)
}

func isRetryable(err error, target **retryableError) bool {
	re, ok := err.(*retryableError)
	if ok {
		*target = re
	}
	return ok
}

func (p *AnthropicProvider) doChat(ctx context.Context, prompt string, opts ChatOptions) (string, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("anthropic: rate limiter: %w", err)
	}

	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	reqBody, err := json.Marshal(map[string]any{
		"model":      p.model,
		"max_tokens": maxTokens,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/messages", bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("anthropic: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", p.apiKey.Value())
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", &retryableError{err: fmt.Errorf("anthropic: request failed: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		limited, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", &retryableError{err: fmt.Errorf("anthropic: status %d: %s", resp.StatusCode, string(limited))}
	}
	if resp.StatusCode != http.StatusOK {
		limited, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("anthropic: status %d: %s", resp.StatusCode, string(limited))
	}

	var parsed struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("anthropic: decode response: %w", err)
	}
	var b strings.Builder
	for _, c := range parsed.Content {
		b.WriteString(c.Text)
	}
	return b.String(), nil
}

// ExtractConcepts implements Provider using a concept-extraction prompt
// against the same chat endpoint, parsing a comma-separated response.
func (p *AnthropicProvider) ExtractConcepts(ctx context.Context, text string) ([]string, error) {
	prompt := "Extract the key concepts from the following text as a comma-separated list, nothing else:\n\n" + scrubSecrets(text)
	reply, err := p.doChat(ctx, prompt, ChatOptions{MaxTokens: 256})
	if err != nil {
		return nil, err
	}
	parts := strings.Split(reply, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out, nil
}
