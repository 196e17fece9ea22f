// Package textgen is an HTTP client for the narrative generation service.
// The service wraps a language model behind a JSON API; every response is
// treated as untrusted until the caller validates its shape.
package textgen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/alanyoungcy/babylonsim/internal/domain"
)

// rateLimitKey identifies the shared limit bucket for generation calls.
const rateLimitKey = "generation"

// Client talks to the generation service over HTTP.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	limiter    domain.RateLimiter
}

// Option customizes a Client.
type Option func(*Client)

// WithRateLimiter throttles outbound generation calls through the given
// limiter. Without it the client calls the service unthrottled.
func WithRateLimiter(rl domain.RateLimiter) Option {
	return func(c *Client) { c.limiter = rl }
}

// NewClient creates a generation client for the given endpoint.
func NewClient(baseURL, apiKey, model string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  strings.TrimSpace(apiKey),
		model:   model,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// generateRequest is the request envelope for the /v1/generate endpoint.
type generateRequest struct {
	Model       string  `json:"model,omitempty"`
	Prompt      string  `json:"prompt"`
	SchemaHint  string  `json:"schema_hint,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
	Format      string  `json:"format"`
}

// generateResponse is the response envelope.
type generateResponse struct {
	Content json.RawMessage `json:"content"`
	Error   string          `json:"error,omitempty"`
}

// GenerateJSON sends a prompt to the generation service and returns the raw
// JSON content of the response. Callers must decode and validate the shape
// before trusting any field.
func (c *Client) GenerateJSON(ctx context.Context, prompt string, opts domain.GenerateOpts) (json.RawMessage, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, rateLimitKey); err != nil {
			return nil, fmt.Errorf("textgen: rate limit: %w", err)
		}
	}

	reqBody := generateRequest{
		Model:       c.model,
		Prompt:      prompt,
		SchemaHint:  opts.SchemaHint,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
		Format:      "json",
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("textgen: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/generate", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("textgen: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("textgen: http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("textgen: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("textgen: HTTP %d: %s", resp.StatusCode, string(body))
	}

	var genResp generateResponse
	if err := json.Unmarshal(body, &genResp); err != nil {
		return nil, fmt.Errorf("textgen: decode response: %w", err)
	}

	if genResp.Error != "" {
		return nil, fmt.Errorf("textgen: service error: %s", genResp.Error)
	}
	if len(genResp.Content) == 0 {
		return nil, fmt.Errorf("textgen: empty content in response")
	}

	return genResp.Content, nil
}

// Compile-time interface check.
var _ domain.TextGenerator = (*Client)(nil)
