// Package openai implements the Embedder interface against an
// OpenAI-compatible embeddings endpoint, including Azure OpenAI deployments.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"docsearch/internal/domain"
)

var _ domain.Embedder = (*Client)(nil)

// Client calls a remote embeddings endpoint, one request per Embed call.
// Transient provider failures (429, 5xx, transport errors) are retried with
// exponential backoff; everything else propagates with its cause.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	apiVersion string
	dimensions int
	maxRetries int
	client     *http.Client
	log        *slog.Logger
}

// Config configures the embeddings client. APIVersion switches the client
// into Azure mode: the key goes into the api-key header and the version into
// the query string, with Model naming the deployment.
type Config struct {
	BaseURL    string
	APIKeyEnv  string
	Model      string
	APIVersion string
	Dimensions int
	MaxRetries int
	Timeout    time.Duration
}

// NewClient creates an embeddings client from the given configuration.
// Dimensions is required; every response vector is checked against it.
func NewClient(cfg Config, log *slog.Logger) (*Client, error) {
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("embedding dimensions must be positive, got %d", cfg.Dimensions)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "text-embedding-3-small"
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	t := cfg.Timeout
	if t == 0 {
		t = 30 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     key,
		model:      cfg.Model,
		apiVersion: cfg.APIVersion,
		dimensions: cfg.Dimensions,
		maxRetries: cfg.MaxRetries,
		client:     &http.Client{Timeout: t},
		log:        log,
	}, nil
}

// Dimensions returns the configured embedding vector size.
func (c *Client) Dimensions() int { return c.dimensions }

// Embed returns the embedding vector for text. Empty or whitespace-only
// input is rejected locally before any provider call.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("embed: %w", domain.ErrInvalidInput)
	}
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		vector, retryAfter, retryable, err := c.embedOnce(ctx, text)
		if err == nil {
			if len(vector) != c.dimensions {
				return nil, fmt.Errorf("embedding provider returned %d dimensions, want %d", len(vector), c.dimensions)
			}
			return vector, nil
		}
		lastErr = err
		if !retryable || attempt == c.maxRetries {
			break
		}
		// A server-advertised Retry-After replaces the computed backoff.
		delay := retryDelay(attempt)
		if retryAfter > 0 {
			delay = retryAfter
		}
		c.log.Warn("embedding call failed, retrying", "attempt", attempt+1, "delay", delay, "error", err)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, fmt.Errorf("embedding provider: %w", lastErr)
}

func (c *Client) embedOnce(ctx context.Context, text string) (vector []float32, retryAfter time.Duration, retryable bool, err error) {
	type reqBody struct {
		Input []string `json:"input"`
		Model string   `json:"model"`
	}
	data, err := json.Marshal(reqBody{Input: []string{text}, Model: c.model})
	if err != nil {
		return nil, 0, false, err
	}
	url := c.baseURL + "/embeddings"
	if c.apiVersion != "" {
		url += "?api-version=" + c.apiVersion
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, 0, false, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiVersion != "" {
		req.Header.Set("api-key", c.apiKey)
	} else {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, 0, true, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		if secs, convErr := strconv.Atoi(resp.Header.Get("Retry-After")); convErr == nil && secs > 0 {
			retryAfter = time.Duration(secs) * time.Second
		}
		return nil, retryAfter, true, fmt.Errorf("embeddings request failed: %s", resp.Status)
	}
	if resp.StatusCode >= 300 {
		return nil, 0, false, fmt.Errorf("embeddings request failed: %s", resp.Status)
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, true, err
	}
	var out struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, 0, false, err
	}
	if len(out.Data) == 0 || len(out.Data[0].Embedding) == 0 {
		return nil, 0, false, errors.New("no embedding returned")
	}
	return out.Data[0].Embedding, 0, false, nil
}

func retryDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	base := 200 * time.Millisecond
	d := base << attempt
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	// jitter up to 25% so concurrent workers do not retry in lockstep
	return d + time.Duration(rand.Int63n(int64(d)/4+1))
}
