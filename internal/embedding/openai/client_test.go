package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docsearch/internal/domain"
)

func embeddingHandler(t *testing.T, dims int, calls *atomic.Int64) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		var req struct {
			Input []string `json:"input"`
			Model string   `json:"model"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Input, 1)

		vector := make([]float32, dims)
		for i := range vector {
			vector[i] = float32(i)
		}
		resp := map[string]any{
			"data": []map[string]any{{"embedding": vector}},
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}
}

func newTestClient(t *testing.T, baseURL string, dims int) *Client {
	t.Helper()
	t.Setenv("TEST_EMBED_KEY", "secret")
	c, err := NewClient(Config{
		BaseURL:    baseURL,
		APIKeyEnv:  "TEST_EMBED_KEY",
		Dimensions: dims,
		MaxRetries: 2,
	}, nil)
	require.NoError(t, err)
	return c
}

func TestEmbedReturnsConfiguredDimensions(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(embeddingHandler(t, 8, &calls))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 8)
	vector, err := c.Embed(context.Background(), "some text")
	require.NoError(t, err)
	assert.Len(t, vector, 8)
	assert.Equal(t, int64(1), calls.Load())
}

func TestEmbedRejectsEmptyInputWithoutProviderCall(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(embeddingHandler(t, 8, &calls))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 8)
	for _, input := range []string{"", "   ", "\n\t "} {
		_, err := c.Embed(context.Background(), input)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	}
	assert.Equal(t, int64(0), calls.Load())
}

func TestEmbedDimensionMismatch(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(embeddingHandler(t, 4, &calls))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 8)
	_, err := c.Embed(context.Background(), "some text")
	assert.ErrorContains(t, err, "dimensions")
}

func TestEmbedRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int64
	inner := embeddingHandler(t, 8, &calls)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Load() == 0 {
			calls.Add(1)
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		inner(w, r)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 8)
	vector, err := c.Embed(context.Background(), "retry me")
	require.NoError(t, err)
	assert.Len(t, vector, 8)
	assert.Equal(t, int64(2), calls.Load())
}

func TestEmbedHonorsRetryAfterDelay(t *testing.T) {
	var calls atomic.Int64
	inner := embeddingHandler(t, 8, &calls)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Load() == 0 {
			calls.Add(1)
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		inner(w, r)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 8)
	start := time.Now()
	vector, err := c.Embed(context.Background(), "throttle me")
	require.NoError(t, err)
	assert.Len(t, vector, 8)
	assert.Equal(t, int64(2), calls.Load())
	assert.GreaterOrEqual(t, time.Since(start), time.Second)
}

func TestEmbedDoesNotSleepWhenOutOfAttempts(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Retry-After", "5")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	t.Setenv("TEST_EMBED_KEY", "secret")
	c, err := NewClient(Config{
		BaseURL:    srv.URL,
		APIKeyEnv:  "TEST_EMBED_KEY",
		Dimensions: 8,
		MaxRetries: 0,
	}, nil)
	require.NoError(t, err)

	start := time.Now()
	_, err = c.Embed(context.Background(), "some text")
	assert.ErrorContains(t, err, "embedding provider")
	assert.Equal(t, int64(1), calls.Load())
	assert.Less(t, time.Since(start), time.Second)
}

func TestEmbedDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 8)
	_, err := c.Embed(context.Background(), "some text")
	assert.ErrorContains(t, err, "embedding provider")
	assert.Equal(t, int64(1), calls.Load())
}

func TestAzureModeUsesAPIKeyHeader(t *testing.T) {
	var gotHeader, gotVersion string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get("api-key")
		gotVersion = r.URL.Query().Get("api-version")
		resp := map[string]any{"data": []map[string]any{{"embedding": []float32{1, 2}}}}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	t.Setenv("TEST_EMBED_KEY", "azure-key")
	c, err := NewClient(Config{
		BaseURL:    srv.URL,
		APIKeyEnv:  "TEST_EMBED_KEY",
		APIVersion: "2024-02-01",
		Dimensions: 2,
	}, nil)
	require.NoError(t, err)

	_, err = c.Embed(context.Background(), "azure text")
	require.NoError(t, err)
	assert.Equal(t, "azure-key", gotHeader)
	assert.Equal(t, "2024-02-01", gotVersion)
}
