package ollama

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
)

func newTestProvider(baseURL string) *Provider {
	cfg := DefaultConfig()
	cfg.BaseURL = baseURL
	cfg.MaxRetries = 1
	cfg.Timeout = 5 * time.Second
	return NewProviderWithConfig(cfg)
}

func TestComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/generate", r.URL.Path)

		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.False(t, req.Stream)
		assert.NotEmpty(t, req.Prompt)

		_ = json.NewEncoder(w).Encode(generateResponse{
			Model:    req.Model,
			Response: "SELECT 1",
			Done:     true,
		})
	}))
	defer srv.Close()

	got, err := newTestProvider(srv.URL).Complete(context.Background(), "convert this")
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1", got)
}

func TestEmbed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/embed", r.URL.Path)

		var req embedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		embeddings := make([][]float32, len(req.Input))
		for i := range embeddings {
			embeddings[i] = []float32{float32(i), 1}
		}
		_ = json.NewEncoder(w).Encode(embedResponse{Model: req.Model, Embeddings: embeddings})
	}))
	defer srv.Close()

	p := newTestProvider(srv.URL)

	got, err := p.Embed(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, []float32{1, 1}, got[1])

	single, err := p.EmbedSingle(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 1}, single)
}

func TestEmbedCountMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(embedResponse{Embeddings: [][]float32{{1}}})
	}))
	defer srv.Close()

	_, err := newTestProvider(srv.URL).Embed(context.Background(), []string{"a", "b"})
	assert.ErrorContains(t, err, "embedding count mismatch")
}

func TestRetryOnServerError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(generateResponse{Response: "recovered", Done: true})
	}))
	defer srv.Close()

	got, err := newTestProvider(srv.URL).Complete(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "recovered", got)
	assert.EqualValues(t, 2, calls.Load())
}

func TestNoRetryOnClientError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newTestProvider(srv.URL).Complete(context.Background(), "prompt")
	require.Error(t, err)
	assert.EqualValues(t, 1, calls.Load())
}

func TestNewProviderAppliesConfigMap(t *testing.T) {
	p, err := NewProvider(map[string]any{
		"base_url":   "http://example:11434",
		"chat_model": "custom-chat",
	})
	require.NoError(t, err)
	assert.Equal(t, "http://example:11434", p.config.BaseURL)
	assert.Equal(t, "custom-chat", p.config.ChatModel)
	assert.Equal(t, DefaultConfig().EmbedModel, p.config.EmbedModel)
}
