package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_UnconfiguredReturnsFallback(t *testing.T) {
	c := NewClient(Config{}, zerolog.Nop())
	assert.Equal(t, Fallback, c.Generate(context.Background(), "anything"))
}

func TestClient_GenerateSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		require.NotEmpty(t, req.Messages)
		assert.Equal(t, "What is TCP?", req.Messages[len(req.Messages)-1].Content)

		json.NewEncoder(w).Encode(chatResponse{
			Choices: []struct {
				Message chatMessage `json:"message"`
			}{
				{Message: chatMessage{Role: "assistant", Content: "  A transport protocol.  "}},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "test-key", BaseURL: srv.URL, Model: "test-model"}, zerolog.Nop())
	answer := c.Generate(context.Background(), "What is TCP?")
	assert.Equal(t, "A transport protocol.", answer)
}

func TestClient_UpstreamErrorReturnsFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "k", BaseURL: srv.URL, Model: "m"}, zerolog.Nop())
	assert.Equal(t, Fallback, c.Generate(context.Background(), "q"))
}

func TestClient_EmptyChoicesReturnsFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(chatResponse{})
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "k", BaseURL: srv.URL, Model: "m"}, zerolog.Nop())
	assert.Equal(t, Fallback, c.Generate(context.Background(), "q"))
}

func TestClient_UnreachableEndpointReturnsFallback(t *testing.T) {
	c := NewClient(Config{
		APIKey:  "k",
		BaseURL: "http://127.0.0.1:1",
		Model:   "m",
		Timeout: time.Second,
	}, zerolog.Nop())
	assert.Equal(t, Fallback, c.Generate(context.Background(), "q"))
}
