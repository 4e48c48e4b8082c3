package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contentpilot/api/internal/config"
)

func TestGeminiClient_JoinsCandidateParts(t *testing.T) {
	var got GeminiRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/gemini-1.5-flash:generateContent", r.URL.Path)
		assert.Equal(t, "g-key", r.URL.Query().Get("key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"Hello, "},{"text":"world"}]},"finishReason":"STOP"},{"content":{"parts":[{"text":"ignored"}]}}]}`))
	}))
	defer srv.Close()

	c := NewGeminiClient(&config.ProviderConfig{BaseURL: srv.URL}, 5*time.Second)
	out, err := c.Complete(context.Background(), CompletionRequest{
		APIKey:      "g-key",
		Model:       "gemini-1.5-flash",
		System:      "be brief",
		Prompt:      "say hello",
		MaxTokens:   256,
		Temperature: 0.7,
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello, world", out)

	require.NotNil(t, got.SystemInstruction)
	assert.Equal(t, "be brief", got.SystemInstruction.Parts[0].Text)
	require.Len(t, got.Contents, 1)
	assert.Equal(t, "user", got.Contents[0].Role)
	assert.Equal(t, "say hello", got.Contents[0].Parts[0].Text)
	assert.Equal(t, 256, got.GenerationConfig.MaxOutputTokens)
	assert.InDelta(t, 0.7, got.GenerationConfig.Temperature, 1e-9)
}

func TestGeminiClient_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"message":"API key not valid"}}`))
	}))
	defer srv.Close()

	c := NewGeminiClient(&config.ProviderConfig{BaseURL: srv.URL}, 5*time.Second)
	_, err := c.Complete(context.Background(), CompletionRequest{APIKey: "bad", Model: "gemini-1.5-flash", Prompt: "x"})

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "gemini", apiErr.Provider)
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode())
	assert.Contains(t, apiErr.Error(), "API key not valid")
}

func TestGeminiClient_NoCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	}))
	defer srv.Close()

	c := NewGeminiClient(&config.ProviderConfig{BaseURL: srv.URL}, 5*time.Second)
	_, err := c.Complete(context.Background(), CompletionRequest{APIKey: "k", Model: "m", Prompt: "x"})
	assert.ErrorIs(t, err, ErrEmptyCompletion)
}

func TestGeminiClient_MissingKey(t *testing.T) {
	c := NewGeminiClient(&config.ProviderConfig{BaseURL: "http://127.0.0.1:1"}, time.Second)
	_, err := c.Complete(context.Background(), CompletionRequest{Model: "m", Prompt: "x"})
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}
