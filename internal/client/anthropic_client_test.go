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

func TestAnthropicClient_JoinsTextBlocks(t *testing.T) {
	var got MessagesRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/messages", r.URL.Path)
		assert.Equal(t, "sk-ant", r.Header.Get("x-api-key"))
		assert.Equal(t, AnthropicAPIVersion, r.Header.Get("anthropic-version"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"id":"msg_1","type":"message","role":"assistant","content":[{"type":"text","text":"first "},{"type":"tool_use"},{"type":"text","text":"second"}],"stop_reason":"end_turn"}`))
	}))
	defer srv.Close()

	c := NewAnthropicClient(&config.ProviderConfig{BaseURL: srv.URL}, 5*time.Second)
	out, err := c.Complete(context.Background(), CompletionRequest{
		APIKey: "sk-ant",
		Model:  "claude-3-5-sonnet-latest",
		System: "be brief",
		Prompt: "say hello",
	})
	require.NoError(t, err)
	assert.Equal(t, "first second", out)

	assert.Equal(t, "claude-3-5-sonnet-latest", got.Model)
	assert.Equal(t, "be brief", got.System)
	assert.Equal(t, 4096, got.MaxTokens)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, ChatMessage{Role: "user", Content: "say hello"}, got.Messages[0])
}

func TestAnthropicClient_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"rate_limit_error","message":"slow down"}}`))
	}))
	defer srv.Close()

	c := NewAnthropicClient(&config.ProviderConfig{BaseURL: srv.URL}, 5*time.Second)
	_, err := c.Complete(context.Background(), CompletionRequest{APIKey: "sk-ant", Model: "m", Prompt: "x"})

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "anthropic", apiErr.Provider)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode())
}

func TestAnthropicClient_NoTextBlocks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"content":[]}`))
	}))
	defer srv.Close()

	c := NewAnthropicClient(&config.ProviderConfig{BaseURL: srv.URL}, 5*time.Second)
	_, err := c.Complete(context.Background(), CompletionRequest{APIKey: "sk-ant", Model: "m", Prompt: "x"})
	assert.ErrorIs(t, err, ErrEmptyCompletion)
}
