package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/contentpilot/api/internal/config"
)

// AnthropicAPIVersion is the required anthropic-version header
const AnthropicAPIVersion = "2023-06-01"

// AnthropicClient calls the Anthropic Messages API
type AnthropicClient struct {
	httpClient *http.Client
	baseURL    string
}

// MessagesRequest represents a request to the Messages API
type MessagesRequest struct {
	Model       string        `json:"model"`
	MaxTokens   int           `json:"max_tokens"`
	System      string        `json:"system,omitempty"`
	Messages    []ChatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
}

// MessagesResponse represents the response from the Messages API
type MessagesResponse struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Role    string `json:"role"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text,omitempty"`
	} `json:"content"`
	Model      string `json:"model"`
	StopReason string `json:"stop_reason"`
}

// NewAnthropicClient creates a new Anthropic client
func NewAnthropicClient(cfg *config.ProviderConfig, timeout time.Duration) *AnthropicClient {
	return &AnthropicClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    cfg.BaseURL,
	}
}

// Complete sends a single-turn message and joins the returned text blocks
func (c *AnthropicClient) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	if req.APIKey == "" {
		return "", ErrMissingAPIKey
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	bodyBytes, err := json.Marshal(MessagesRequest{
		Model:       req.Model,
		MaxTokens:   maxTokens,
		System:      req.System,
		Messages:    []ChatMessage{{Role: "user", Content: req.Prompt}},
		Temperature: req.Temperature,
	})
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", bytes.NewReader(bodyBytes))
	if err != nil {
		return "", errors.Wrap(err, "failed to create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", req.APIKey)
	httpReq.Header.Set("anthropic-version", AnthropicAPIVersion)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", errors.Wrap(err, "failed to send request")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrap(err, "failed to read response")
	}
	if resp.StatusCode != http.StatusOK {
		return "", &APIError{Provider: "anthropic", Status: resp.StatusCode, Body: string(respBody)}
	}

	var msg MessagesResponse
	if err := json.Unmarshal(respBody, &msg); err != nil {
		return "", errors.Wrap(err, "failed to unmarshal response")
	}

	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	if b.Len() == 0 {
		return "", ErrEmptyCompletion
	}
	return b.String(), nil
}
