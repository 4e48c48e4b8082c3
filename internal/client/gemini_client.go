package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/contentpilot/api/internal/config"
)

// GeminiClient calls the Google Generative Language generateContent endpoint
type GeminiClient struct {
	httpClient *http.Client
	baseURL    string
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

// GeminiRequest represents the generateContent request body
type GeminiRequest struct {
	SystemInstruction *geminiContent  `json:"systemInstruction,omitempty"`
	Contents          []geminiContent `json:"contents"`
	GenerationConfig  struct {
		Temperature     float64 `json:"temperature,omitempty"`
		MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
	} `json:"generationConfig"`
}

// GeminiResponse represents the generateContent response body
type GeminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
}

// NewGeminiClient creates a new Gemini client
func NewGeminiClient(cfg *config.ProviderConfig, timeout time.Duration) *GeminiClient {
	return &GeminiClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    cfg.BaseURL,
	}
}

// Complete generates content for a single user turn
func (c *GeminiClient) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	if req.APIKey == "" {
		return "", ErrMissingAPIKey
	}

	body := GeminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: req.Prompt}}}},
	}
	if req.System != "" {
		body.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: req.System}}}
	}
	body.GenerationConfig.Temperature = req.Temperature
	body.GenerationConfig.MaxOutputTokens = req.MaxTokens

	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal request")
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, url.PathEscape(req.Model), url.QueryEscape(req.APIKey))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", errors.Wrap(err, "failed to create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		// the request URL carries the key; keep it out of logs
		return "", errors.Newf("failed to send request: %s", strings.ReplaceAll(err.Error(), url.QueryEscape(req.APIKey), "REDACTED"))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrap(err, "failed to read response")
	}
	if resp.StatusCode != http.StatusOK {
		return "", &APIError{Provider: "gemini", Status: resp.StatusCode, Body: string(respBody)}
	}

	var gr GeminiResponse
	if err := json.Unmarshal(respBody, &gr); err != nil {
		return "", errors.Wrap(err, "failed to unmarshal response")
	}
	if len(gr.Candidates) == 0 {
		return "", ErrEmptyCompletion
	}

	var b strings.Builder
	for _, p := range gr.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	if b.Len() == 0 {
		return "", ErrEmptyCompletion
	}
	return b.String(), nil
}
