package client

import (
	"context"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"

	"github.com/contentpilot/api/internal/config"
)

// OpenAIClient calls an OpenAI-compatible chat completions API through the
// official SDK. OpenRouter is served by the same client with another base URL.
type OpenAIClient struct {
	provider   string
	baseURL    string
	httpClient *http.Client
	headers    map[string]string
}

// NewOpenAIClient creates a client for api.openai.com
func NewOpenAIClient(cfg *config.ProviderConfig, timeout time.Duration) *OpenAIClient {
	return &OpenAIClient{
		provider:   "openai",
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// NewOpenRouterClient creates a client for openrouter.ai
func NewOpenRouterClient(cfg *config.ProviderConfig, timeout time.Duration, appURL, appTitle string) *OpenAIClient {
	headers := map[string]string{}
	if appURL != "" {
		headers["HTTP-Referer"] = appURL
	}
	if appTitle != "" {
		headers["X-Title"] = appTitle
	}
	return &OpenAIClient{
		provider:   "openrouter",
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: timeout},
		headers:    headers,
	}
}

// Complete sends a system+user chat completion
func (c *OpenAIClient) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	if req.APIKey == "" {
		return "", ErrMissingAPIKey
	}

	opts := []option.RequestOption{
		option.WithAPIKey(req.APIKey),
		option.WithHTTPClient(c.httpClient),
		// retries are owned by the reliability layer
		option.WithMaxRetries(0),
	}
	if c.baseURL != "" {
		opts = append(opts, option.WithBaseURL(c.baseURL))
	}
	for k, v := range c.headers {
		opts = append(opts, option.WithHeader(k, v))
	}
	sdk := openai.NewClient(opts...)

	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(req.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.System),
			openai.UserMessage(req.Prompt),
		},
		Temperature: openai.Float(req.Temperature),
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}

	completion, err := sdk.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return "", &APIError{Provider: c.provider, Status: apiErr.StatusCode, Body: apiErr.Message}
		}
		return "", errors.Wrapf(err, "%s chat completion", c.provider)
	}

	if len(completion.Choices) == 0 || completion.Choices[0].Message.Content == "" {
		return "", ErrEmptyCompletion
	}
	return completion.Choices[0].Message.Content, nil
}
