package client

import (
	"context"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

// ErrMissingAPIKey is returned when a vendor call is attempted without credentials
var ErrMissingAPIKey = errors.New("api key not configured")

// ErrEmptyCompletion is returned when a vendor answers without any content
var ErrEmptyCompletion = errors.New("no content in completion response")

// CompletionRequest is a single system+user prompt sent to a chat model
type CompletionRequest struct {
	APIKey      string
	Model       string
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float64
}

// Completer is implemented by every text-generation vendor client
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// APIError is a non-2xx answer from a vendor endpoint
type APIError struct {
	Provider string
	Status   int
	Body     string
}

func (e *APIError) Error() string {
	body := e.Body
	if len(body) > 300 {
		body = body[:300] + "..."
	}
	return fmt.Sprintf("%s API error (status %d): %s", e.Provider, e.Status, strings.TrimSpace(body))
}

// StatusCode returns the HTTP status of the failed call
func (e *APIError) StatusCode() int { return e.Status }
