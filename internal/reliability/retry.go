// Package reliability holds the retry, idempotency, caching and rate-limiting
// primitives used around every outbound network call.
package reliability

import (
	"context"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

// StatusCoder is implemented by errors that carry an HTTP status code
type StatusCoder interface {
	StatusCode() int
}

// RetryOptions configures WithRetry
type RetryOptions struct {
	MaxRetries        int
	InitialDelay      time.Duration
	MaxDelay          time.Duration
	BackoffMultiplier float64
	RetryableStatuses []int
	RetryableErrors   []string
	// OnRetry is called before each wait with the 1-based retry number.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// DefaultRetryOptions returns the options used for vendor calls
func DefaultRetryOptions() RetryOptions {
	return RetryOptions{
		MaxRetries:        3,
		InitialDelay:      time.Second,
		MaxDelay:          30 * time.Second,
		BackoffMultiplier: 2,
		RetryableStatuses: []int{408, 429, 500, 502, 503, 504},
		RetryableErrors: []string{
			"ECONNRESET",
			"ETIMEDOUT",
			"connection reset",
			"connection refused",
			"timeout",
			"EOF",
		},
	}
}

// WithRetry invokes fn until it succeeds, the error is not retryable, or the
// retry budget is spent. The last error is returned unchanged.
func WithRetry[T any](ctx context.Context, fn func(context.Context) (T, error), opts RetryOptions) (T, error) {
	var zero T
	if opts.BackoffMultiplier <= 0 {
		opts.BackoffMultiplier = 1
	}

	for attempt := 0; ; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		if attempt >= opts.MaxRetries || !opts.isRetryable(err) {
			return zero, err
		}
		if ctx.Err() != nil {
			return zero, err
		}

		delay := opts.backoff(attempt + 1)
		if opts.OnRetry != nil {
			opts.OnRetry(attempt+1, err, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, err
		case <-timer.C:
		}
	}
}

// backoff computes min(initial * multiplier^(attempt-1) + jitter(0-30%), max)
func (o RetryOptions) backoff(attempt int) time.Duration {
	base := float64(o.InitialDelay) * math.Pow(o.BackoffMultiplier, float64(attempt-1))
	jitter := base * 0.3 * rand.Float64()
	delay := time.Duration(base + jitter)
	if o.MaxDelay > 0 && delay > o.MaxDelay {
		delay = o.MaxDelay
	}
	return delay
}

func (o RetryOptions) isRetryable(err error) bool {
	var sc StatusCoder
	if errors.As(err, &sc) {
		code := sc.StatusCode()
		for _, s := range o.RetryableStatuses {
			if s == code {
				return true
			}
		}
	}

	msg := strings.ToLower(err.Error())
	for _, sub := range o.RetryableErrors {
		if sub != "" && strings.Contains(msg, strings.ToLower(sub)) {
			return true
		}
	}
	return false
}
