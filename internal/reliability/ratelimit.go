package reliability

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// RateLimitResult is the outcome of a rate-limit check
type RateLimitResult struct {
	Allowed    bool
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration // zero when allowed
}

// RateLimitError is returned when a caller exceeds its window budget.
// It is never retried by this package.
type RateLimitError struct {
	Key        string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s, retry after %s", e.Key, e.RetryAfter)
}

// StatusCode lets HTTP layers map the error to 429
func (e *RateLimitError) StatusCode() int { return 429 }

// Limiter counts requests per key in fixed windows
type Limiter interface {
	Allow(ctx context.Context, key string, maxRequests int, window time.Duration) (RateLimitResult, error)
}

type rateLimitEntry struct {
	count       int
	windowStart time.Time
}

// FixedWindowLimiter is an in-process fixed-window counter
type FixedWindowLimiter struct {
	mu      sync.Mutex
	entries map[string]*rateLimitEntry
	windows map[string]time.Duration
	now     func() time.Time
}

// NewFixedWindowLimiter creates an empty limiter
func NewFixedWindowLimiter() *FixedWindowLimiter {
	return &FixedWindowLimiter{
		entries: make(map[string]*rateLimitEntry),
		windows: make(map[string]time.Duration),
		now:     time.Now,
	}
}

// CheckRateLimit counts one request for key. The window resets wholesale once
// window has elapsed since it started.
func (l *FixedWindowLimiter) CheckRateLimit(key string, maxRequests int, window time.Duration) RateLimitResult {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	e, ok := l.entries[key]
	if !ok || now.Sub(e.windowStart) >= window {
		e = &rateLimitEntry{windowStart: now}
		l.entries[key] = e
		l.windows[key] = window
	}

	resetAt := e.windowStart.Add(window)
	if e.count >= maxRequests {
		return RateLimitResult{
			Allowed:    false,
			Remaining:  0,
			ResetAt:    resetAt,
			RetryAfter: resetAt.Sub(now),
		}
	}

	e.count++
	return RateLimitResult{
		Allowed:   true,
		Remaining: maxRequests - e.count,
		ResetAt:   resetAt,
	}
}

// Allow implements Limiter
func (l *FixedWindowLimiter) Allow(_ context.Context, key string, maxRequests int, window time.Duration) (RateLimitResult, error) {
	return l.CheckRateLimit(key, maxRequests, window), nil
}

// Sweep drops windows that have elapsed
func (l *FixedWindowLimiter) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	removed := 0
	for k, e := range l.entries {
		if now.Sub(e.windowStart) >= l.windows[k] {
			delete(l.entries, k)
			delete(l.windows, k)
			removed++
		}
	}
	return removed
}

// Enforce counts one request for key and returns a *RateLimitError when the
// window budget is spent. Backend errors are returned as is.
func Enforce(ctx context.Context, l Limiter, key string, maxRequests int, window time.Duration) (RateLimitResult, error) {
	res, err := l.Allow(ctx, key, maxRequests, window)
	if err != nil {
		return res, err
	}
	if !res.Allowed {
		return res, &RateLimitError{Key: key, RetryAfter: res.RetryAfter}
	}
	return res, nil
}
