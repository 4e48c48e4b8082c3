package middleware

import (
	"fmt"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/contentpilot/api/internal/reliability"
	"github.com/contentpilot/api/pkg/response"
)

type RateLimiter struct {
	limiter reliability.Limiter
	logger  *zap.SugaredLogger
}

func NewRateLimiter(limiter reliability.Limiter, logger *zap.SugaredLogger) *RateLimiter {
	return &RateLimiter{limiter: limiter, logger: logger}
}

// Limit creates a rate limiting middleware keyed by user, or client IP for
// anonymous requests
func (rl *RateLimiter) Limit(keyPrefix string, maxRequests int, window time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if maxRequests <= 0 {
			return c.Next()
		}

		subject := GetUserID(c)
		if subject == "" {
			subject = "ip:" + c.IP()
		}
		key := fmt.Sprintf("%s:%s", keyPrefix, subject)

		res, err := reliability.Enforce(c.Context(), rl.limiter, key, maxRequests, window)
		var limited *reliability.RateLimitError
		if err != nil && !errors.As(err, &limited) {
			// If the backend fails, allow the request but log the error
			rl.logger.Warnw("Rate limiter unavailable", "key", key, "error", err)
			return c.Next()
		}

		c.Set("X-RateLimit-Limit", strconv.Itoa(maxRequests))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		c.Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))

		if limited != nil {
			return response.RateLimited(c, limited.RetryAfter)
		}
		return c.Next()
	}
}

// JobsLimit limits job creation per minute
func (rl *RateLimiter) JobsLimit(maxPerMin int) fiber.Handler {
	return rl.Limit("jobs", maxPerMin, time.Minute)
}

// ScoreLimit limits content scoring per minute
func (rl *RateLimiter) ScoreLimit(maxPerMin int) fiber.Handler {
	return rl.Limit("score", maxPerMin, time.Minute)
}
