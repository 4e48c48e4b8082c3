package reliability

import (
	"context"
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"
)

// RedisLimiter is a fixed-window limiter shared between processes through Redis
type RedisLimiter struct {
	redis  *redis.Client
	prefix string
}

// NewRedisLimiter creates a limiter storing counters under prefix
func NewRedisLimiter(redisClient *redis.Client, prefix string) *RedisLimiter {
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &RedisLimiter{redis: redisClient, prefix: prefix}
}

// Allow implements Limiter. The key expires with the window, so the counter
// resets wholesale.
func (l *RedisLimiter) Allow(ctx context.Context, key string, maxRequests int, window time.Duration) (RateLimitResult, error) {
	redisKey := fmt.Sprintf("%s:%s", l.prefix, key)

	count, err := l.redis.Incr(ctx, redisKey).Result()
	if err != nil {
		return RateLimitResult{}, errors.Wrap(err, "rate limit increment")
	}

	// Set expiration on first request
	if count == 1 {
		if err := l.redis.PExpire(ctx, redisKey, window).Err(); err != nil {
			return RateLimitResult{}, errors.Wrap(err, "rate limit expire")
		}
	}

	ttl, err := l.redis.PTTL(ctx, redisKey).Result()
	if err != nil || ttl < 0 {
		ttl = window
	}
	resetAt := time.Now().Add(ttl)

	if count > int64(maxRequests) {
		return RateLimitResult{
			Allowed:    false,
			Remaining:  0,
			ResetAt:    resetAt,
			RetryAfter: ttl,
		}, nil
	}

	return RateLimitResult{
		Allowed:   true,
		Remaining: maxRequests - int(count),
		ResetAt:   resetAt,
	}, nil
}
