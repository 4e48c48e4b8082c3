package reliability

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckRateLimit_FixedWindow(t *testing.T) {
	l := NewFixedWindowLimiter()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	var allowed []bool
	for i := 0; i < 4; i++ {
		allowed = append(allowed, l.CheckRateLimit("client", 3, time.Second).Allowed)
		now = now.Add(100 * time.Millisecond)
	}
	assert.Equal(t, []bool{true, true, true, false}, allowed)

	denied := l.CheckRateLimit("client", 3, time.Second)
	assert.False(t, denied.Allowed)
	assert.Equal(t, 0, denied.Remaining)
	assert.Equal(t, 600*time.Millisecond, denied.RetryAfter)

	now = now.Add(time.Second)
	res := l.CheckRateLimit("client", 3, time.Second)
	assert.True(t, res.Allowed)
	assert.Equal(t, 2, res.Remaining)
	assert.Equal(t, now.Add(time.Second), res.ResetAt)
}

func TestCheckRateLimit_KeysAreIndependent(t *testing.T) {
	l := NewFixedWindowLimiter()

	assert.True(t, l.CheckRateLimit("a", 1, time.Minute).Allowed)
	assert.False(t, l.CheckRateLimit("a", 1, time.Minute).Allowed)
	assert.True(t, l.CheckRateLimit("b", 1, time.Minute).Allowed)
}

func TestFixedWindowLimiter_Sweep(t *testing.T) {
	l := NewFixedWindowLimiter()
	now := time.Now()
	l.now = func() time.Time { return now }

	l.CheckRateLimit("short", 5, time.Second)
	l.CheckRateLimit("long", 5, time.Hour)

	now = now.Add(time.Minute)
	assert.Equal(t, 1, l.Sweep())
}

func TestRedisLimiter_FixedWindow(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379", DB: 15})
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("redis not available: %v", err)
	}
	t.Cleanup(func() { client.Close() })

	l := NewRedisLimiter(client, "test-ratelimit")
	key := fmt.Sprintf("client-%d", time.Now().UnixNano())

	var allowed []bool
	for i := 0; i < 4; i++ {
		res, err := l.Allow(ctx, key, 3, time.Second)
		require.NoError(t, err)
		allowed = append(allowed, res.Allowed)
	}
	assert.Equal(t, []bool{true, true, true, false}, allowed)

	time.Sleep(1100 * time.Millisecond)
	res, err := l.Allow(ctx, key, 3, time.Second)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 2, res.Remaining)
}

func TestEnforce(t *testing.T) {
	l := NewFixedWindowLimiter()
	ctx := context.Background()

	_, err := Enforce(ctx, l, "k", 1, time.Minute)
	require.NoError(t, err)

	res, err := Enforce(ctx, l, "k", 1, time.Minute)
	var rle *RateLimitError
	require.ErrorAs(t, err, &rle)
	assert.False(t, res.Allowed)
	assert.Equal(t, "k", rle.Key)
	assert.Equal(t, 429, rle.StatusCode())
	assert.Greater(t, rle.RetryAfter, time.Duration(0))
}
