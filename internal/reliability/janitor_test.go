package reliability

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type countingSweeper struct {
	calls atomic.Int32
}

func (s *countingSweeper) Sweep() int {
	s.calls.Add(1)
	return 1
}

func TestJanitorSweepOnce(t *testing.T) {
	cache := NewTTLCache(0)
	cache.Set("gone", 1, time.Nanosecond)
	cache.Set("kept", 2, time.Hour)
	time.Sleep(time.Millisecond)

	j := NewJanitor(time.Minute, nil, map[string]Sweeper{"cache": cache})
	j.SweepOnce()

	assert.Equal(t, 1, cache.Len())
}

func TestJanitorRunStopsOnCancel(t *testing.T) {
	s := &countingSweeper{}
	j := NewJanitor(5*time.Millisecond, nil, map[string]Sweeper{"s": s})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		j.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return s.calls.Load() >= 2 }, time.Second, time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop")
	}
}
