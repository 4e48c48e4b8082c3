package reliability

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Sweeper is a store with periodic expiry
type Sweeper interface {
	Sweep() int
}

// Janitor periodically sweeps expired entries out of the registered stores
type Janitor struct {
	interval time.Duration
	stores   map[string]Sweeper
	logger   *zap.SugaredLogger
}

// NewJanitor creates a janitor for the named stores
func NewJanitor(interval time.Duration, logger *zap.SugaredLogger, stores map[string]Sweeper) *Janitor {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Janitor{interval: interval, stores: stores, logger: logger}
}

// Run sweeps every interval until ctx is cancelled
func (j *Janitor) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.SweepOnce()
		}
	}
}

// SweepOnce sweeps all stores once
func (j *Janitor) SweepOnce() {
	for name, s := range j.stores {
		if n := s.Sweep(); n > 0 {
			j.logger.Debugw("swept expired entries", "store", name, "removed", n)
		}
	}
}
