// Package generation routes content generation to AI providers and always
// returns usable content, falling back to a local template on any failure.
package generation

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/contentpilot/api/internal/config"
	"github.com/contentpilot/api/internal/model"
	"github.com/contentpilot/api/internal/reliability"
)

// ProviderConfig selects a provider and its credentials for one call
type ProviderConfig struct {
	Provider string
	APIKey   string
	Model    string
}

// Options controls the call envelope around every vendor adapter
type Options struct {
	Timeout          time.Duration
	Retry            reliability.RetryOptions
	RequestsPerMin   int
	BreakerFailures  uint32
	BreakerOpenDelay time.Duration
}

// DefaultOptions returns a 90s timeout, default retry and a 5-failure breaker
func DefaultOptions() Options {
	return Options{
		Timeout:          90 * time.Second,
		Retry:            reliability.DefaultRetryOptions(),
		RequestsPerMin:   60,
		BreakerFailures:  5,
		BreakerOpenDelay: 30 * time.Second,
	}
}

// OptionsFromConfig maps the generation config section to router options
func OptionsFromConfig(cfg config.GenerationConfig) Options {
	opts := DefaultOptions()
	if cfg.Timeout > 0 {
		opts.Timeout = cfg.Timeout
	}
	if cfg.MaxRetries >= 0 {
		opts.Retry.MaxRetries = cfg.MaxRetries
	}
	if cfg.RetryInitial > 0 {
		opts.Retry.InitialDelay = cfg.RetryInitial
	}
	if cfg.RetryMax > 0 {
		opts.Retry.MaxDelay = cfg.RetryMax
	}
	opts.RequestsPerMin = cfg.RequestsPerMin
	if cfg.BreakerFailures > 0 {
		opts.BreakerFailures = uint32(cfg.BreakerFailures)
	}
	if cfg.BreakerOpenDelay > 0 {
		opts.BreakerOpenDelay = cfg.BreakerOpenDelay
	}
	return opts
}

// guard is the per-provider breaker and outbound throttle
type guard struct {
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
}

// Router dispatches generation to the adapter registered for a provider id
type Router struct {
	mu       sync.RWMutex
	adapters map[string]GenerationAdapter
	guards   map[string]*guard
	fallback *FallbackAdapter
	opts     Options
	logger   *zap.SugaredLogger
}

// NewRouter creates a router with the given adapters and a fallback adapter
func NewRouter(logger *zap.SugaredLogger, opts Options, adapters ...GenerationAdapter) *Router {
	r := &Router{
		adapters: make(map[string]GenerationAdapter),
		guards:   make(map[string]*guard),
		fallback: NewFallbackAdapter(),
		opts:     opts,
		logger:   logger,
	}
	for _, a := range adapters {
		r.Register(a)
	}
	return r
}

// Register adds or replaces the adapter for a.Provider()
func (r *Router) Register(a GenerationAdapter) {
	id := strings.ToLower(a.Provider())

	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[id] = a
	r.guards[id] = r.newGuard(id)
}

// Providers returns the registered provider ids, sorted
func (r *Router) Providers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.adapters))
	for id := range r.adapters {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// BreakerState reports the circuit state of a provider
func (r *Router) BreakerState(provider string) gobreaker.State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if g, ok := r.guards[strings.ToLower(provider)]; ok {
		return g.breaker.State()
	}
	return gobreaker.StateClosed
}

func (r *Router) newGuard(id string) *guard {
	failures := r.opts.BreakerFailures
	limit := rate.Inf
	burst := 1
	if r.opts.RequestsPerMin > 0 {
		limit = rate.Limit(float64(r.opts.RequestsPerMin) / 60)
		burst = r.opts.RequestsPerMin
	}

	return &guard{
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "generation-" + id,
			MaxRequests: 1,
			Timeout:     r.opts.BreakerOpenDelay,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return failures > 0 && counts.ConsecutiveFailures >= failures
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				r.logger.Warnw("Circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
			},
		}),
		limiter: rate.NewLimiter(limit, burst),
	}
}

// Generate produces content for topic. It never returns an error: any
// adapter failure, missing key or unknown provider yields fallback content.
func (r *Router) Generate(ctx context.Context, pc ProviderConfig, topic string) (result model.ContentResult) {
	id := strings.ToLower(strings.TrimSpace(pc.Provider))

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Errorw("Generation adapter panicked", "provider", id, "panic", fmt.Sprint(rec))
			result = r.fallback.content(topic)
		}
	}()

	if id == "" || id == ProviderFallback {
		return r.fallback.content(topic)
	}

	r.mu.RLock()
	adapter, ok := r.adapters[id]
	g := r.guards[id]
	r.mu.RUnlock()

	if !ok {
		r.logger.Warnw("Unknown generation provider, using fallback", "provider", pc.Provider)
		return r.fallback.content(topic)
	}
	if pc.APIKey == "" {
		r.logger.Infow("No API key for provider, using fallback", "provider", id)
		return r.fallback.content(topic)
	}

	out, err := g.breaker.Execute(func() (interface{}, error) {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, errors.Wrap(err, "rate limit wait")
		}
		return reliability.WithRetry(ctx, func(ctx context.Context) (model.ContentResult, error) {
			attemptCtx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
			defer cancel()
			return adapter.Generate(attemptCtx, pc, topic)
		}, r.retryOptions(id))
	})
	if err != nil {
		r.logger.Warnw("Generation failed, using fallback", "provider", id, "error", err)
		return r.fallback.content(topic)
	}
	return out.(model.ContentResult)
}

func (r *Router) retryOptions(id string) reliability.RetryOptions {
	opts := r.opts.Retry
	opts.OnRetry = func(attempt int, err error, delay time.Duration) {
		r.logger.Infow("Retrying generation", "provider", id, "attempt", attempt, "delay", delay, "error", err)
	}
	return opts
}
