package reliability

import (
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

type idempotencyEntry struct {
	key       string
	result    any
	createdAt time.Time
	expiresAt time.Time
}

// IdempotencyStore remembers the results of side-effecting calls by key
type IdempotencyStore struct {
	mu      sync.Mutex
	entries map[string]idempotencyEntry
	group   singleflight.Group
	now     func() time.Time
}

// NewIdempotencyStore creates an empty store
func NewIdempotencyStore() *IdempotencyStore {
	return &IdempotencyStore{
		entries: make(map[string]idempotencyEntry),
		now:     time.Now,
	}
}

func (s *IdempotencyStore) lookup(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	if !s.now().Before(e.expiresAt) {
		delete(s.entries, key)
		return nil, false
	}
	return e.result, true
}

func (s *IdempotencyStore) store(key string, result any, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.entries[key] = idempotencyEntry{
		key:       key,
		result:    result,
		createdAt: now,
		expiresAt: now.Add(ttl),
	}
}

// Sweep removes expired entries and returns how many were dropped
func (s *IdempotencyStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for k, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, k)
			removed++
		}
	}
	return removed
}

// Forget drops the entry for key so the next call runs again
func (s *IdempotencyStore) Forget(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
}

// Len returns the number of stored entries, expired ones included
func (s *IdempotencyStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// WithIdempotency returns the cached result for key when one has not expired;
// otherwise it runs fn once, caches a successful result for ttl and returns it.
// Concurrent calls with the same key share a single execution. hit reports
// whether the result came from an earlier call.
func WithIdempotency[T any](s *IdempotencyStore, key string, ttl time.Duration, fn func() (T, error)) (result T, hit bool, err error) {
	if v, ok := s.lookup(key); ok {
		if typed, ok := v.(T); ok {
			return typed, true, nil
		}
	}

	executed := false
	v, err, _ := s.group.Do(key, func() (any, error) {
		// a concurrent caller may have finished between lookup and Do
		if cached, ok := s.lookup(key); ok {
			return cached, nil
		}
		executed = true
		out, err := fn()
		if err != nil {
			return nil, err
		}
		s.store(key, out, ttl)
		return out, nil
	})
	if err != nil {
		var zero T
		return zero, false, err
	}

	typed, _ := v.(T)
	return typed, !executed, nil
}
