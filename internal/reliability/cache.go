package reliability

import (
	"sync"
	"time"
)

// DefaultCacheCapacity is the size above which Set sweeps expired entries
const DefaultCacheCapacity = 1000

type cacheEntry struct {
	value     any
	expiresAt time.Time
}

// TTLCache is a key-value store whose entries expire lazily on read
type TTLCache struct {
	mu       sync.RWMutex
	entries  map[string]cacheEntry
	capacity int
	now      func() time.Time
}

// NewTTLCache creates a cache that sweeps once it holds more than capacity entries
func NewTTLCache(capacity int) *TTLCache {
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	return &TTLCache{
		entries:  make(map[string]cacheEntry),
		capacity: capacity,
		now:      time.Now,
	}
}

// Get returns the value for key if present and not expired
func (c *TTLCache) Get(key string) (any, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}

	if !c.now().Before(e.expiresAt) {
		c.mu.Lock()
		// re-check, a concurrent Set may have refreshed it
		if cur, ok := c.entries[key]; ok && !c.now().Before(cur.expiresAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, false
	}
	return e.value, true
}

// Set stores value under key for ttl
func (c *TTLCache) Set(key string, value any, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = cacheEntry{value: value, expiresAt: c.now().Add(ttl)}
	if len(c.entries) > c.capacity {
		c.sweepLocked()
	}
}

// Delete removes key
func (c *TTLCache) Delete(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Len returns the number of stored entries, expired ones included
func (c *TTLCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Sweep removes expired entries and returns how many were dropped
func (c *TTLCache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sweepLocked()
}

func (c *TTLCache) sweepLocked() int {
	now := c.now()
	removed := 0
	for k, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}
