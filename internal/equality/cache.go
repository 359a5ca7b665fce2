package equality

import (
	"sync"
	"time"
)

// DefaultCacheCapacity bounds the number of cached hashes.
const DefaultCacheCapacity = 1024

// Cache maps object identities to their structural hashes.
//
// The cache is bounded and evicts the oldest entry first once full. It is
// safe for concurrent use and may be shared by many stores.
type Cache struct {
	mu       sync.Mutex
	enabled  bool
	capacity int
	hashes   map[identity]cached
	order    []identity // insertion ring, len <= capacity
	head     int        // next slot to evict once the ring is full

	clearEvery time.Duration
	timer      *time.Timer

	hits   uint64
	misses uint64
}

// cached holds the value alongside its hash so the address behind the
// identity key cannot be reused by another object while the entry lives.
type cached struct {
	hash uint64
	ref  any
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithCapacity sets the maximum number of entries. Values < 1 are ignored.
func WithCapacity(n int) CacheOption {
	return func(c *Cache) {
		if n > 0 {
			c.capacity = n
		}
	}
}

// WithAutoClear clears the cache every interval. Zero disables auto-clear.
func WithAutoClear(interval time.Duration) CacheOption {
	return func(c *Cache) {
		c.clearEvery = interval
	}
}

// WithEnabled sets the initial enabled state (default true).
func WithEnabled(enabled bool) CacheOption {
	return func(c *Cache) {
		c.enabled = enabled
	}
}

// NewCache creates an enabled cache.
func NewCache(opts ...CacheOption) *Cache {
	c := &Cache{
		enabled:  true,
		capacity: DefaultCacheCapacity,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.hashes = make(map[identity]cached, c.capacity)
	c.order = make([]identity, 0, c.capacity)
	if c.clearEvery > 0 {
		c.armLocked()
	}
	return c
}

// Enabled reports whether lookups are cached.
func (c *Cache) Enabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled
}

// SetEnabled turns caching on or off. Disabling drops every entry.
func (c *Cache) SetEnabled(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled = enabled
	if !enabled {
		c.resetLocked()
	}
}

// Len returns the number of cached hashes.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.hashes)
}

// Stats returns cumulative hit and miss counts.
func (c *Cache) Stats() (hits, misses uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked()
}

// Stop cancels the auto-clear timer.
func (c *Cache) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.clearEvery = 0
}

// hashFor returns v's structural hash, consulting the cache when v has an
// identity and caching is enabled.
func (c *Cache) hashFor(v any) uint64 {
	key, ok := identityOf(v)
	if !ok {
		return Hash(v)
	}

	c.mu.Lock()
	if !c.enabled {
		c.mu.Unlock()
		return Hash(v)
	}
	if e, found := c.hashes[key]; found {
		c.hits++
		c.mu.Unlock()
		return e.hash
	}
	c.misses++
	c.mu.Unlock()

	// Hash outside the lock; a concurrent compute of the same key stores the
	// same value.
	h := Hash(v)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.enabled {
		c.storeLocked(key, cached{hash: h, ref: v})
	}
	return h
}

func (c *Cache) storeLocked(key identity, e cached) {
	if _, exists := c.hashes[key]; exists {
		c.hashes[key] = e
		return
	}
	if len(c.order) < c.capacity {
		c.order = append(c.order, key)
	} else {
		delete(c.hashes, c.order[c.head])
		c.order[c.head] = key
		c.head = (c.head + 1) % c.capacity
	}
	c.hashes[key] = e
}

func (c *Cache) resetLocked() {
	clear(c.hashes)
	clear(c.order)
	c.order = c.order[:0]
	c.head = 0
}

func (c *Cache) armLocked() {
	interval := c.clearEvery
	c.timer = time.AfterFunc(interval, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.clearEvery == 0 {
			return
		}
		c.resetLocked()
		c.armLocked()
	})
}
