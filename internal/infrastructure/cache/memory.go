package cache

import (
	"context"
	"sync"
	"time"

	"github.com/smarties/backend/internal/domain"
)

// cacheItem represents a single scan result in the cache.
// Expiry is checked against CreatedAt+TTL on read.
type cacheItem struct {
	Value     []byte
	CreatedAt time.Time
	TTL       time.Duration
	Hits      int64
}

func (i *cacheItem) expired(now time.Time) bool {
	return i.TTL > 0 && now.Sub(i.CreatedAt) >= i.TTL
}

// MemoryCache is a thread-safe in-memory cache with TTL support
type MemoryCache struct {
	data   map[string]*cacheItem
	mutex  sync.RWMutex
	now    func() time.Time
	hits   int64
	misses int64
}

// MemoryOption configures a MemoryCache.
type MemoryOption func(*MemoryCache)

// WithClock replaces the wall clock, mostly for tests.
func WithClock(now func() time.Time) MemoryOption {
	return func(c *MemoryCache) {
		if now != nil {
			c.now = now
		}
	}
}

// NewMemoryCache creates a new in-memory cache
func NewMemoryCache(opts ...MemoryOption) *MemoryCache {
	cache := &MemoryCache{
		data: make(map[string]*cacheItem),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(cache)
	}
	return cache
}

// Get retrieves a value from the cache. Expired entries are evicted here.
func (c *MemoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	item, exists := c.data[key]
	if !exists {
		c.misses++
		return nil, domain.ErrCacheMiss
	}

	if item.expired(c.now()) {
		delete(c.data, key)
		c.misses++
		return nil, domain.ErrCacheMiss
	}

	item.Hits++
	c.hits++
	return cloneBytes(item.Value), nil
}

// Set stores a value in the cache with TTL. A non-positive TTL never expires.
func (c *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.data[key] = &cacheItem{
		Value:     cloneBytes(value),
		CreatedAt: c.now(),
		TTL:       ttl,
	}
	return nil
}

// Delete removes a value from the cache
func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	delete(c.data, key)
	return nil
}

// Exists checks if a key exists in the cache and is not expired
func (c *MemoryCache) Exists(ctx context.Context, key string) (bool, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	item, exists := c.data[key]
	if !exists {
		return false, nil
	}
	return !item.expired(c.now()), nil
}

// StartCleanup sweeps expired entries every interval until ctx is done.
// Lookups already evict lazily; the sweep only bounds memory held by keys nobody reads again.
func (c *MemoryCache) StartCleanup(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.cleanupExpired()
			}
		}
	}()
}

// cleanupExpired removes every expired entry and returns how many were dropped.
func (c *MemoryCache) cleanupExpired() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := c.now()
	removed := 0
	for key, item := range c.data {
		if item.expired(now) {
			delete(c.data, key)
			removed++
		}
	}
	return removed
}

// Size returns the current number of items in the cache, expired or not
func (c *MemoryCache) Size() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.data)
}

// Clear removes all items from the cache
func (c *MemoryCache) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.data = make(map[string]*cacheItem)
}

// MemoryStats is a snapshot of scan cache counters.
type MemoryStats struct {
	Entries int   `json:"entries"`
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
}

// Stats returns hit/miss counters and the current entry count.
func (c *MemoryCache) Stats() MemoryStats {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return MemoryStats{Entries: len(c.data), Hits: c.hits, Misses: c.misses}
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
