package cache

import (
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// LRUConfig configures an LRUCache.
type LRUConfig struct {
	MaxEntries int
	TTL        time.Duration
	Now        func() time.Time
}

type lruEntry[V any] struct {
	value     V
	createdAt time.Time
	accesses  int64
}

// LRUCache is a content-addressed cache with least-recently-used eviction and
// a per-entry TTL checked on read. It backs the embedding and response caches.
type LRUCache[V any] struct {
	mu          sync.Mutex
	items       *lru.Cache[string, *lruEntry[V]]
	maxEntries  int
	ttl         time.Duration
	now         func() time.Time
	sizeOf      func(V) int
	hits        int64
	misses      int64
	evictions   int64
	expirations int64
}

// LRUStats is a snapshot of an LRUCache's counters and footprint.
type LRUStats struct {
	Entries        int     `json:"entries"`
	MaxEntries     int     `json:"maxEntries"`
	Hits           int64   `json:"hits"`
	Misses         int64   `json:"misses"`
	Evictions      int64   `json:"evictions"`
	Expirations    int64   `json:"expirations"`
	HitRate        float64 `json:"hitRate"`
	EstimatedBytes int64   `json:"estimatedBytes"`
}

// NewLRUCache creates a cache holding at most cfg.MaxEntries values.
// sizeOf estimates the memory held by one value; nil counts only keys.
func NewLRUCache[V any](cfg LRUConfig, sizeOf func(V) int) (*LRUCache[V], error) {
	if cfg.MaxEntries <= 0 {
		return nil, fmt.Errorf("lru cache: max entries must be positive, got %d", cfg.MaxEntries)
	}
	items, err := lru.New[string, *lruEntry[V]](cfg.MaxEntries)
	if err != nil {
		return nil, fmt.Errorf("lru cache: %w", err)
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &LRUCache[V]{
		items:      items,
		maxEntries: cfg.MaxEntries,
		ttl:        cfg.TTL,
		now:        now,
		sizeOf:     sizeOf,
	}, nil
}

// Get returns the value for key. An entry older than the TTL is removed and reported absent.
func (c *LRUCache[V]) Get(key string) (V, bool) {
	var zero V
	if c == nil {
		return zero, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.items.Get(key)
	if !ok {
		c.misses++
		return zero, false
	}
	if c.ttl > 0 && c.now().Sub(entry.createdAt) >= c.ttl {
		c.items.Remove(key)
		c.expirations++
		c.misses++
		return zero, false
	}
	entry.accesses++
	c.hits++
	return entry.value, true
}

// Set stores value under key, evicting the least recently used entry when full.
func (c *LRUCache[V]) Set(key string, value V) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if evicted := c.items.Add(key, &lruEntry[V]{value: value, createdAt: c.now()}); evicted {
		c.evictions++
	}
}

// Remove deletes key if present.
func (c *LRUCache[V]) Remove(key string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items.Remove(key)
}

// Len returns the number of entries, including any not yet found to be expired.
func (c *LRUCache[V]) Len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.items.Len()
}

// Purge drops every entry and keeps the counters.
func (c *LRUCache[V]) Purge() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items.Purge()
}

// Stats reports counters and a rough memory estimate for sizing the cache.
func (c *LRUCache[V]) Stats() LRUStats {
	if c == nil {
		return LRUStats{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := LRUStats{
		Entries:     c.items.Len(),
		MaxEntries:  c.maxEntries,
		Hits:        c.hits,
		Misses:      c.misses,
		Evictions:   c.evictions,
		Expirations: c.expirations,
	}
	if total := c.hits + c.misses; total > 0 {
		stats.HitRate = float64(c.hits) / float64(total)
	}
	for _, key := range c.items.Keys() {
		entry, ok := c.items.Peek(key)
		if !ok {
			continue
		}
		size := len(key) + entryOverhead
		if c.sizeOf != nil {
			size += c.sizeOf(entry.value)
		}
		stats.EstimatedBytes += int64(size)
	}
	return stats
}

// entryOverhead approximates per-entry bookkeeping (list element, map slot, timestamps).
const entryOverhead = 96

// VectorSize estimates the bytes held by an embedding.
func VectorSize(v []float32) int { return len(v) * 4 }

// StringSize estimates the bytes held by a string value.
func StringSize(s string) int { return len(s) }
