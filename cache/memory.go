package cache

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryConfig configures the in-memory cache.
type MemoryConfig struct {
	// MaxSize is the maximum number of resident entries.
	// Default: 1000
	MaxSize int

	// CleanupThreshold is the occupancy fraction above which a sweep also
	// forces eviction. Default: 0.8
	CleanupThreshold float64

	// EvictFraction is the share of entries removed by a forced eviction
	// (always at least one entry). Default: 0.10
	EvictFraction float64
}

type entry struct {
	value       []byte
	createdAt   time.Time
	ttl         time.Duration
	accessCount int64
	lastAccess  time.Time
}

func (e *entry) expired(now time.Time) bool {
	return now.Sub(e.createdAt) > e.ttl
}

// Memory is a bounded in-memory cache with TTL expiry and frequency-first
// eviction: the primary eviction key is access count, ties broken by
// recency, so a row reread on every interaction outlives a one-shot lookup
// even when the latter is newer.
type Memory struct {
	config MemoryConfig

	mu      sync.Mutex
	entries map[string]*entry

	hits      int64
	misses    int64
	evictions int64
	sweeps    int64
}

// NewMemory creates a new in-memory cache.
func NewMemory(config MemoryConfig) *Memory {
	// Apply defaults
	if config.MaxSize <= 0 {
		config.MaxSize = 1000
	}
	if config.CleanupThreshold <= 0 || config.CleanupThreshold > 1 {
		config.CleanupThreshold = 0.8
	}
	if config.EvictFraction <= 0 || config.EvictFraction > 1 {
		config.EvictFraction = 0.10
	}

	return &Memory{
		config:  config,
		entries: make(map[string]*entry),
	}
}

// Get retrieves a value, bumping its access count on a hit. An expired
// entry counts as a miss and is removed on the spot.
func (c *Memory) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false
	}

	now := time.Now()
	if e.expired(now) {
		delete(c.entries, key)
		c.evictions++
		c.misses++
		return nil, false
	}

	e.accessCount++
	e.lastAccess = now
	c.hits++
	return e.value, true
}

// Set inserts or replaces an entry. When inserting at capacity, the
// least-accessed entries are evicted first. TTL=0 means no caching.
func (c *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if ttl <= 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.config.MaxSize {
		c.evictColdestLocked()
	}

	now := time.Now()
	c.entries[key] = &entry{
		value:      value,
		createdAt:  now,
		ttl:        ttl,
		lastAccess: now,
	}
	return nil
}

// Delete removes a value. Idempotent - no error on miss.
func (c *Memory) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	return nil
}

// DeletePattern removes every entry whose key contains the substring.
func (c *Memory) DeletePattern(_ context.Context, substring string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key := range c.entries {
		if strings.Contains(key, substring) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Sweep physically removes all expired entries, then forces eviction if
// occupancy still exceeds the cleanup threshold. Returns the number of
// expired entries removed.
func (c *Memory) Sweep(_ context.Context) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	removed := 0
	for key, e := range c.entries {
		if e.expired(now) {
			delete(c.entries, key)
			c.evictions++
			removed++
		}
	}
	if removed > 0 {
		c.sweeps++
	}

	if float64(len(c.entries)) > float64(c.config.MaxSize)*c.config.CleanupThreshold {
		c.evictColdestLocked()
	}

	return removed
}

// evictColdestLocked removes the EvictFraction of entries with the lowest
// access counts, ties broken by least-recent access. Callers hold c.mu.
func (c *Memory) evictColdestLocked() {
	if len(c.entries) == 0 {
		return
	}

	type candidate struct {
		key string
		e   *entry
	}
	candidates := make([]candidate, 0, len(c.entries))
	for key, e := range c.entries {
		candidates = append(candidates, candidate{key: key, e: e})
	}

	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i].e, candidates[j].e
		if a.accessCount != b.accessCount {
			return a.accessCount < b.accessCount
		}
		return a.lastAccess.Before(b.lastAccess)
	})

	remove := int(float64(len(candidates)) * c.config.EvictFraction)
	if remove < 1 {
		remove = 1
	}

	for _, cand := range candidates[:remove] {
		delete(c.entries, cand.key)
		c.evictions++
	}
}

// Cap returns the configured maximum number of resident entries.
func (c *Memory) Cap() int {
	return c.config.MaxSize
}

// Len returns the number of physically resident entries.
func (c *Memory) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns cumulative cache statistics.
func (c *Memory) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := Stats{
		Size:      len(c.entries),
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
		Sweeps:    c.sweeps,
	}
	if total := c.hits + c.misses; total > 0 {
		stats.HitRate = float64(c.hits) / float64(total)
	}
	return stats
}

// Ensure Memory implements Cache
var _ Cache = (*Memory)(nil)
