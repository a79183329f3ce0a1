package storage

import (
	"context"
	"sync"
	"time"

	"github.com/openpipe-labs/flowpulse/internal/metrics"
	"github.com/openpipe-labs/flowpulse/internal/query"
)

// ResultCache holds query results keyed by the literal query text.
// It is pluggable so aggregations stay testable against a no-cache stub.
type ResultCache interface {
	Get(key string) (*Table, bool)
	Set(key string, t *Table)
	// Clear drops all cached entries.
	Clear()
}

// NopCache is a ResultCache that caches nothing.
type NopCache struct{}

func (NopCache) Get(string) (*Table, bool) { return nil, false }
func (NopCache) Set(string, *Table)        {}
func (NopCache) Clear()                    {}

type cacheEntry struct {
	table     *Table
	expiresAt time.Time
}

// TTLCache is an in-memory ResultCache with per-entry expiry. It bounds
// warehouse load under repeated UI interaction; expiry is a hard bound,
// not a freshness guarantee.
type TTLCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewTTLCache creates a cache with the given time-to-live and starts
// its janitor.
func NewTTLCache(ttl time.Duration) *TTLCache {
	c := &TTLCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		now:     time.Now,
	}
	go c.cleanup()
	return c
}

// Get returns the cached table for the key if it has not expired.
func (c *TTLCache) Get(key string) (*Table, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok || c.now().After(e.expiresAt) {
		return nil, false
	}
	return e.table, true
}

// Set stores a table under the key with the cache's TTL.
func (c *TTLCache) Set(key string, t *Table) {
	c.mu.Lock()
	c.entries[key] = cacheEntry{table: t, expiresAt: c.now().Add(c.ttl)}
	c.mu.Unlock()
}

// Clear drops every cached entry.
func (c *TTLCache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]cacheEntry)
	c.mu.Unlock()
}

func (c *TTLCache) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	for range ticker.C {
		c.mu.Lock()
		for key, e := range c.entries {
			if c.now().After(e.expiresAt) {
				delete(c.entries, key)
			}
		}
		c.mu.Unlock()
	}
}

// CachedEventRepo wraps an EventRepository with a ResultCache.
type CachedEventRepo struct {
	inner EventRepository
	cache ResultCache
}

// NewCachedEventRepo wraps the repository; a nil cache disables caching.
func NewCachedEventRepo(inner EventRepository, cache ResultCache) *CachedEventRepo {
	if cache == nil {
		cache = NopCache{}
	}
	return &CachedEventRepo{inner: inner, cache: cache}
}

// Query serves from the cache when possible. Failed queries are never
// cached.
func (c *CachedEventRepo) Query(ctx context.Context, q query.Query) (*Table, error) {
	key := q.Key()
	if t, ok := c.cache.Get(key); ok {
		metrics.CacheHits.Inc()
		return t, nil
	}
	metrics.CacheMisses.Inc()

	t, err := c.inner.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	c.cache.Set(key, t)
	return t, nil
}

// Clear drops all cached results.
func (c *CachedEventRepo) Clear() {
	c.cache.Clear()
}
