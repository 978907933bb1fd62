package memory

import (
	"strings"
	"time"

	"github.com/yndnr/sheetsync-go/pkg/cmap"
)

// DefaultMaxAge is the staleness limit used when callers pass a zero maxAge.
const DefaultMaxAge = 60 * time.Second

// cacheEntry is a cached value with its insertion time.
type cacheEntry struct {
	value    any
	storedAt time.Time
}

// Cache is a process-scoped key/value store with lazy, read-time expiry.
//
// Entries never expire on their own: Get compares the entry age against a
// caller-supplied maxAge, so the same entry may be fresh for one caller and
// stale for another. Nothing is persisted.
type Cache struct {
	entries *cmap.Map[string, cacheEntry]
	now     func() time.Time
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithClock replaces the wall clock, mainly for tests.
func WithClock(now func() time.Time) CacheOption {
	return func(c *Cache) {
		c.now = now
	}
}

// NewCache creates an empty cache.
func NewCache(opts ...CacheOption) *Cache {
	c := &Cache{
		entries: cmap.New[string, cacheEntry](),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Set stores value under key, unconditionally replacing any prior entry.
func (c *Cache) Set(key string, value any) {
	c.entries.Set(key, cacheEntry{value: value, storedAt: c.now()})
}

// Get returns the value stored under key if it is at most maxAge old.
// A zero maxAge means DefaultMaxAge. Stale entries are left in place.
func (c *Cache) Get(key string, maxAge time.Duration) (any, bool) {
	entry, ok := c.entries.Get(key)
	if !ok {
		return nil, false
	}
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	if c.now().Sub(entry.storedAt) > maxAge {
		return nil, false
	}
	return entry.value, true
}

// Invalidate removes key.
func (c *Cache) Invalidate(key string) {
	c.entries.Delete(key)
}

// InvalidatePrefix removes every key starting with prefix and returns how
// many were removed.
func (c *Cache) InvalidatePrefix(prefix string) int {
	return c.entries.DeleteFunc(func(key string, _ cacheEntry) bool {
		return strings.HasPrefix(key, prefix)
	})
}

// InvalidateAll removes every entry.
func (c *Cache) InvalidateAll() {
	c.entries.Clear()
}

// Len returns the number of stored entries, stale ones included.
func (c *Cache) Len() int {
	return c.entries.Count()
}
