package quote

import (
	"sync"
	"time"
)

// Freshness classifies a cache lookup.
type Freshness int

const (
	// Miss means no entry exists for the symbol.
	Miss Freshness = iota
	// Fresh means the entry is younger than the TTL.
	Fresh
	// Stale means an entry exists but has outlived the TTL.
	Stale
)

// Cache stores the last known quote per symbol with a fixed TTL.
// Stale entries are never evicted; they stay available as fallback, so
// memory is bounded by the symbol universe rather than request volume.
type Cache struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.RWMutex
	entries map[string]Entry
}

// NewCache returns a cache with the given TTL. now may be nil to use
// time.Now.
func NewCache(ttl time.Duration, now func() time.Time) *Cache {
	if now == nil {
		now = time.Now
	}
	return &Cache{
		ttl:     ttl,
		now:     now,
		entries: make(map[string]Entry),
	}
}

// TTL reports the configured freshness window.
func (c *Cache) TTL() time.Duration { return c.ttl }

// Get returns the stored entry for symbol and whether it is fresh, stale,
// or absent. Absence is a normal outcome, not an error.
func (c *Cache) Get(symbol string) (Entry, Freshness) {
	c.mu.RLock()
	e, ok := c.entries[symbol]
	c.mu.RUnlock()
	if !ok {
		return Entry{}, Miss
	}
	if c.now().Sub(e.FetchedAt) < c.ttl {
		return e, Fresh
	}
	return e, Stale
}

// Put unconditionally replaces the entry for symbol, stamping it with the
// current time.
func (c *Cache) Put(symbol string, q Quote) {
	e := Entry{Quote: q, FetchedAt: c.now()}
	c.mu.Lock()
	c.entries[symbol] = e
	c.mu.Unlock()
}

// Len reports the number of stored entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
