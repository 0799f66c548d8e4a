// Package cache provides a small TTL cache with an injectable clock.
package cache

import (
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// DefaultTTL matches how long fetched documents stay fresh.
const DefaultTTL = 5 * time.Minute

// Option configures a Cache.
type Option func(*options)

type options struct {
	ttl   time.Duration
	clock clockwork.Clock
}

// WithTTL sets how long entries stay fresh. Non-positive values are ignored.
func WithTTL(ttl time.Duration) Option {
	return func(o *options) {
		if ttl > 0 {
			o.ttl = ttl
		}
	}
}

// WithClock sets the clock used to stamp and expire entries.
func WithClock(c clockwork.Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

type entry[V any] struct {
	value    V
	storedAt time.Time
}

// Cache maps string keys to values that expire after a fixed TTL. Expired
// entries stay available through Stale until they are replaced or
// invalidated.
type Cache[V any] struct {
	mu      sync.RWMutex
	entries map[string]entry[V]
	ttl     time.Duration
	clock   clockwork.Clock
}

// New creates an empty cache.
func New[V any](opts ...Option) *Cache[V] {
	o := options{ttl: DefaultTTL, clock: clockwork.NewRealClock()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Cache[V]{
		entries: make(map[string]entry[V]),
		ttl:     o.ttl,
		clock:   o.clock,
	}
}

// Get returns the value for key if it is present and fresh.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok || c.expired(e) {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Stale returns the value for key regardless of age.
func (c *Cache[V]) Stale(key string) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	return e.value, ok
}

// Set stores value under key, stamped with the current time.
func (c *Cache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry[V]{value: value, storedAt: c.clock.Now()}
}

// Invalidate removes key.
func (c *Cache[V]) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// InvalidateAll removes every entry.
func (c *Cache[V]) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry[V])
}

// Len returns the number of stored entries, fresh or not.
func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// EntryStats describes one cached entry.
type EntryStats struct {
	Key   string        `json:"key"`
	Age   time.Duration `json:"age"`
	Valid bool          `json:"valid"`
}

// Stats summarises the cache contents.
type Stats struct {
	Size    int           `json:"size"`
	TTL     time.Duration `json:"ttl"`
	Entries []EntryStats  `json:"entries"`
}

// Stats reports the size and the age and freshness of each entry, ordered by key.
func (c *Cache[V]) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	now := c.clock.Now()
	st := Stats{Size: len(c.entries), TTL: c.ttl, Entries: make([]EntryStats, 0, len(c.entries))}
	for k, e := range c.entries {
		st.Entries = append(st.Entries, EntryStats{Key: k, Age: now.Sub(e.storedAt), Valid: !c.expired(e)})
	}
	sort.Slice(st.Entries, func(i, j int) bool { return st.Entries[i].Key < st.Entries[j].Key })
	return st
}

func (c *Cache[V]) expired(e entry[V]) bool {
	return c.clock.Since(e.storedAt) >= c.ttl
}
