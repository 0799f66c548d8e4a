// Package dedupe tracks submissions that are in flight so that a second,
// overlapping submission for the same key is refused instead of duplicated.
package dedupe

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
)

// Guard records in-flight keys to ensure at-most-one concurrent call per key.
type Guard interface {
	// Acquire atomically checks whether key is held and takes it if not.
	// Returns ErrInFlight when the key is held, ErrFull when the guard is at
	// capacity, or the context error when ctx is already done.
	Acquire(ctx context.Context, key string) error

	// Release frees key so it can be acquired again. Releasing a key that
	// is not held is a no-op.
	Release(ctx context.Context, key string)

	Size() int64
}

// inMemoryGuard implements Guard with a map of acquisition times.
type inMemoryGuard struct {
	mu      sync.Mutex
	held    map[string]time.Time
	maxSize int           // 0 or negative = unbounded
	ttl     time.Duration // 0 or negative = keys never expire
	clock   clockwork.Clock
	size    atomic.Int64
}

// NewInMemoryGuard creates a new in-memory guard with configuration options.
func NewInMemoryGuard(opts ...Option) Guard {
	g := &inMemoryGuard{
		maxSize: 10000,
		ttl:     2 * time.Minute,
		clock:   clockwork.NewRealClock(),
	}

	for _, opt := range opts {
		opt(g)
	}

	g.held = make(map[string]time.Time)
	return g
}

func (g *inMemoryGuard) Acquire(ctx context.Context, key string) error {
	if ctx != nil && ctx.Err() != nil {
		return ctx.Err()
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.clock.Now()
	if at, exists := g.held[key]; exists {
		if !g.expired(at, now) {
			return ErrInFlight
		}
		// abandoned by a holder that never released
		g.held[key] = now
		return nil
	}

	if g.maxSize > 0 && len(g.held) >= g.maxSize {
		g.purgeExpired(now)
		if len(g.held) >= g.maxSize {
			return ErrFull
		}
	}

	g.held[key] = now
	g.size.Add(1)
	return nil
}

func (g *inMemoryGuard) Release(ctx context.Context, key string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.held[key]; exists {
		delete(g.held, key)
		g.size.Add(-1)
	}
}

// Size returns the number of keys currently held, including abandoned ones
// not yet purged.
func (g *inMemoryGuard) Size() int64 {
	return g.size.Load()
}

func (g *inMemoryGuard) expired(at, now time.Time) bool {
	return g.ttl > 0 && now.Sub(at) >= g.ttl
}

// purgeExpired must be called with g.mu held.
func (g *inMemoryGuard) purgeExpired(now time.Time) {
	for key, at := range g.held {
		if g.expired(at, now) {
			delete(g.held, key)
			g.size.Add(-1)
		}
	}
}
