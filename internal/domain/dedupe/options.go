package dedupe

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// Option applies a configuration option to the in-memory guard.
type Option func(*inMemoryGuard)

// WithMaxSize sets the maximum number of keys held at once.
// If maxSize > 0: Acquire fails with ErrFull once the limit is reached.
// If maxSize <= 0: unbounded.
func WithMaxSize(maxSize int) Option {
	return func(g *inMemoryGuard) {
		g.maxSize = maxSize
	}
}

// WithTTL sets how long a key may be held before it is considered abandoned
// and can be acquired again. Zero or negative disables expiry.
func WithTTL(ttl time.Duration) Option {
	return func(g *inMemoryGuard) {
		g.ttl = ttl
	}
}

// WithClock sets the clock used for expiry.
func WithClock(clock clockwork.Clock) Option {
	return func(g *inMemoryGuard) {
		if clock != nil {
			g.clock = clock
		}
	}
}
