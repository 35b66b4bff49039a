package evictor

import (
	"time"

	"github.com/okian/gazecluster/pkg/logger"
)

// Option applies a configuration option to the Evictor.
type Option func(*Evictor)

// WithInterval sets the sweep period.
func WithInterval(interval time.Duration) Option {
	return func(e *Evictor) {
		if interval > 0 {
			e.interval = interval
		}
	}
}

// WithTTL sets how long a session may go without submitting.
func WithTTL(ttl time.Duration) Option {
	return func(e *Evictor) {
		if ttl > 0 {
			e.ttl = ttl
		}
	}
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Evictor) {
		if now != nil {
			e.now = now
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Evictor) {
		if l != nil {
			e.logger = l
		}
	}
}
