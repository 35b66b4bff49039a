// Package evictor runs the background sweep that drops stale sessions.
package evictor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/gazecluster/pkg/logger"
	"github.com/okian/gazecluster/pkg/metrics"
)

// Default eviction configuration constants.
const (
	defaultInterval = 5 * time.Second
	defaultTTL      = 5 * time.Second
)

// Sweeper removes entries older than ttl as of now.
type Sweeper interface {
	EvictStale(ctx context.Context, now time.Time, ttl time.Duration) (int, error)
}

// Evictor periodically sweeps a store until stopped.
type Evictor struct {
	store    Sweeper
	interval time.Duration
	ttl      time.Duration
	now      func() time.Time

	shutdown     chan struct{}
	done         chan struct{}
	shutdownOnce sync.Once

	logger logger.Logger
}

// New creates an evictor over store with configuration options.
func New(store Sweeper, opts ...Option) *Evictor {
	e := &Evictor{
		store:    store,
		interval: defaultInterval,
		ttl:      defaultTTL,
		now:      time.Now,
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.logger == nil {
		e.logger = logger.Get().Named("evictor")
	}
	return e
}

// Interval returns the sweep period.
func (e *Evictor) Interval() time.Duration { return e.interval }

// TTL returns the staleness bound.
func (e *Evictor) TTL() time.Duration { return e.ttl }

// Run sweeps every interval until ctx is cancelled or Shutdown is called.
func (e *Evictor) Run(ctx context.Context) {
	defer close(e.done)

	e.logger.Info(ctx, "evictor started",
		logger.String("interval", e.interval.String()),
		logger.String("ttl", e.ttl.String()),
	)

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-e.shutdown:
			return
		case <-ticker.C:
			if _, err := e.Sweep(ctx); err != nil {
				e.logger.Error(ctx, "eviction sweep failed", logger.Error(err))
			}
		}
	}
}

// Sweep runs one eviction pass. A panic inside the store is recovered and
// returned as an error so the loop keeps going.
func (e *Evictor) Sweep(ctx context.Context) (removed int, err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("eviction sweep panicked: %v", r)
		}
		if err != nil {
			metrics.RecordSweepFailure()
			metrics.RecordErrorByComponent("evictor", "sweep_error")
			metrics.RecordErrorByType("sweep_error", "medium")
			return
		}
		metrics.RecordSweepDuration(float64(time.Since(start).Microseconds()) / 1000)
		metrics.RecordEvictions(removed)
	}()

	removed, err = e.store.EvictStale(ctx, e.now(), e.ttl)
	if err != nil {
		return 0, fmt.Errorf("evict stale sessions: %w", err)
	}
	if removed > 0 {
		e.logger.Debug(ctx, "swept stale sessions", logger.Int("removed", removed))
	}
	return removed, nil
}

// Shutdown stops the loop and waits for it to exit or ctx to expire.
// It must only be called after Run has been started.
func (e *Evictor) Shutdown(ctx context.Context) error {
	e.shutdownOnce.Do(func() { close(e.shutdown) })

	select {
	case <-e.done:
		return nil
	case <-ctx.Done():
		e.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}
