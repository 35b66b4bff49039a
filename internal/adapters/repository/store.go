// Package repository holds the shared aggregation state: one entry per
// student session, replaced on every submission and dropped once stale.
package repository

import (
	"context"
	"time"

	"github.com/okian/gazecluster/internal/domain/model"
)

// Store provides read/write access to the session entries.
//
// Implementations are safe for concurrent use. Each entry is written and
// read as a whole; a reader never sees half of a submission.
type Store interface {
	// Upsert replaces the entry for sessionID (creating it if absent) and
	// sets its last-seen time to now.
	Upsert(ctx context.Context, sessionID string, fixations []model.Fixation, saccades []model.Saccade, now time.Time) error

	// Snapshot returns a point-in-time copy of every entry, ordered by
	// last-seen time then session id.
	Snapshot(ctx context.Context) ([]model.SessionEntry, error)

	// EvictStale removes every entry with now - LastSeen > ttl and reports
	// how many were removed. An entry refreshed concurrently is kept.
	EvictStale(ctx context.Context, now time.Time, ttl time.Duration) (int, error)

	// Get returns one entry. Returns ErrNotFound if the session is unknown.
	Get(ctx context.Context, sessionID string) (model.SessionEntry, error)

	// Count returns the number of sessions currently held.
	Count(ctx context.Context) int

	// Close stops background work and releases connections.
	Close() error
}

// isStale reports whether an entry last seen at lastSeen has outlived ttl.
func isStale(now, lastSeen time.Time, ttl time.Duration) bool {
	return now.Sub(lastSeen) > ttl
}

func sinceMs(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000
}
