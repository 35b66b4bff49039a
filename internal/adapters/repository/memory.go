package repository

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/okian/gazecluster/internal/domain/model"
	"github.com/okian/gazecluster/pkg/logger"
	"github.com/okian/gazecluster/pkg/metrics"
)

const backendMemory = "memory"

// MemoryStore is an in-process Store guarded by a single RWMutex.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]model.SessionEntry

	logger logger.Logger
	gauge  sessionGauge
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore constructs an empty store and starts its metrics updater.
func NewMemoryStore(ctx context.Context, opts ...Option) *MemoryStore {
	o := newOptions(opts)
	s := &MemoryStore{
		sessions: make(map[string]model.SessionEntry),
		logger:   o.logger.Named(backendMemory),
	}
	s.gauge.start(ctx, o.metricsUpdateInterval, s.Count)
	return s
}

// Upsert implements Store.Upsert.
func (s *MemoryStore) Upsert(_ context.Context, sessionID string, fixations []model.Fixation, saccades []model.Saccade, now time.Time) error {
	start := time.Now()
	entry := model.SessionEntry{
		SessionID: sessionID,
		Fixations: slices.Clone(fixations),
		Saccades:  slices.Clone(saccades),
		LastSeen:  now,
	}

	s.mu.Lock()
	s.sessions[sessionID] = entry
	s.mu.Unlock()

	metrics.RecordStoreLatency(backendMemory, "upsert", sinceMs(start))
	return nil
}

// Snapshot implements Store.Snapshot.
func (s *MemoryStore) Snapshot(_ context.Context) ([]model.SessionEntry, error) {
	start := time.Now()
	s.mu.RLock()
	out := make([]model.SessionEntry, 0, len(s.sessions))
	for _, e := range s.sessions {
		// Entries are replaced, never mutated, so sharing the slices is safe.
		out = append(out, e)
	}
	s.mu.RUnlock()

	sortEntries(out)
	metrics.RecordStoreLatency(backendMemory, "snapshot", sinceMs(start))
	return out, nil
}

// EvictStale implements Store.EvictStale. The staleness check and the delete
// happen under the same write lock.
func (s *MemoryStore) EvictStale(ctx context.Context, now time.Time, ttl time.Duration) (int, error) {
	start := time.Now()
	removed := 0

	s.mu.Lock()
	for id, e := range s.sessions {
		if isStale(now, e.LastSeen, ttl) {
			delete(s.sessions, id)
			removed++
		}
	}
	remaining := len(s.sessions)
	s.mu.Unlock()

	metrics.RecordStoreLatency(backendMemory, "evict", sinceMs(start))
	metrics.UpdateSessionCount(remaining)
	if removed > 0 {
		s.logger.Debug(ctx, "evicted stale sessions", logger.Int("removed", removed), logger.Int("remaining", remaining))
	}
	return removed, nil
}

// Get implements Store.Get.
func (s *MemoryStore) Get(_ context.Context, sessionID string) (model.SessionEntry, error) {
	s.mu.RLock()
	e, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return model.SessionEntry{}, ErrNotFound
	}
	return e, nil
}

// Count implements Store.Count.
func (s *MemoryStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Close stops the metrics updater.
func (s *MemoryStore) Close() error {
	s.gauge.close()
	return nil
}

// sortEntries orders entries by last-seen time, then session id.
func sortEntries(entries []model.SessionEntry) {
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].LastSeen.Equal(entries[j].LastSeen) {
			return entries[i].LastSeen.Before(entries[j].LastSeen)
		}
		return entries[i].SessionID < entries[j].SessionID
	})
}
