package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/okian/gazecluster/internal/domain/model"
	"github.com/okian/gazecluster/pkg/logger"
)

func init() {
	_ = logger.Init()
}

var baseTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func fixations(xy ...float64) []model.Fixation {
	out := make([]model.Fixation, 0, len(xy)/2)
	for i := 0; i+1 < len(xy); i += 2 {
		out = append(out, model.NewFixation(xy[i], xy[i+1]))
	}
	return out
}

func saccades(raw ...string) []model.Saccade {
	out := make([]model.Saccade, 0, len(raw))
	for _, r := range raw {
		out = append(out, model.Saccade{Raw: json.RawMessage(r)})
	}
	return out
}

// runStoreContract exercises the behaviour every backend must share.
func runStoreContract(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("EmptyStore", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		if n := s.Count(ctx); n != 0 {
			t.Errorf("expected count 0, got %d", n)
		}
		entries, err := s.Snapshot(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(entries) != 0 {
			t.Errorf("expected empty snapshot, got %d entries", len(entries))
		}
		if _, err := s.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("UpsertReplacesEntry", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		if err := s.Upsert(ctx, "s1", fixations(0.1, 0.1, 0.2, 0.2), saccades(`{"a":1}`), baseTime); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := s.Upsert(ctx, "s1", fixations(0.9, 0.9), saccades(`{"b":2}`, `[1,2]`), baseTime.Add(time.Second)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		entry, err := s.Get(ctx, "s1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(entry.Fixations) != 1 || entry.Fixations[0].XPercent != 0.9 {
			t.Errorf("expected the second submission only, got %+v", entry.Fixations)
		}
		if len(entry.Saccades) != 2 || string(entry.Saccades[1].Raw) != `[1,2]` {
			t.Errorf("expected saccades to be replaced, got %+v", entry.Saccades)
		}
		if !entry.LastSeen.Equal(baseTime.Add(time.Second)) {
			t.Errorf("expected last seen %v, got %v", baseTime.Add(time.Second), entry.LastSeen)
		}
		if n := s.Count(ctx); n != 1 {
			t.Errorf("expected count 1, got %d", n)
		}
	})

	t.Run("SnapshotOrderedByLastSeen", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		_ = s.Upsert(ctx, "late", fixations(0.5, 0.5), nil, baseTime.Add(2*time.Second))
		_ = s.Upsert(ctx, "early", fixations(0.1, 0.1), nil, baseTime)
		_ = s.Upsert(ctx, "b-tie", fixations(0.3, 0.3), nil, baseTime.Add(time.Second))
		_ = s.Upsert(ctx, "a-tie", fixations(0.2, 0.2), nil, baseTime.Add(time.Second))

		entries, err := s.Snapshot(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := []string{"early", "a-tie", "b-tie", "late"}
		if len(entries) != len(want) {
			t.Fatalf("expected %d entries, got %d", len(want), len(entries))
		}
		for i, id := range want {
			if entries[i].SessionID != id {
				t.Errorf("position %d: expected %s, got %s", i, id, entries[i].SessionID)
			}
		}
	})

	t.Run("EvictStale", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		ttl := 5 * time.Second

		_ = s.Upsert(ctx, "old", fixations(0.1, 0.1), nil, baseTime)
		_ = s.Upsert(ctx, "edge", fixations(0.2, 0.2), nil, baseTime.Add(time.Second))
		_ = s.Upsert(ctx, "fresh", fixations(0.3, 0.3), nil, baseTime.Add(4*time.Second))

		// now - edge.LastSeen == ttl exactly, which is not stale.
		now := baseTime.Add(6 * time.Second)
		removed, err := s.EvictStale(ctx, now, ttl)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if removed != 1 {
			t.Errorf("expected 1 removed, got %d", removed)
		}
		if _, err := s.Get(ctx, "old"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected old to be evicted, got %v", err)
		}

		entries, _ := s.Snapshot(ctx)
		for _, e := range entries {
			if now.Sub(e.LastSeen) > ttl {
				t.Errorf("stale entry %s survived the sweep", e.SessionID)
			}
		}

		// A second sweep at the same instant removes nothing.
		removed, err = s.EvictStale(ctx, now, ttl)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if removed != 0 {
			t.Errorf("expected idempotent sweep, removed %d", removed)
		}
		if n := s.Count(ctx); n != 2 {
			t.Errorf("expected 2 sessions left, got %d", n)
		}
	})

	t.Run("RefreshBeforeSweepSurvives", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		ttl := 5 * time.Second

		_ = s.Upsert(ctx, "s1", fixations(0.1, 0.1), nil, baseTime)
		_ = s.Upsert(ctx, "s1", fixations(0.2, 0.2), nil, baseTime.Add(10*time.Second))

		removed, err := s.EvictStale(ctx, baseTime.Add(11*time.Second), ttl)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if removed != 0 {
			t.Errorf("expected refreshed session to survive, removed %d", removed)
		}
	})

	t.Run("ConcurrentUpserts", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		const writers = 16
		const rounds = 20

		var wg sync.WaitGroup
		for w := 0; w < writers; w++ {
			wg.Add(1)
			go func(w int) {
				defer wg.Done()
				id := fmt.Sprintf("s%d", w)
				for r := 0; r < rounds; r++ {
					// Each submission carries r+1 identical fixations.
					batch := make([]model.Fixation, r+1)
					for i := range batch {
						batch[i] = model.NewFixation(float64(r)/rounds, float64(w)/writers)
					}
					if err := s.Upsert(ctx, id, batch, nil, baseTime.Add(time.Duration(r)*time.Millisecond)); err != nil {
						t.Errorf("upsert failed: %v", err)
						return
					}
				}
			}(w)
		}

		done := make(chan struct{})
		go func() {
			defer close(done)
			for i := 0; i < 50; i++ {
				entries, err := s.Snapshot(ctx)
				if err != nil {
					t.Errorf("snapshot failed: %v", err)
					return
				}
				for _, e := range entries {
					// A torn read would mix sizes and coordinates from different rounds.
					x := e.Fixations[0].XPercent
					if len(e.Fixations) != int(x*rounds+0.5)+1 {
						t.Errorf("torn entry %s: %d fixations for round x=%v", e.SessionID, len(e.Fixations), x)
						return
					}
				}
			}
		}()

		wg.Wait()
		<-done

		if n := s.Count(ctx); n != writers {
			t.Errorf("expected %d sessions, got %d", writers, n)
		}
		for w := 0; w < writers; w++ {
			entry, err := s.Get(ctx, fmt.Sprintf("s%d", w))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(entry.Fixations) != rounds {
				t.Errorf("expected final submission of %d fixations, got %d", rounds, len(entry.Fixations))
			}
		}
	})
}
