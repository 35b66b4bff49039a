package repository

import (
	"context"
	"testing"
	"time"
)

func newTestMemoryStore(t *testing.T) Store {
	t.Helper()
	s := NewMemoryStore(context.Background(), WithMetricsUpdateInterval(10*time.Millisecond))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestMemoryStore(t *testing.T) {
	runStoreContract(t, newTestMemoryStore)
}

func TestMemoryStore_UpsertCopiesInput(t *testing.T) {
	ctx := context.Background()
	s := newTestMemoryStore(t)

	batch := fixations(0.1, 0.1, 0.2, 0.2)
	if err := s.Upsert(ctx, "s1", batch, nil, baseTime); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	batch[0].XPercent = 0.99

	entry, err := s.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entry.Fixations[0].XPercent != 0.1 {
		t.Errorf("caller mutation leaked into the store: %v", entry.Fixations[0].XPercent)
	}
}

func TestMemoryStore_CloseIsIdempotent(t *testing.T) {
	s := NewMemoryStore(context.Background())
	if err := s.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("unexpected error on second close: %v", err)
	}
}

func TestMemoryStore_StopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := NewMemoryStore(ctx, WithMetricsUpdateInterval(time.Millisecond))
	cancel()

	done := make(chan struct{})
	go func() {
		_ = s.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("metrics updater did not stop")
	}
}
