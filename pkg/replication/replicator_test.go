package replication

import (
	"context"
	"sync"
	"testing"
)

// testCounter is a minimal op-based grow-only counter used only to
// exercise the Replicator state machine in isolation.
type testCounter struct {
	total int64
}

func (c *testCounter) Query() any { return c.total }

func (c *testCounter) Prepare(cmd any) int64 {
	return cmd.(int64)
}

func (c *testCounter) Effect(event Event[int64]) {
	c.total += event.Data
}

func (c *testCounter) Clone() Crdt[int64] {
	return &testCounter{total: c.total}
}

// memStore is a trivial in-process Store for tests.
type memStore struct {
	mu       sync.Mutex
	snapshot *Snapshot[int64]
	events   []Event[int64]
}

func newMemStore() *memStore { return &memStore{} }

func (s *memStore) SaveSnapshot(_ context.Context, snap Snapshot[int64]) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := snap.clone()
	s.snapshot = &cp
	return nil
}

func (s *memStore) LoadSnapshot(_ context.Context) (*Snapshot[int64], bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snapshot == nil {
		return nil, false, nil
	}
	cp := s.snapshot.clone()
	return &cp, true, nil
}

func (s *memStore) SaveEvents(_ context.Context, events []Event[int64]) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, events...)
	return nil
}

func (s *memStore) LoadEvents(_ context.Context, startSeq uint64) ([]Event[int64], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event[int64], 0, len(s.events))
	for _, e := range s.events {
		if e.LocalSeq >= startSeq {
			out = append(out, e)
		}
	}
	return out, nil
}

func newTestReplicator(t *testing.T, id ReplicaID) *Replicator[int64] {
	t.Helper()
	r, err := NewReplicator[int64](context.Background(), id, &testCounter{}, newMemStore())
	if err != nil {
		t.Fatalf("NewReplicator: %v", err)
	}
	return r
}

func TestReplicatorCommandAppliesLocally(t *testing.T) {
	r := newTestReplicator(t, 1)
	ctx := context.Background()

	if _, err := r.Send(ctx, CommandMsg[int64](int64(5))); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got := r.Query().(int64); got != 5 {
		t.Fatalf("expected query 5, got %d", got)
	}
}

func TestReplicatorConnectReplicatesEvents(t *testing.T) {
	ctx := context.Background()
	a := newTestReplicator(t, 1)
	b := newTestReplicator(t, 2)

	if _, err := a.Send(ctx, CommandMsg[int64](int64(3))); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if _, err := a.Send(ctx, CommandMsg[int64](int64(4))); err != nil {
		t.Fatalf("Send: %v", err)
	}

	if err := Connect[int64](ctx, b, a); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	if got := b.Query().(int64); got != 7 {
		t.Fatalf("expected b to converge to 7, got %d", got)
	}
}

func TestReplicatorConnectIsIdempotent(t *testing.T) {
	ctx := context.Background()
	a := newTestReplicator(t, 1)
	b := newTestReplicator(t, 2)

	if _, err := a.Send(ctx, CommandMsg[int64](int64(10))); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if err := Connect[int64](ctx, b, a); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := Connect[int64](ctx, b, a); err != nil {
		t.Fatalf("second Connect: %v", err)
	}

	if got := b.Query().(int64); got != 10 {
		t.Fatalf("expected events not to be double-applied, got %d", got)
	}
}

func TestReplicatorRestoresFromStore(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()

	r, err := NewReplicator[int64](ctx, 1, &testCounter{}, store)
	if err != nil {
		t.Fatalf("NewReplicator: %v", err)
	}
	if _, err := r.Send(ctx, CommandMsg[int64](int64(6))); err != nil {
		t.Fatalf("Send: %v", err)
	}

	restored, err := NewReplicator[int64](ctx, 1, &testCounter{}, store)
	if err != nil {
		t.Fatalf("NewReplicator (restore): %v", err)
	}
	if got := restored.Query().(int64); got != 6 {
		t.Fatalf("expected restored replicator to replay to 6, got %d", got)
	}
}
