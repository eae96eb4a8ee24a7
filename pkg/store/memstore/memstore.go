// Package memstore is an in-memory replication.Store, keeping events
// ordered by local sequence number in a btree the same way
// pkg/causality orders dots, so replay always walks them ascending.
package memstore

import (
	"context"
	"sync"

	"github.com/google/btree"

	"github.com/crdtlab/replikit/pkg/replication"
)

type eventItem[D any] struct {
	event replication.Event[D]
}

func (e eventItem[D]) Less(other btree.Item) bool {
	return e.event.LocalSeq < other.(eventItem[D]).event.LocalSeq
}

// Store is a concurrency-safe, process-local replication.Store[D]. It does
// not survive a restart; use pkg/store/filestore for durability.
type Store[D any] struct {
	mu       sync.RWMutex
	events   *btree.BTree
	snapshot *replication.Snapshot[D]
}

func New[D any]() *Store[D] {
	return &Store[D]{events: btree.New(32)}
}

func (s *Store[D]) SaveSnapshot(_ context.Context, snapshot replication.Snapshot[D]) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := snapshot
	s.snapshot = &cp
	return nil
}

func (s *Store[D]) LoadSnapshot(_ context.Context) (*replication.Snapshot[D], bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snapshot == nil {
		return nil, false, nil
	}
	cp := *s.snapshot
	return &cp, true, nil
}

func (s *Store[D]) SaveEvents(_ context.Context, events []replication.Event[D]) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range events {
		s.events.ReplaceOrInsert(eventItem[D]{event: e})
	}
	return nil
}

func (s *Store[D]) LoadEvents(_ context.Context, startSeq uint64) ([]replication.Event[D], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]replication.Event[D], 0, s.events.Len())
	pivot := eventItem[D]{event: replication.Event[D]{LocalSeq: startSeq}}
	s.events.AscendGreaterOrEqual(pivot, func(item btree.Item) bool {
		out = append(out, item.(eventItem[D]).event)
		return true
	})
	return out, nil
}
