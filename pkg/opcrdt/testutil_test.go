package opcrdt

import (
	"context"
	"sync"

	"github.com/crdtlab/replikit/pkg/replication"
)

// memStore is a minimal in-process replication.Store used only by this
// package's tests.
type memStore[D any] struct {
	mu       sync.Mutex
	snapshot *replication.Snapshot[D]
	events   []replication.Event[D]
}

func newMemStore[D any]() *memStore[D] { return &memStore[D]{} }

func (s *memStore[D]) SaveSnapshot(_ context.Context, snap replication.Snapshot[D]) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = &snap
	return nil
}

func (s *memStore[D]) LoadSnapshot(_ context.Context) (*replication.Snapshot[D], bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snapshot == nil {
		return nil, false, nil
	}
	snap := *s.snapshot
	return &snap, true, nil
}

func (s *memStore[D]) SaveEvents(_ context.Context, events []replication.Event[D]) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, events...)
	return nil
}

func (s *memStore[D]) LoadEvents(_ context.Context, startSeq uint64) ([]replication.Event[D], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]replication.Event[D], 0, len(s.events))
	for _, e := range s.events {
		if e.LocalSeq >= startSeq {
			out = append(out, e)
		}
	}
	return out, nil
}
