package memstore

import (
	"context"
	"testing"

	"github.com/crdtlab/replikit/pkg/replication"
)

func TestStoreSaveLoadEvents(t *testing.T) {
	ctx := context.Background()
	s := New[int64]()

	events := []replication.Event[int64]{
		{Origin: 1, OriginSeq: 1, LocalSeq: 3, Data: 3},
		{Origin: 1, OriginSeq: 2, LocalSeq: 1, Data: 1},
		{Origin: 1, OriginSeq: 3, LocalSeq: 2, Data: 2},
	}
	if err := s.SaveEvents(ctx, events); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := s.LoadEvents(ctx, 1)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded) != 3 {
		t.Fatalf("expected 3 events, got %d", len(loaded))
	}
	for i, e := range loaded {
		if e.LocalSeq != uint64(i+1) {
			t.Fatalf("expected ascending local seq, got %v", loaded)
		}
	}

	loaded, err = s.LoadEvents(ctx, 2)
	if err != nil {
		t.Fatalf("load from 2: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("expected 2 events from seq 2, got %d", len(loaded))
	}
}

func TestStoreSnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := New[int64]()

	if _, ok, err := s.LoadSnapshot(ctx); err != nil || ok {
		t.Fatalf("expected no snapshot initially, ok=%v err=%v", ok, err)
	}

	snap := replication.Snapshot[int64]{ID: 7, Seq: 42}
	if err := s.SaveSnapshot(ctx, snap); err != nil {
		t.Fatalf("save snapshot: %v", err)
	}

	loaded, ok, err := s.LoadSnapshot(ctx)
	if err != nil || !ok {
		t.Fatalf("expected snapshot present, ok=%v err=%v", ok, err)
	}
	if loaded.ID != 7 || loaded.Seq != 42 {
		t.Fatalf("unexpected snapshot: %+v", loaded)
	}
}
