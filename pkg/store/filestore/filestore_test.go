package filestore

import (
	"context"
	"testing"

	"github.com/crdtlab/replikit/pkg/replication"
)

func TestFilestoreEventsRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := Open[int64](dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	events := []replication.Event[int64]{
		{Origin: 1, OriginSeq: 1, LocalSeq: 1, Data: 10},
		{Origin: 1, OriginSeq: 2, LocalSeq: 2, Data: 20},
	}
	if err := s.SaveEvents(ctx, events); err != nil {
		t.Fatalf("save: %v", err)
	}

	reopened, err := Open[int64](dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	loaded, err := reopened.LoadEvents(ctx, 1)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("expected 2 events, got %d", len(loaded))
	}
	if loaded[0].Data != 10 || loaded[1].Data != 20 {
		t.Fatalf("unexpected event data: %+v", loaded)
	}
}

func TestFilestoreLoadSnapshotAlwaysAbsent(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := Open[int64](dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.SaveSnapshot(ctx, replication.Snapshot[int64]{ID: 1, Seq: 5}); err != nil {
		t.Fatalf("save snapshot: %v", err)
	}

	_, ok, err := s.LoadSnapshot(ctx)
	if err != nil {
		t.Fatalf("load snapshot: %v", err)
	}
	if ok {
		t.Fatalf("expected filestore to never report a usable snapshot")
	}
}
