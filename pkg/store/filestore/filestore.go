// Package filestore is a durable, append-only replication.Store backed by
// hashicorp/go-msgpack. Each event is msgpack-encoded and appended to a
// single log file; LoadEvents decodes the whole log back in order.
//
// A CRDT's in-memory state (the replication.Crdt[D] value held in a
// Snapshot) cannot be msgpack-encoded generically: Go's msgpack codec needs
// a concrete type, and replication.Store is deliberately CRDT-agnostic.
// SaveSnapshot therefore only records bookkeeping (ID, Seq, Version,
// Observed), never the CRDT value itself, and LoadSnapshot always reports
// "no snapshot" so NewReplicator falls back to replaying the full event
// log from the beginning. That trades a bit of startup cost for never
// risking a snapshot that silently disagrees with the replayed state.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/hashicorp/go-msgpack/v2/codec"

	"github.com/crdtlab/replikit/pkg/replication"
)

var msgpackHandle = &codec.MsgpackHandle{}

type snapshotMeta struct {
	ID       replication.ReplicaID
	Seq      uint64
	Version  map[replication.ReplicaID]uint64
	Observed map[replication.ReplicaID]uint64
}

// Store is a durable replication.Store[D] rooted at a directory holding an
// events log file and a bookkeeping-only snapshot file.
type Store[D any] struct {
	mu           sync.Mutex
	eventsPath   string
	snapshotPath string
}

// Open prepares a Store rooted at dir, creating it if necessary.
func Open[D any](dir string) (*Store[D], error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("filestore: mkdir: %w", err)
	}
	return &Store[D]{
		eventsPath:   dir + "/events.msgpack",
		snapshotPath: dir + "/snapshot.msgpack",
	}, nil
}

func (s *Store[D]) SaveEvents(_ context.Context, events []replication.Event[D]) error {
	if len(events) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.eventsPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("filestore: open events log: %w", err)
	}
	defer f.Close()

	enc := codec.NewEncoder(f, msgpackHandle)
	for _, e := range events {
		if err := enc.Encode(e); err != nil {
			return fmt.Errorf("filestore: encode event: %w", err)
		}
	}
	return nil
}

func (s *Store[D]) LoadEvents(_ context.Context, startSeq uint64) ([]replication.Event[D], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.eventsPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("filestore: open events log: %w", err)
	}
	defer f.Close()

	dec := codec.NewDecoder(f, msgpackHandle)
	var out []replication.Event[D]
	for {
		var e replication.Event[D]
		if err := dec.Decode(&e); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("filestore: decode event: %w", err)
		}
		if e.LocalSeq >= startSeq {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *Store[D]) SaveSnapshot(_ context.Context, snapshot replication.Snapshot[D]) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	meta := snapshotMeta{
		ID:       snapshot.ID,
		Seq:      snapshot.Seq,
		Version:  snapshot.Version.Raw(),
		Observed: snapshot.Observed,
	}

	f, err := os.Create(s.snapshotPath)
	if err != nil {
		return fmt.Errorf("filestore: create snapshot file: %w", err)
	}
	defer f.Close()

	enc := codec.NewEncoder(f, msgpackHandle)
	if err := enc.Encode(meta); err != nil {
		return fmt.Errorf("filestore: encode snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot always reports no snapshot available; see the package doc
// for why only bookkeeping, not CRDT state, is ever persisted here.
func (s *Store[D]) LoadSnapshot(_ context.Context) (*replication.Snapshot[D], bool, error) {
	return nil, false, nil
}
