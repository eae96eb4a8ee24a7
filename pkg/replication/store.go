package replication

import "context"

// Store is the durability capability a Replicator is built on: snapshot
// persistence plus an append-only, local_seq-ordered event log. Concrete
// implementations live under pkg/store (memstore, filestore).
type Store[D any] interface {
	SaveSnapshot(ctx context.Context, snapshot Snapshot[D]) error
	LoadSnapshot(ctx context.Context) (*Snapshot[D], bool, error)
	SaveEvents(ctx context.Context, events []Event[D]) error
	LoadEvents(ctx context.Context, startSeq uint64) ([]Event[D], error)
}
