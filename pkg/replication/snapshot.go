package replication

// Snapshot (ReplicationState in the original) is the durable state a
// Replicator restores from on startup: its own sequence counter, its
// merged causal version, the highest origin_seq observed from each peer,
// and the materialized CRDT itself.
type Snapshot[D any] struct {
	ID       ReplicaID
	Seq      uint64
	Version  VTime
	Observed map[ReplicaID]uint64
	State    Crdt[D]
}

// IsUnseen reports whether event e (authored by node) has not yet been
// incorporated into this snapshot: node's observed counter hasn't reached
// e's origin_seq, and e's version is Greater than or Concurrent with the
// snapshot's merged version.
func (s *Snapshot[D]) IsUnseen(node ReplicaID, e Event[D]) bool {
	if ver, ok := s.Observed[node]; ok && e.OriginSeq <= ver {
		return false
	}
	switch e.Version.Compare(s.Version) {
	case Greater, Concurrent:
		return true
	default:
		return false
	}
}

func (s *Snapshot[D]) clone() Snapshot[D] {
	observed := make(map[ReplicaID]uint64, len(s.Observed))
	for r, seq := range s.Observed {
		observed[r] = seq
	}
	return Snapshot[D]{
		ID:       s.ID,
		Seq:      s.Seq,
		Version:  s.Version.Clone(),
		Observed: observed,
		State:    s.State.Clone(),
	}
}
