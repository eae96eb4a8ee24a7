package opcrdt

import "github.com/crdtlab/replikit/pkg/replication"

// ORSetCmdKind tags an ORSetCmd.
type ORSetCmdKind int

const (
	ORSetAdd ORSetCmdKind = iota
	ORSetRemove
)

// ORSetCmd is the command type for ORSet: add a value, or remove every
// occurrence of it this replica currently observes.
type ORSetCmd[V any] struct {
	Kind  ORSetCmdKind
	Value V
}

// orSetOpKind tags an orSetOp.
type orSetOpKind int

const (
	orSetOpAdded orSetOpKind = iota
	orSetOpRemoved
)

// orSetOp is ORSet's broadcast payload: an addition carries the value
// outright (it gets the event's version as its tag), a removal carries the
// exact set of version-tags being retracted so a concurrent add (which
// gets a fresh, different tag) survives.
type orSetOp[V any] struct {
	kind   orSetOpKind
	value  V
	clocks []replication.VTime
}

type orSetEntry[V any] struct {
	value V
	clock replication.VTime
}

// ORSet is an add-wins observed-remove set where each element occurrence
// is tagged with the causal version it was added under. Grounded on
// orset.rs.
type ORSet[V comparable] struct {
	entries []orSetEntry[V]
}

// NewORSet creates an empty set.
func NewORSet[V comparable]() *ORSet[V] {
	return &ORSet[V]{}
}

func (s *ORSet[V]) Query() any {
	out := make([]V, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e.value)
	}
	return out
}

func (s *ORSet[V]) Prepare(cmd any) orSetOp[V] {
	c := cmd.(ORSetCmd[V])
	switch c.Kind {
	case ORSetAdd:
		return orSetOp[V]{kind: orSetOpAdded, value: c.Value}
	default:
		clocks := make([]replication.VTime, 0, len(s.entries))
		for _, e := range s.entries {
			if e.value == c.Value {
				clocks = append(clocks, e.clock)
			}
		}
		return orSetOp[V]{kind: orSetOpRemoved, value: c.Value, clocks: clocks}
	}
}

func (s *ORSet[V]) Effect(event replication.Event[orSetOp[V]]) {
	switch event.Data.kind {
	case orSetOpAdded:
		s.entries = append(s.entries, orSetEntry[V]{value: event.Data.value, clock: event.Version})
	case orSetOpRemoved:
		kept := s.entries[:0:0]
		for _, e := range s.entries {
			if !clockTaggedForRemoval(e.clock, event.Data.clocks) {
				kept = append(kept, e)
			}
		}
		s.entries = kept
	}
}

func clockTaggedForRemoval(clock replication.VTime, removed []replication.VTime) bool {
	for _, c := range removed {
		if clock.Equal(c) {
			return true
		}
	}
	return false
}

func (s *ORSet[V]) Clone() replication.Crdt[orSetOp[V]] {
	out := make([]orSetEntry[V], len(s.entries))
	copy(out, s.entries)
	return &ORSet[V]{entries: out}
}
