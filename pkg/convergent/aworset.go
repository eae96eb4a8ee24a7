package convergent

import "github.com/crdtlab/replikit/pkg/causality"

// AWORSet is an add-wins observed-remove set: concurrent add and remove of
// the same value resolve in favor of the add. Grounded on the DotKernel
// causal store plus the delta-state aworset's "remove duplicates, then add"
// pattern on every Add.
type AWORSet[V comparable] struct {
	kernel *causality.DotKernel[V]
	delta  *causality.DotKernel[V]
}

// NewAWORSet creates an empty set.
func NewAWORSet[V comparable]() *AWORSet[V] {
	return &AWORSet[V]{kernel: causality.NewDotKernel[V]()}
}

// Value returns every member currently in the set. Order is unspecified.
func (s *AWORSet[V]) Value() []V {
	return s.kernel.Values()
}

// Len returns the number of live members.
func (s *AWORSet[V]) Len() int {
	members := make(map[V]struct{}, len(s.kernel.Entries))
	for _, v := range s.kernel.Entries {
		members[v] = struct{}{}
	}
	return len(members)
}

// Contains reports whether value is currently a member.
func (s *AWORSet[V]) Contains(value V) bool {
	for _, v := range s.kernel.Entries {
		if v == value {
			return true
		}
	}
	return false
}

func (s *AWORSet[V]) ensureDelta() *causality.DotKernel[V] {
	if s.delta == nil {
		s.delta = causality.NewDotKernel[V]()
	}
	return s.delta
}

// Add inserts value, first removing any existing occurrence so a concurrent
// remove of the old dot cannot resurrect a stale copy of the same value.
func (s *AWORSet[V]) Add(replica causality.ReplicaID, value V) {
	delta := s.ensureDelta()
	s.kernel.Remove(value, delta)
	s.kernel.Add(replica, value, delta)
}

// Remove drops one live dot mapped to value, matching Add's own
// single-dot self-dedup: if concurrent Adds from different replicas left
// more than one dot assigned to value, the others remain independently
// live and tracked, same as the ground truth's delta-state AWORSet.
func (s *AWORSet[V]) Remove(value V) {
	s.kernel.Remove(value, s.ensureDelta())
}

// Merge folds other's full state into s (add-wins over concurrent removes).
func (s *AWORSet[V]) Merge(other *AWORSet[V]) {
	s.kernel.Merge(other.kernel)
}

// MergeDelta folds a received delta into s, accumulating it into s's own
// pending delta so it can be forwarded onward.
func (s *AWORSet[V]) MergeDelta(delta *AWORSet[V]) {
	d := delta.kernel
	if s.delta != nil {
		merged := s.delta.Clone()
		merged.Merge(d)
		s.delta = merged
	} else {
		s.delta = d.Clone()
	}
	s.kernel.Merge(s.delta)
}

// Split returns the accumulated delta (if any) wrapped as a standalone
// AWORSet and clears the pending delta.
func (s *AWORSet[V]) Split() *AWORSet[V] {
	d := s.delta
	s.delta = nil
	if d == nil {
		return nil
	}
	return &AWORSet[V]{kernel: d}
}

// Clone returns an independent deep copy (pending delta not carried over).
func (s *AWORSet[V]) Clone() *AWORSet[V] {
	return &AWORSet[V]{kernel: s.kernel.Clone()}
}

// Equal compares two AWORSets structurally: the same live dots holding the
// same values, and equal causal contexts.
func (s *AWORSet[V]) Equal(other *AWORSet[V]) bool {
	return s.kernel.Equal(other.kernel)
}
