// Package legacy keeps a superseded CRDT design around for contrast: a
// state-based observed-remove set that tags every element with a full
// vector clock, rather than the compact single-dot tagging pkg/convergent's
// AWORSet uses. It is not wired into the replication.Crdt registry and
// exists purely as a worked example of why the dot-based design replaced
// it: every element here carries an O(replicas) clock instead of a single
// (replica, seq) pair.
package legacy

import "github.com/crdtlab/replikit/pkg/causality"

// ORSet is a state-based observed-remove set keyed by value, with separate
// add/remove vector-clock maps resolved by direct clock-dominance
// comparison rather than dot-cloud causal tracking.
type ORSet[T comparable] struct {
	add map[T]causality.VectorClock
	rem map[T]causality.VectorClock
}

func NewORSet[T comparable]() *ORSet[T] {
	return &ORSet[T]{
		add: make(map[T]causality.VectorClock),
		rem: make(map[T]causality.VectorClock),
	}
}

// Value resolves current membership: a key survives unless its remove
// clock strictly dominates its add clock.
func (s *ORSet[T]) Value() map[T]causality.VectorClock {
	out := make(map[T]causality.VectorClock, len(s.add))
	for k, v := range s.add {
		out[k] = v
	}
	for k, delTime := range s.rem {
		if addTime, ok := out[k]; ok && dominates(delTime, addTime) {
			delete(out, k)
		}
	}
	return out
}

func (s *ORSet[T]) Contains(val T) bool {
	_, ok := s.Value()[val]
	return ok
}

// Add records val as present, incrementing replica's entry in whichever
// clock (add or remove) currently tracks it.
func (s *ORSet[T]) Add(replica causality.ReplicaID, val T) {
	addClock, hasAdd := s.add[val]
	remClock, hasRem := s.rem[val]

	switch {
	case hasAdd && !hasRem:
		addClock = addClock.Clone()
		addClock[replica]++
		s.add[val] = addClock
	case !hasAdd && hasRem:
		remClock = remClock.Clone()
		remClock[replica]++
		s.add[val] = remClock
		delete(s.rem, val)
	default:
		clock := causality.VectorClock{replica: 1}
		s.add[val] = clock
	}
}

// Remove records val as absent, mirroring Add's clock bookkeeping into rem.
func (s *ORSet[T]) Remove(replica causality.ReplicaID, val T) {
	addClock, hasAdd := s.add[val]
	remClock, hasRem := s.rem[val]

	switch {
	case hasAdd && !hasRem:
		clock := addClock.Clone()
		clock[replica]++
		delete(s.add, val)
		s.rem[val] = clock
	case !hasAdd && hasRem:
		remClock = remClock.Clone()
		remClock[replica]++
		s.rem[val] = remClock
	default:
		clock := causality.VectorClock{replica: 1}
		s.rem[val] = clock
	}
}

// Merge returns the union of two replicas' observations: clocks are
// merged key-wise, then each side's rem wins over the other's add if it
// dominates it, matching the original fold-based merge.
func (s *ORSet[T]) Merge(other *ORSet[T]) *ORSet[T] {
	addMerged := mergeKeys(s.add, other.add)
	remMerged := mergeKeys(s.rem, other.rem)

	add := make(map[T]causality.VectorClock, len(addMerged))
	for k, v := range addMerged {
		add[k] = v
	}
	for val, delTime := range remMerged {
		if addTime, ok := add[val]; ok && dominates(delTime, addTime) {
			delete(add, val)
		}
	}

	rem := make(map[T]causality.VectorClock, len(remMerged))
	for k, v := range remMerged {
		rem[k] = v
	}
	for val, addTime := range addMerged {
		if delTime, ok := rem[val]; ok && dominates(addTime, delTime) {
			delete(rem, val)
		}
	}

	return &ORSet[T]{add: add, rem: rem}
}

func mergeKeys[T comparable](a, b map[T]causality.VectorClock) map[T]causality.VectorClock {
	out := make(map[T]causality.VectorClock, len(a))
	for k, v := range a {
		out[k] = v.Clone()
	}
	for k, v := range b {
		if existing, ok := out[k]; ok {
			out[k] = mergeClock(existing, v)
		} else {
			out[k] = v.Clone()
		}
	}
	return out
}

func mergeClock(a, b causality.VectorClock) causality.VectorClock {
	out := a.Clone()
	for r, seq := range b {
		if seq > out[r] {
			out[r] = seq
		}
	}
	return out
}

// dominates reports whether a strictly dominates b: every entry of a is >=
// the corresponding entry of b, with at least one strictly greater.
func dominates(a, b causality.VectorClock) bool {
	strictlyGreater := false
	seen := make(map[causality.ReplicaID]struct{}, len(a)+len(b))
	for r := range a {
		seen[r] = struct{}{}
	}
	for r := range b {
		seen[r] = struct{}{}
	}
	for r := range seen {
		av, bv := a.Get(r), b.Get(r)
		if av < bv {
			return false
		}
		if av > bv {
			strictlyGreater = true
		}
	}
	return strictlyGreater
}
