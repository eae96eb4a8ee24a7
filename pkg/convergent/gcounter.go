package convergent

import "github.com/crdtlab/replikit/pkg/causality"

// GCounter is a grow-only counter: a mapping replica -> monotone count,
// with value() the sum across replicas. Grounded on the teacher's
// VectorClock-shaped counters and the original source's delta_state
// gcounter.
type GCounter struct {
	counts map[causality.ReplicaID]uint64
	delta  *GCounter
}

// NewGCounter creates an empty counter.
func NewGCounter() *GCounter {
	return &GCounter{counts: make(map[causality.ReplicaID]uint64)}
}

// Value sums the per-replica counts.
func (g *GCounter) Value() uint64 {
	var total uint64
	for _, c := range g.counts {
		total += c
	}
	return total
}

// Increment bumps replica's count by one and mirrors it into the pending
// delta, creating the delta lazily.
func (g *GCounter) Increment(replica causality.ReplicaID) {
	g.counts[replica]++
	if g.delta == nil {
		g.delta = NewGCounter()
	}
	g.delta.counts[replica]++
}

// Merge takes the element-wise max of the two counter maps.
func (g *GCounter) Merge(other *GCounter) {
	for r, c := range other.counts {
		if c > g.counts[r] {
			g.counts[r] = c
		}
	}
}

// MergeDelta folds a received delta into the full state.
func (g *GCounter) MergeDelta(delta *GCounter) {
	g.Merge(delta)
}

// Split returns the accumulated delta (if any) and clears it.
func (g *GCounter) Split() *GCounter {
	d := g.delta
	g.delta = nil
	return d
}

// Clone returns an independent copy (delta is not carried over).
func (g *GCounter) Clone() *GCounter {
	out := NewGCounter()
	for r, c := range g.counts {
		out.counts[r] = c
	}
	return out
}
