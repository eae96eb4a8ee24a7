// Package causality implements the dotted version vector substrate shared
// by every delta-state CRDT in this module: Dot, VectorClock, DotContext and
// DotKernel.
package causality

import (
	"fmt"

	"github.com/google/btree"
)

// ReplicaID identifies a replica. Totally ordered, densely generated.
type ReplicaID uint64

// Dot uniquely identifies a single write made by a replica: (replica, seq).
type Dot struct {
	Replica ReplicaID
	Seq     uint64
}

// String renders a dot as "replica#seq", used as a stable map/log key.
func (d Dot) String() string {
	return fmt.Sprintf("%d#%d", d.Replica, d.Seq)
}

// Less orders dots lexicographically by (replica, seq). This is a
// coordinate ordering for data-structure use, not a causal ordering.
func (d Dot) Less(other btree.Item) bool {
	o := other.(Dot)
	if d.Replica != o.Replica {
		return d.Replica < o.Replica
	}
	return d.Seq < o.Seq
}

// VectorClock maps a replica to the highest contiguous sequence number
// observed from it. A missing key is treated as zero.
type VectorClock map[ReplicaID]uint64

// Get returns the clock value for a replica, or 0 if unset.
func (c VectorClock) Get(r ReplicaID) uint64 {
	return c[r]
}

// Clone returns an independent copy.
func (c VectorClock) Clone() VectorClock {
	out := make(VectorClock, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// DotContext is the compact "set of dots observed by this replica":
// a VectorClock covering the contiguous prefix per replica, plus a cloud of
// loose dots not yet contiguous with that prefix.
//
// The cloud is kept in a btree ordered by (replica, seq) rather than a bare
// map so that compact can sweep it in ascending per-replica order in one
// pass, which is what lets compaction reach a fixpoint in a single sweep.
type DotContext struct {
	Clock VectorClock
	cloud *btree.BTree
}

// NewDotContext creates an empty DotContext.
func NewDotContext() *DotContext {
	return &DotContext{
		Clock: make(VectorClock),
		cloud: btree.New(32),
	}
}

// CloudDots returns the loose dots currently held in the cloud, in
// ascending (replica, seq) order.
func (ctx *DotContext) CloudDots() []Dot {
	out := make([]Dot, 0, ctx.cloud.Len())
	ctx.cloud.Ascend(func(item btree.Item) bool {
		out = append(out, item.(Dot))
		return true
	})
	return out
}

// CloudLen reports how many loose dots remain in the cloud.
func (ctx *DotContext) CloudLen() int {
	return ctx.cloud.Len()
}

// Add inserts a dot into the cloud without touching the clock.
func (ctx *DotContext) Add(d Dot) {
	ctx.cloud.ReplaceOrInsert(d)
}

// Contains reports whether the dot has been observed, either via the
// contiguous clock prefix or the loose cloud.
func (ctx *DotContext) Contains(d Dot) bool {
	if ctx.Clock.Get(d.Replica) >= d.Seq {
		return true
	}
	return ctx.cloud.Has(d)
}

// NextDot allocates a fresh dot for replica, advancing the clock. It never
// touches the cloud.
func (ctx *DotContext) NextDot(replica ReplicaID) Dot {
	next := ctx.Clock[replica] + 1
	ctx.Clock[replica] = next
	return Dot{Replica: replica, Seq: next}
}

// Merge folds other into ctx: element-wise max of the clocks, union of the
// clouds, then compact to a fixpoint.
func (ctx *DotContext) Merge(other *DotContext) {
	for r, seq := range other.Clock {
		if seq > ctx.Clock[r] {
			ctx.Clock[r] = seq
		}
	}
	other.cloud.Ascend(func(item btree.Item) bool {
		ctx.cloud.ReplaceOrInsert(item)
		return true
	})
	ctx.compact()
}

// Clone returns a deep, independent copy of the context.
func (ctx *DotContext) Clone() *DotContext {
	out := NewDotContext()
	out.Clock = ctx.Clock.Clone()
	ctx.cloud.Ascend(func(item btree.Item) bool {
		out.cloud.ReplaceOrInsert(item)
		return true
	})
	return out
}

// Equal compares two contexts structurally; both must be compacted for this
// to agree with set equality (see compact's fixpoint guarantee).
func (ctx *DotContext) Equal(other *DotContext) bool {
	if len(ctx.Clock) != len(other.Clock) || ctx.cloud.Len() != other.cloud.Len() {
		return false
	}
	for r, seq := range ctx.Clock {
		if other.Clock[r] != seq {
			return false
		}
	}
	equal := true
	ctx.cloud.Ascend(func(item btree.Item) bool {
		if !other.cloud.Has(item) {
			equal = false
			return false
		}
		return true
	})
	return equal
}

// compact promotes cloud dots (r, clock[r]+1) into the clock and drops
// cloud dots already covered by the clock. The cloud is walked once in
// ascending (replica, seq) order with the clock updated in place as we go,
// so a dot that becomes contiguous only because an earlier dot in the same
// pass was just promoted is still caught in this single sweep.
func (ctx *DotContext) compact() {
	ordered := make([]Dot, 0, ctx.cloud.Len())
	ctx.cloud.Ascend(func(item btree.Item) bool {
		ordered = append(ordered, item.(Dot))
		return true
	})

	settled := make([]Dot, 0, len(ordered))
	for _, d := range ordered {
		maxCont := ctx.Clock[d.Replica]
		switch {
		case d.Seq == maxCont+1:
			ctx.Clock[d.Replica] = d.Seq
			settled = append(settled, d)
		case d.Seq <= maxCont:
			settled = append(settled, d)
		}
	}
	for _, d := range settled {
		ctx.cloud.Delete(d)
	}
}
