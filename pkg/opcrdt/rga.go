package opcrdt

import (
	"math"

	"github.com/crdtlab/replikit/pkg/replication"
)

// RGAVPtr orders an RGA vertex by (sequence, replica id), matching the
// tuple ordering the original VPtr(u64, ReplicaId) derives.
type RGAVPtr struct {
	Seq uint64
	ID  replication.ReplicaID
}

func (p RGAVPtr) less(other RGAVPtr) bool {
	if p.Seq != other.Seq {
		return p.Seq < other.Seq
	}
	return p.ID < other.ID
}

func (p RGAVPtr) incr() RGAVPtr {
	return RGAVPtr{Seq: p.Seq + 1, ID: p.ID}
}

type rgaVertex[V any] struct {
	ptr   RGAVPtr
	value *V
}

func (v rgaVertex[V]) isTombstone() bool { return v.value == nil }

// RGACmdKind tags an RGACmd.
type RGACmdKind int

const (
	RGAInsert RGACmdKind = iota
	RGARemoveAt
)

// RGACmd is RGA's command type: insert a value at a visible index, or
// tombstone the value currently at one.
type RGACmd[V any] struct {
	Kind  RGACmdKind
	Index uint32
	Value V
}

type rgaOpKind int

const (
	rgaOpInserted rgaOpKind = iota
	rgaOpRemoved
)

type rgaOp[V any] struct {
	kind        rgaOpKind
	predecessor RGAVPtr
	ptr         RGAVPtr
	value       V
	pos         RGAVPtr
}

// RGA is a replicated growable array: every element is inserted right
// after a named predecessor vertex, and a concurrent insert at the same
// predecessor is ordered deterministically by (sequence, replica id) so
// every replica converges on the same final order. Removal tombstones a
// vertex in place rather than erasing it, so a later concurrent insert
// that named it as predecessor still has somewhere to attach. Grounded on
// rga.rs.
type RGA[V any] struct {
	values     []rgaVertex[V]
	sequencer  RGAVPtr
}

// NewRGA creates an empty sequence owned by id, seeded with a sentinel
// head vertex no real element can ever collide with.
func NewRGA[V any](id replication.ReplicaID) *RGA[V] {
	return &RGA[V]{
		values:    []rgaVertex[V]{{ptr: RGAVPtr{Seq: 0, ID: replication.ReplicaID(math.MaxUint64)}}},
		sequencer: RGAVPtr{Seq: 0, ID: id},
	}
}

func (r *RGA[V]) Query() any {
	out := make([]V, 0, len(r.values))
	for _, v := range r.values {
		if v.value != nil {
			out = append(out, *v.value)
		}
	}
	return out
}

func (r *RGA[V]) Prepare(cmd any) rgaOp[V] {
	c := cmd.(RGACmd[V])
	switch c.Kind {
	case RGAInsert:
		idx := r.indexIncludingTombstones(c.Index)
		predecessor := r.values[idx-1].ptr
		at := r.sequencer.incr()
		return rgaOp[V]{kind: rgaOpInserted, predecessor: predecessor, ptr: at, value: c.Value}
	default:
		idx := r.indexIncludingTombstones(c.Index)
		for idx < len(r.values) && r.values[idx].isTombstone() {
			idx++
		}
		return rgaOp[V]{kind: rgaOpRemoved, pos: r.values[idx].ptr}
	}
}

func (r *RGA[V]) Effect(event replication.Event[rgaOp[V]]) {
	switch event.Data.kind {
	case rgaOpInserted:
		r.applyInserted(event.Data.predecessor, event.Data.ptr, event.Data.value)
	case rgaOpRemoved:
		r.applyRemoved(event.Data.pos)
	}
}

func (r *RGA[V]) applyInserted(predecessor, ptr RGAVPtr, value V) {
	predecessorIdx := r.indexOfVPtr(predecessor)
	insertIdx := r.shift(predecessorIdx+1, ptr)

	next := r.sequencer.incr()
	if ptr.Seq > next.Seq {
		next.Seq = ptr.Seq
	}

	v := value
	r.values = append(r.values, rgaVertex[V]{})
	copy(r.values[insertIdx+1:], r.values[insertIdx:])
	r.values[insertIdx] = rgaVertex[V]{ptr: ptr, value: &v}
	r.sequencer = next
}

func (r *RGA[V]) applyRemoved(pos RGAVPtr) {
	idx := r.indexOfVPtr(pos)
	r.values[idx].value = nil
}

// shift walks forward from offset past every vertex whose ptr still sorts
// at or above ptr, landing on the first slot ptr must be inserted before.
func (r *RGA[V]) shift(offset int, ptr RGAVPtr) int {
	for offset < len(r.values) {
		if r.values[offset].ptr.less(ptr) {
			return offset
		}
		offset++
	}
	return offset
}

func (r *RGA[V]) indexOfVPtr(ptr RGAVPtr) int {
	for i, v := range r.values {
		if v.ptr == ptr {
			return i
		}
	}
	panic("rga: predecessor vertex not found — RCB ordering violated")
}

func (r *RGA[V]) indexIncludingTombstones(i uint32) int {
	for idx := 1; idx < len(r.values); idx++ {
		if i == 0 {
			return idx
		}
		if !r.values[idx].isTombstone() {
			i--
		}
	}
	return len(r.values) + int(i)
}

func (r *RGA[V]) Clone() replication.Crdt[rgaOp[V]] {
	out := make([]rgaVertex[V], len(r.values))
	copy(out, r.values)
	return &RGA[V]{values: out, sequencer: r.sequencer}
}
