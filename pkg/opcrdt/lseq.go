package opcrdt

import (
	"sort"

	"github.com/crdtlab/replikit/pkg/replication"
)

// LSeqVPtr densely addresses a position between two neighbors: a byte path
// generated strictly between the neighbors' paths, with replica id as the
// tie-break on equal paths.
type LSeqVPtr struct {
	Sequence []byte
	ID       replication.ReplicaID
}

func compareLSeqVPtr(a, b LSeqVPtr) int {
	for i := 0; i < len(a.Sequence) && i < len(b.Sequence); i++ {
		if a.Sequence[i] != b.Sequence[i] {
			if a.Sequence[i] < b.Sequence[i] {
				return -1
			}
			return 1
		}
	}
	if len(a.Sequence) != len(b.Sequence) {
		if len(a.Sequence) < len(b.Sequence) {
			return -1
		}
		return 1
	}
	if a.ID != b.ID {
		if a.ID < b.ID {
			return -1
		}
		return 1
	}
	return 0
}

// generateLSeqSeq produces a byte path strictly between lo and hi by
// walking both in lockstep: the moment there's room between the two
// bytes at a position, it takes the midpoint of the two and stops;
// otherwise it carries lo's byte forward and tries the next position.
func generateLSeqSeq(lo, hi []byte) []byte {
	var acc []byte
	for i := 0; ; i++ {
		min := byte(0)
		if i < len(lo) {
			min = lo[i]
		}
		max := byte(255)
		if i < len(hi) {
			max = hi[i]
		}

		if int(min)+1 < int(max) {
			acc = append(acc, min+(max-min)/2)
			return acc
		}
		acc = append(acc, min)
	}
}

// LSeqCmdKind tags an LSeqCmd.
type LSeqCmdKind int

const (
	LSeqInsert LSeqCmdKind = iota
	LSeqRemoveAt
)

// LSeqCmd is LSeq's command type: insert a value at a visible index, or
// remove the value currently at one.
type LSeqCmd[V any] struct {
	Kind  LSeqCmdKind
	Index uint32
	Value V
}

type lseqOpKind int

const (
	lseqOpInserted lseqOpKind = iota
	lseqOpRemoved
)

type lseqOp[V any] struct {
	kind  lseqOpKind
	ptr   LSeqVPtr
	value V
}

type lseqVertex[V any] struct {
	ptr   LSeqVPtr
	value V
}

// LSeq is a sequence CRDT that generates a dense, totally-ordered path
// key for every inserted element so concurrent inserts at the same
// position interleave deterministically. Grounded on lseq.rs.
type LSeq[V any] struct {
	id     replication.ReplicaID
	values []lseqVertex[V]
}

// NewLSeq creates an empty sequence owned by id.
func NewLSeq[V any](id replication.ReplicaID) *LSeq[V] {
	return &LSeq[V]{id: id}
}

func (l *LSeq[V]) Query() any {
	out := make([]V, len(l.values))
	for i, v := range l.values {
		out[i] = v.value
	}
	return out
}

func (l *LSeq[V]) Prepare(cmd any) lseqOp[V] {
	c := cmd.(LSeqCmd[V])
	switch c.Kind {
	case LSeqInsert:
		var lo, hi []byte
		if c.Index > 0 {
			lo = l.values[c.Index-1].ptr.Sequence
		}
		if int(c.Index) < len(l.values) {
			hi = l.values[c.Index].ptr.Sequence
		}
		seq := generateLSeqSeq(lo, hi)
		return lseqOp[V]{kind: lseqOpInserted, ptr: LSeqVPtr{Sequence: seq, ID: l.id}, value: c.Value}
	default:
		return lseqOp[V]{kind: lseqOpRemoved, ptr: l.values[c.Index].ptr}
	}
}

func (l *LSeq[V]) Effect(event replication.Event[lseqOp[V]]) {
	switch event.Data.kind {
	case lseqOpInserted:
		ptr := event.Data.ptr
		idx := sort.Search(len(l.values), func(i int) bool {
			return compareLSeqVPtr(l.values[i].ptr, ptr) >= 0
		})
		l.values = append(l.values, lseqVertex[V]{})
		copy(l.values[idx+1:], l.values[idx:])
		l.values[idx] = lseqVertex[V]{ptr: ptr, value: event.Data.value}
	case lseqOpRemoved:
		ptr := event.Data.ptr
		idx := sort.Search(len(l.values), func(i int) bool {
			return compareLSeqVPtr(l.values[i].ptr, ptr) >= 0
		})
		if idx < len(l.values) && compareLSeqVPtr(l.values[idx].ptr, ptr) == 0 {
			l.values = append(l.values[:idx], l.values[idx+1:]...)
		}
		// else: already removed concurrently by another replica, no-op.
	}
}

func (l *LSeq[V]) Clone() replication.Crdt[lseqOp[V]] {
	out := make([]lseqVertex[V], len(l.values))
	copy(out, l.values)
	return &LSeq[V]{id: l.id, values: out}
}
