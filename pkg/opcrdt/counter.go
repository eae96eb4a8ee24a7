// Package opcrdt implements the operation-based CRDT family that plugs
// into pkg/replication's Crdt capability: Counter, LWWRegister, MVRegister,
// ORSet, LSeq and RGA. Grounded on sypytkowski-commutative's six CRDT
// modules, one file each.
package opcrdt

import "github.com/crdtlab/replikit/pkg/replication"

// Counter is an operation-based grow-only-or-shrink counter: every command
// is a signed delta broadcast verbatim and folded into the running total.
type Counter struct {
	val int64
}

// NewCounter creates a zero-valued counter.
func NewCounter() *Counter {
	return &Counter{}
}

func (c *Counter) Query() any {
	return c.val
}

func (c *Counter) Prepare(cmd any) int64 {
	return cmd.(int64)
}

func (c *Counter) Effect(event replication.Event[int64]) {
	c.val += event.Data
}

func (c *Counter) Clone() replication.Crdt[int64] {
	return &Counter{val: c.val}
}
