package convergent

import "github.com/crdtlab/replikit/pkg/causality"

// PNCounter pairs two GCounters (inc, dec) so that value = inc - dec can
// both grow and shrink while each half still merges as a plain GCounter.
type PNCounter struct {
	inc *GCounter
	dec *GCounter
}

// NewPNCounter creates a zero-valued counter.
func NewPNCounter() *PNCounter {
	return &PNCounter{inc: NewGCounter(), dec: NewGCounter()}
}

// Value returns inc.Value() - dec.Value() as a signed count.
func (p *PNCounter) Value() int64 {
	return int64(p.inc.Value()) - int64(p.dec.Value())
}

// Increment delegates to the inc half.
func (p *PNCounter) Increment(replica causality.ReplicaID) {
	p.inc.Increment(replica)
}

// Decrement delegates to the dec half.
func (p *PNCounter) Decrement(replica causality.ReplicaID) {
	p.dec.Increment(replica)
}

// Merge merges each half component-wise.
func (p *PNCounter) Merge(other *PNCounter) {
	p.inc.Merge(other.inc)
	p.dec.Merge(other.dec)
}

// MergeDelta merges a received delta's halves into the full state.
func (p *PNCounter) MergeDelta(delta *PNCounter) {
	p.inc.MergeDelta(delta.inc)
	p.dec.MergeDelta(delta.dec)
}

// Split returns the accumulated delta for both halves, or nil if neither
// half has pending changes.
func (p *PNCounter) Split() *PNCounter {
	incDelta := p.inc.Split()
	decDelta := p.dec.Split()
	if incDelta == nil && decDelta == nil {
		return nil
	}
	if incDelta == nil {
		incDelta = NewGCounter()
	}
	if decDelta == nil {
		decDelta = NewGCounter()
	}
	return &PNCounter{inc: incDelta, dec: decDelta}
}

// Clone returns an independent copy.
func (p *PNCounter) Clone() *PNCounter {
	return &PNCounter{inc: p.inc.Clone(), dec: p.dec.Clone()}
}
