package convergent

import "github.com/crdtlab/replikit/pkg/causality"

// MVRegister is a multi-value register: Set replaces every existing value
// with a single new one in one atomic remove-all-then-add, but a
// concurrent Set from another replica is never silently dropped — both
// survive as concurrent values until a later Set (causally after both)
// resolves them.
type MVRegister[V comparable] struct {
	core  *causality.DotKernel[V]
	delta *causality.DotKernel[V]
}

// NewMVRegister creates an empty register.
func NewMVRegister[V comparable]() *MVRegister[V] {
	return &MVRegister[V]{core: causality.NewDotKernel[V]()}
}

// Value returns every concurrently live value. More than one entry means
// the register has an unresolved concurrent write.
func (r *MVRegister[V]) Value() []V {
	return r.core.Values()
}

func (r *MVRegister[V]) ensureDelta() *causality.DotKernel[V] {
	if r.delta == nil {
		r.delta = causality.NewDotKernel[V]()
	}
	return r.delta
}

// Set atomically drops every value this replica currently observes and
// installs value as the sole replacement.
func (r *MVRegister[V]) Set(replica causality.ReplicaID, value V) {
	delta := r.ensureDelta()
	r.core.RemoveAll(delta)
	r.core.Add(replica, value, delta)
}

// Merge folds other's full state into r.
func (r *MVRegister[V]) Merge(other *MVRegister[V]) {
	r.core.Merge(other.core)
}

// MergeDelta folds a received delta into r, accumulating it into r's own
// pending delta so it can be forwarded onward.
func (r *MVRegister[V]) MergeDelta(delta *MVRegister[V]) {
	d := delta.core
	if r.delta != nil {
		merged := r.delta.Clone()
		merged.Merge(d)
		r.delta = merged
	} else {
		r.delta = d.Clone()
	}
	r.core.Merge(r.delta)
}

// Split returns the accumulated delta (if any) wrapped as a standalone
// MVRegister and clears the pending delta.
func (r *MVRegister[V]) Split() *MVRegister[V] {
	d := r.delta
	r.delta = nil
	if d == nil {
		return nil
	}
	return &MVRegister[V]{core: d}
}

// Clone returns an independent deep copy (pending delta not carried over).
func (r *MVRegister[V]) Clone() *MVRegister[V] {
	return &MVRegister[V]{core: r.core.Clone()}
}

// Equal compares two registers structurally: the same live dots holding the
// same values, and equal causal contexts.
func (r *MVRegister[V]) Equal(other *MVRegister[V]) bool {
	return r.core.Equal(other.core)
}
