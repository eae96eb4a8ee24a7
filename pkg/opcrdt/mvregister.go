package opcrdt

import "github.com/crdtlab/replikit/pkg/replication"

// mvEntry pairs a stored value with the causal version it was written
// under.
type mvEntry[V any] struct {
	version replication.VTime
	value   *V
}

// MVRegister is an operation-based multi-value register: a write replaces
// every value the writer had observed, but a value written concurrently
// by another replica survives until a later write (causally after both)
// resolves it. Grounded on mvreg.rs.
type MVRegister[V any] struct {
	values []mvEntry[V]
}

// NewMVRegister creates an empty register.
func NewMVRegister[V any]() *MVRegister[V] {
	return &MVRegister[V]{}
}

// Query returns every concurrently live (non-nil) value.
func (r *MVRegister[V]) Query() any {
	out := make([]V, 0, len(r.values))
	for _, e := range r.values {
		if e.value != nil {
			out = append(out, *e.value)
		}
	}
	return out
}

func (r *MVRegister[V]) Prepare(cmd any) *V {
	if cmd == nil {
		return nil
	}
	return cmd.(*V)
}

// Effect replaces every entry this write causally dominates (or equals)
// with the new one, keeping only entries whose version is genuinely
// concurrent with it.
func (r *MVRegister[V]) Effect(event replication.Event[*V]) {
	kept := make([]mvEntry[V], 0, len(r.values)+1)
	kept = append(kept, mvEntry[V]{version: event.Version, value: event.Data})
	for _, e := range r.values {
		if e.version.Compare(event.Version) == replication.Concurrent {
			kept = append(kept, e)
		}
	}
	r.values = kept
}

func (r *MVRegister[V]) Clone() replication.Crdt[*V] {
	out := make([]mvEntry[V], len(r.values))
	copy(out, r.values)
	return &MVRegister[V]{values: out}
}
