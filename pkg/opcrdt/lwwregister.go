package opcrdt

import "github.com/crdtlab/replikit/pkg/replication"

// LWWRegister is a last-writer-wins register: a command replaces the
// stored value outright. Concurrent writes are resolved by comparing
// causal versions first, then — when genuinely concurrent — by replica
// id: a replica adopts a concurrent write when its own id is >= the
// writer's, so the write from the lower replica id wins. Grounded on
// lwwreg.rs.
type LWWRegister[V any] struct {
	id    replication.ReplicaID
	time  replication.VTime
	value *V
}

// NewLWWRegister creates an empty register owned by id.
func NewLWWRegister[V any](id replication.ReplicaID) *LWWRegister[V] {
	return &LWWRegister[V]{id: id, time: replication.NewVTime()}
}

func (r *LWWRegister[V]) Query() any {
	return r.value
}

func (r *LWWRegister[V]) Prepare(cmd any) *V {
	if cmd == nil {
		return nil
	}
	return cmd.(*V)
}

func (r *LWWRegister[V]) Effect(event replication.Event[*V]) {
	switch r.time.Compare(event.Version) {
	case replication.Less:
		r.time = event.Version
		r.value = event.Data
	case replication.Concurrent:
		if r.id >= event.Origin {
			r.time = event.Version
			r.value = event.Data
		}
	default:
		// RCB guarantees events are delivered in an order that can never
		// produce Equal or Greater here: a duplicate or a stale replay
		// would mean the broadcast layer is broken.
		assertNever("lwwregister: received an Equal/Greater event under RCB")
	}
}

func (r *LWWRegister[V]) Clone() replication.Crdt[*V] {
	return &LWWRegister[V]{id: r.id, time: r.time.Clone(), value: r.value}
}
