package replication

import (
	"encoding/json"

	"github.com/crdtlab/replikit/pkg/causality"
)

// ReplicaID identifies a single replica taking part in replication.
type ReplicaID = causality.ReplicaID

// Ordering is the result of comparing two VTime values under the partial
// order they induce: two clocks agree (Equal), one strictly dominates the
// other (Less/Greater), or neither dominates (Concurrent).
type Ordering int

const (
	Less Ordering = iota
	Equal
	Greater
	Concurrent
)

// VTime is a replica version vector: for each replica, how many of the
// commands it originated have been incorporated here.
type VTime struct {
	clock map[ReplicaID]uint64
}

// NewVTime creates an empty clock.
func NewVTime() VTime {
	return VTime{clock: make(map[ReplicaID]uint64)}
}

// MarshalJSON encodes the clock as a replica -> seq object so a VTime keeps
// its entries inside a JSON envelope.
func (v VTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.clock)
}

// UnmarshalJSON decodes the object form written by MarshalJSON.
func (v *VTime) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &v.clock)
}

// Get returns replica's recorded sequence number, or 0 if unseen.
func (v VTime) Get(replica ReplicaID) uint64 {
	return v.clock[replica]
}

// Clone returns an independent copy.
func (v VTime) Clone() VTime {
	out := make(map[ReplicaID]uint64, len(v.clock))
	for r, seq := range v.clock {
		out[r] = seq
	}
	return VTime{clock: out}
}

// Increment bumps replica's own counter by one.
func (v *VTime) Increment(replica ReplicaID) {
	if v.clock == nil {
		v.clock = make(map[ReplicaID]uint64)
	}
	v.clock[replica]++
}

// Merge takes the element-wise max of the two clocks.
func (v *VTime) Merge(other VTime) {
	if v.clock == nil {
		v.clock = make(map[ReplicaID]uint64)
	}
	for r, seq := range other.clock {
		if seq > v.clock[r] {
			v.clock[r] = seq
		}
	}
}

// Compare reports how v relates to other: Equal when every entry matches,
// Less/Greater when one side dominates every entry, Concurrent when
// neither does.
func (v VTime) Compare(other VTime) Ordering {
	hasGreater, hasLess := false, false
	seen := make(map[ReplicaID]struct{}, len(v.clock)+len(other.clock))
	for r := range v.clock {
		seen[r] = struct{}{}
	}
	for r := range other.clock {
		seen[r] = struct{}{}
	}
	for r := range seen {
		a, b := v.clock[r], other.clock[r]
		if a > b {
			hasGreater = true
		}
		if a < b {
			hasLess = true
		}
	}
	switch {
	case hasGreater && hasLess:
		return Concurrent
	case hasGreater:
		return Greater
	case hasLess:
		return Less
	default:
		return Equal
	}
}

// Equal reports whether v and other carry the same entries.
func (v VTime) Equal(other VTime) bool {
	return v.Compare(other) == Equal
}

// Raw exposes the underlying replica->seq map, for stores that need to
// serialize a VTime without depending on this package's internals.
func (v VTime) Raw() map[ReplicaID]uint64 {
	out := make(map[ReplicaID]uint64, len(v.clock))
	for r, seq := range v.clock {
		out[r] = seq
	}
	return out
}
