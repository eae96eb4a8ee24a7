package convergent

import "github.com/crdtlab/replikit/pkg/causality"

// KeyVal is a map entry. Go's comparable constraint can't express "equal
// iff keys are equal, ignoring the value" the way the original's Ord/Hash/
// PartialEq impls (which delegate to .key alone) do, so AWORMap below
// inlines its own causal store rather than instantiating DotKernel[KeyVal]
// and relying on DotKernel's full-value (==) comparisons.
type KeyVal[K comparable, V any] struct {
	Key K
	Val V
}

// AWORMap is an AWORSet of KeyVal entries where add-wins resolution and
// removal are keyed on K alone: inserting a key evicts any prior entry
// under the same key before adding the new one, so a concurrent insert
// always wins over a concurrent delete of the same key.
type AWORMap[K comparable, V any] struct {
	ctx     *causality.DotContext
	entries map[causality.Dot]KeyVal[K, V]
	delta   *awormapDelta[K, V]
}

// awormapDelta mirrors AWORMap's shape but is only ever populated by Insert/
// Remove/MergeDelta, never read back through the public Value()/Len() API.
type awormapDelta[K comparable, V any] struct {
	ctx     *causality.DotContext
	entries map[causality.Dot]KeyVal[K, V]
}

// NewAWORMap creates an empty map.
func NewAWORMap[K comparable, V any]() *AWORMap[K, V] {
	return &AWORMap[K, V]{
		ctx:     causality.NewDotContext(),
		entries: make(map[causality.Dot]KeyVal[K, V]),
	}
}

// Value materializes the map's current key/value contents. Insert always
// evicts a key's prior dot before adding a new one, so distinct live dots
// sharing a key only arise from a concurrent Insert/Insert under the same
// key from different replicas; ties are broken deterministically by dot
// order (higher replica id wins on equal sequence) rather than by
// whichever entry a map iteration happens to yield first.
func (m *AWORMap[K, V]) Value() map[K]V {
	winner := make(map[K]causality.Dot, len(m.entries))
	out := make(map[K]V, len(m.entries))
	for d, kv := range m.entries {
		if best, have := winner[kv.Key]; !have || best.Less(d) {
			winner[kv.Key] = d
			out[kv.Key] = kv.Val
		}
	}
	return out
}

// Len returns the number of live keys.
func (m *AWORMap[K, V]) Len() int {
	keys := make(map[K]struct{}, len(m.entries))
	for _, kv := range m.entries {
		keys[kv.Key] = struct{}{}
	}
	return len(keys)
}

// Get returns the value stored under key, if present. As with Value, a
// concurrent insert under the same key from two replicas is resolved by
// dot order rather than map iteration order.
func (m *AWORMap[K, V]) Get(key K) (V, bool) {
	var best causality.Dot
	var bestVal V
	found := false
	for d, kv := range m.entries {
		if kv.Key != key {
			continue
		}
		if !found || best.Less(d) {
			best = d
			bestVal = kv.Val
			found = true
		}
	}
	return bestVal, found
}

func (m *AWORMap[K, V]) ensureDelta() *awormapDelta[K, V] {
	if m.delta == nil {
		m.delta = &awormapDelta[K, V]{
			ctx:     causality.NewDotContext(),
			entries: make(map[causality.Dot]KeyVal[K, V]),
		}
	}
	return m.delta
}

// removeByKey drops every entry under key, recording the tombstone dots into
// deltaCtx (and, for the standalone Remove path, nowhere else).
func (m *AWORMap[K, V]) removeByKey(key K, deltaCtx *causality.DotContext) {
	for d, kv := range m.entries {
		if kv.Key == key {
			delete(m.entries, d)
			deltaCtx.Add(d)
		}
	}
}

// Insert sets key to value, evicting any prior entry under the same key so
// the new write is never resurrected-over by a concurrent removal of the
// old one.
func (m *AWORMap[K, V]) Insert(replica causality.ReplicaID, key K, value V) {
	delta := m.ensureDelta()
	m.removeByKey(key, delta.ctx)

	d := m.ctx.NextDot(replica)
	kv := KeyVal[K, V]{Key: key, Val: value}
	m.entries[d] = kv
	delta.entries[d] = kv
	delta.ctx.Add(d)
}

// Remove drops key, if present.
func (m *AWORMap[K, V]) Remove(key K) {
	delta := m.ensureDelta()
	m.removeByKey(key, delta.ctx)
}

// Merge folds other's full state into m.
func (m *AWORMap[K, V]) Merge(other *AWORMap[K, V]) {
	for d, kv := range other.entries {
		if _, have := m.entries[d]; !have && !m.ctx.Contains(d) {
			m.entries[d] = kv
		}
	}
	for d := range m.entries {
		if other.ctx.Contains(d) {
			if _, stillPresent := other.entries[d]; !stillPresent {
				delete(m.entries, d)
			}
		}
	}
	m.ctx.Merge(other.ctx)
}

// MergeDelta folds a received delta into m, accumulating it into m's own
// pending delta so it can be forwarded onward.
func (m *AWORMap[K, V]) MergeDelta(delta *AWORMap[K, V]) {
	for d, kv := range delta.entries {
		if _, have := m.entries[d]; !have && !m.ctx.Contains(d) {
			m.entries[d] = kv
		}
	}
	for d := range m.entries {
		if delta.ctx.Contains(d) {
			if _, stillPresent := delta.entries[d]; !stillPresent {
				delete(m.entries, d)
			}
		}
	}
	m.ctx.Merge(delta.ctx)

	own := m.ensureDelta()
	for d, kv := range delta.entries {
		own.entries[d] = kv
	}
	own.ctx.Merge(delta.ctx)
}

// Split returns the accumulated delta (if any), wrapped as a standalone
// AWORMap, and clears the pending delta.
func (m *AWORMap[K, V]) Split() *AWORMap[K, V] {
	d := m.delta
	m.delta = nil
	if d == nil {
		return nil
	}
	return &AWORMap[K, V]{ctx: d.ctx, entries: d.entries}
}

// Clone returns an independent deep copy (pending delta not carried over).
func (m *AWORMap[K, V]) Clone() *AWORMap[K, V] {
	out := NewAWORMap[K, V]()
	out.ctx = m.ctx.Clone()
	for d, kv := range m.entries {
		out.entries[d] = kv
	}
	return out
}

// Equal compares the live key/value contents of two AWORMaps.
func (m *AWORMap[K, V]) Equal(other *AWORMap[K, V]) bool {
	a, b := m.Value(), other.Value()
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		ov, ok := b[k]
		if !ok {
			return false
		}
		if any(v) != any(ov) {
			return false
		}
	}
	return true
}
