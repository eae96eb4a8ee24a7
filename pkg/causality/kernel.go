package causality

import "sort"

// DotKernel is a causal store mapping live dots to values under a
// DotContext: ctx summarizes every dot ever generated or observed, entries
// holds the currently "alive" assignments. A dot present in ctx but absent
// from entries means the value was observed and then removed.
type DotKernel[V comparable] struct {
	Ctx     *DotContext
	Entries map[Dot]V
}

// NewDotKernel creates an empty kernel.
func NewDotKernel[V comparable]() *DotKernel[V] {
	return &DotKernel[V]{
		Ctx:     NewDotContext(),
		Entries: make(map[Dot]V),
	}
}

// Values returns every currently alive value. Order is stable but
// otherwise unspecified.
func (k *DotKernel[V]) Values() []V {
	dots := make([]Dot, 0, len(k.Entries))
	for d := range k.Entries {
		dots = append(dots, d)
	}
	sort.Slice(dots, func(i, j int) bool { return dots[i].Less(dots[j]) })
	out := make([]V, 0, len(dots))
	for _, d := range dots {
		out = append(out, k.Entries[d])
	}
	return out
}

// Clone returns a deep, independent copy.
func (k *DotKernel[V]) Clone() *DotKernel[V] {
	out := &DotKernel[V]{
		Ctx:     k.Ctx.Clone(),
		Entries: make(map[Dot]V, len(k.Entries)),
	}
	for d, v := range k.Entries {
		out.Entries[d] = v
	}
	return out
}

// NextDot allocates a fresh dot for replica from the kernel's context.
func (k *DotKernel[V]) NextDot(replica ReplicaID) Dot {
	return k.Ctx.NextDot(replica)
}

// Add inserts a replica-authored value at a fresh dot, recording the write
// in both the kernel and the delta kernel.
func (k *DotKernel[V]) Add(replica ReplicaID, value V, delta *DotKernel[V]) Dot {
	d := k.Ctx.NextDot(replica)
	k.Entries[d] = value
	delta.Entries[d] = value
	delta.Ctx.Add(d)
	delta.Ctx.compact()
	return d
}

// Remove drops one entry equal to value (which one is unspecified when
// several dots hold it), recording only the
// tombstone dot in delta.Ctx (not delta.Entries). A no-op if value is
// absent.
func (k *DotKernel[V]) Remove(value V, delta *DotKernel[V]) {
	for d, v := range k.Entries {
		if v == value {
			delete(k.Entries, d)
			delta.Ctx.Add(d)
			break
		}
	}
	delta.Ctx.compact()
}

// RemoveAll drops every entry, moving each dot into delta.Ctx.
func (k *DotKernel[V]) RemoveAll(delta *DotKernel[V]) {
	for d := range k.Entries {
		delta.Ctx.Add(d)
	}
	k.Entries = make(map[Dot]V)
	delta.Ctx.compact()
}

// Merge folds other into k:
//  1. entries from other not already present and not already observed-and-
//     removed here are adopted;
//  2. entries held here that other has observed-and-removed (other.Ctx
//     contains the dot but other.Entries does not) are dropped;
//  3. contexts are merged.
func (k *DotKernel[V]) Merge(other *DotKernel[V]) {
	for d, v := range other.Entries {
		if _, have := k.Entries[d]; !have && !k.Ctx.Contains(d) {
			k.Entries[d] = v
		}
	}
	for d := range k.Entries {
		if other.Ctx.Contains(d) {
			if _, stillPresent := other.Entries[d]; !stillPresent {
				delete(k.Entries, d)
			}
		}
	}
	k.Ctx.Merge(other.Ctx)
}

// Equal compares two kernels structurally. Both must be the product of
// real merges (never holding the same dot mapped to two different values)
// for this to be meaningful.
func (k *DotKernel[V]) Equal(other *DotKernel[V]) bool {
	if len(k.Entries) != len(other.Entries) {
		return false
	}
	for d, v := range k.Entries {
		if ov, ok := other.Entries[d]; !ok || ov != v {
			return false
		}
	}
	return k.Ctx.Equal(other.Ctx)
}
