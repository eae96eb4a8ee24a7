package causality

import "testing"

func TestDotContextCompaction(t *testing.T) {
	ctx := NewDotContext()
	ctx.Add(Dot{Replica: 1, Seq: 2})
	ctx.Add(Dot{Replica: 1, Seq: 1})
	ctx.Add(Dot{Replica: 1, Seq: 3})

	ctx.Merge(NewDotContext()) // force a compact pass

	if ctx.Clock.Get(1) != 3 {
		t.Fatalf("expected clock[1]=3 after compaction, got %d", ctx.Clock.Get(1))
	}
	if ctx.CloudLen() != 0 {
		t.Fatalf("expected empty cloud after compaction, got %d entries", ctx.CloudLen())
	}
}

func TestDotContextContains(t *testing.T) {
	ctx := NewDotContext()
	d1 := ctx.NextDot(1)
	d2 := Dot{Replica: 1, Seq: 5}
	ctx.Add(d2)

	if !ctx.Contains(d1) {
		t.Fatalf("expected ctx to contain %v via clock", d1)
	}
	if !ctx.Contains(d2) {
		t.Fatalf("expected ctx to contain %v via cloud", d2)
	}
	if ctx.Contains(Dot{Replica: 2, Seq: 1}) {
		t.Fatalf("did not expect ctx to contain an unseen dot")
	}
}

func TestDotContextMergeCommutative(t *testing.T) {
	a := NewDotContext()
	a.NextDot(1)
	a.Add(Dot{Replica: 2, Seq: 5})

	b := NewDotContext()
	b.NextDot(2)
	b.Add(Dot{Replica: 1, Seq: 9})

	ab := a.Clone()
	ab.Merge(b)
	ba := b.Clone()
	ba.Merge(a)

	if !ab.Equal(ba) {
		t.Fatalf("merge not commutative: %+v vs %+v", ab, ba)
	}
}

func TestDotContextMergeAssociativeAndIdempotent(t *testing.T) {
	a := NewDotContext()
	a.NextDot(1)
	b := NewDotContext()
	b.NextDot(2)
	c := NewDotContext()
	c.NextDot(3)

	abc1 := a.Clone()
	abc1.Merge(b)
	abc1.Merge(c)

	bc := b.Clone()
	bc.Merge(c)
	abc2 := a.Clone()
	abc2.Merge(bc)

	if !abc1.Equal(abc2) {
		t.Fatalf("merge not associative")
	}

	idem := a.Clone()
	idem.Merge(a)
	if !idem.Equal(a) {
		t.Fatalf("merge not idempotent")
	}
}

func seeded(values ...string) *DotKernel[string] {
	k := NewDotKernel[string]()
	delta := NewDotKernel[string]()
	for i, v := range values {
		k.Add(ReplicaID(i+1), v, delta)
	}
	return k
}

func TestDotKernelAddRemove(t *testing.T) {
	k := NewDotKernel[string]()
	delta := NewDotKernel[string]()

	k.Add(1, "go", delta)
	if got := k.Values(); len(got) != 1 || got[0] != "go" {
		t.Fatalf("expected [go], got %v", got)
	}

	k.Remove("go", delta)
	if got := k.Values(); len(got) != 0 {
		t.Fatalf("expected empty kernel after remove, got %v", got)
	}
}

func TestDotKernelMergeLaws(t *testing.T) {
	a := seeded("x", "y")
	b := a.Clone()

	// Concurrent divergent ops from a common ancestor.
	deltaA := NewDotKernel[string]()
	a.Add(10, "z", deltaA)
	deltaB := NewDotKernel[string]()
	b.Remove("y", deltaB)

	ab := a.Clone()
	ab.Merge(b)
	ba := b.Clone()
	ba.Merge(a)
	if !ab.Equal(ba) {
		t.Fatalf("kernel merge not commutative")
	}

	c := seeded("w")
	abc1 := a.Clone()
	abc1.Merge(b)
	abc1.Merge(c)
	bc := b.Clone()
	bc.Merge(c)
	abc2 := a.Clone()
	abc2.Merge(bc)
	if !abc1.Equal(abc2) {
		t.Fatalf("kernel merge not associative")
	}

	idem := a.Clone()
	idem.Merge(a)
	if !idem.Equal(a) {
		t.Fatalf("kernel merge not idempotent")
	}
}

func TestDotKernelObservedRemoveSurvivesMerge(t *testing.T) {
	// A and B both hold "y"; A deletes it. Merging A into B must remove it
	// there too, because A's context covers y's dot while A's entries no
	// longer hold it.
	seed := seeded("y")
	a := seed.Clone()
	b := seed.Clone()

	delta := NewDotKernel[string]()
	a.Remove("y", delta)

	b.Merge(a)
	if len(b.Values()) != 0 {
		t.Fatalf("expected observed-remove to propagate, got %v", b.Values())
	}
}
