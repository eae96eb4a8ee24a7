package convergent

import "testing"

func TestPNCounterIncrementDecrement(t *testing.T) {
	p := NewPNCounter()
	p.Increment(1)
	p.Increment(1)
	p.Decrement(1)

	if p.Value() != 1 {
		t.Fatalf("expected value 1, got %d", p.Value())
	}
}

func TestPNCounterMergeCommutative(t *testing.T) {
	a := NewPNCounter()
	a.Increment(1)
	a.Decrement(2)

	b := NewPNCounter()
	b.Increment(2)
	b.Decrement(1)

	ab := a.Clone()
	ab.Merge(b)
	ba := b.Clone()
	ba.Merge(a)

	if ab.Value() != ba.Value() {
		t.Fatalf("merge not commutative: %d vs %d", ab.Value(), ba.Value())
	}
}

func TestPNCounterSplitDelta(t *testing.T) {
	a := NewPNCounter()
	a.Increment(1)
	a.Decrement(1)

	delta := a.Split()
	if delta == nil {
		t.Fatalf("expected non-nil delta")
	}

	b := NewPNCounter()
	b.MergeDelta(delta)
	if b.Value() != a.Value() {
		t.Fatalf("expected delta replay to match source, got %d want %d", b.Value(), a.Value())
	}

	if again := a.Split(); again != nil {
		t.Fatalf("expected nil delta after split drained pending changes, got %+v", again)
	}
}
