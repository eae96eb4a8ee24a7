package convergent

import "testing"

func TestAWORMapInsertRemove(t *testing.T) {
	m := NewAWORMap[string, string]()
	m.Insert(1, "fruit", "apple")

	if v, ok := m.Get("fruit"); !ok || v != "apple" {
		t.Fatalf("expected fruit=apple, got %v %v", v, ok)
	}

	m.Remove("fruit")
	if _, ok := m.Get("fruit"); ok {
		t.Fatalf("expected fruit removed")
	}
}

func TestAWORMapConcurrentInsertSameKey(t *testing.T) {
	// Both replicas insert under the same key concurrently, at the same
	// sequence number (1 each). The tie is broken by dot order, not by
	// whichever entry a map iteration happens to yield first: replica 2's
	// dot (2,1) compares greater than replica 1's dot (1,1), so "orange"
	// must win on both sides, deterministically and repeatably.
	a := NewAWORMap[string, string]()
	b := NewAWORMap[string, string]()

	a.Insert(1, "fruit", "apple")
	b.Insert(2, "fruit", "orange")

	a.Merge(b)
	b.Merge(a)

	va, _ := a.Get("fruit")
	vb, _ := b.Get("fruit")
	if va != vb {
		t.Fatalf("replicas diverged after merge: %q vs %q", va, vb)
	}
	if va != "orange" {
		t.Fatalf("expected higher-replica-id dot to win deterministically, got %q", va)
	}
}

func TestAWORMapMergeCommutative(t *testing.T) {
	a := NewAWORMap[string, int]()
	a.Insert(1, "x", 1)
	b := NewAWORMap[string, int]()
	b.Insert(2, "y", 2)

	ab := a.Clone()
	ab.Merge(b)
	ba := b.Clone()
	ba.Merge(a)

	if !ab.Equal(ba) {
		t.Fatalf("merge not commutative: %v vs %v", ab.Value(), ba.Value())
	}
}

func TestAWORMapInsertEvictsOwnPriorEntry(t *testing.T) {
	m := NewAWORMap[string, int]()
	m.Insert(1, "k", 1)
	m.Insert(1, "k", 2)

	if m.Len() != 1 {
		t.Fatalf("expected a single live entry for key k, got %d", m.Len())
	}
	if v, _ := m.Get("k"); v != 2 {
		t.Fatalf("expected latest write to win, got %d", v)
	}
}
