package convergent

import "testing"

func contains(vs []string, want string) bool {
	for _, v := range vs {
		if v == want {
			return true
		}
	}
	return false
}

func TestAWORSetAddRemove(t *testing.T) {
	s := NewAWORSet[string]()
	s.Add(1, "drone-1")
	s.Add(1, "drone-2")

	if !s.Contains("drone-1") || !s.Contains("drone-2") {
		t.Fatalf("expected both members present, got %v", s.Value())
	}

	s.Remove("drone-1")
	if s.Contains("drone-1") {
		t.Fatalf("expected drone-1 removed, got %v", s.Value())
	}
}

func TestAWORSetAddWinsConcurrent(t *testing.T) {
	// a and b start from a shared element "x".
	seed := NewAWORSet[string]()
	seed.Add(1, "x")

	a := seed.Clone()
	b := seed.Clone()

	// a removes x, b concurrently re-adds x (same value, different dot).
	a.Remove("x")
	b.Add(2, "x")

	a.Merge(b)
	if !a.Contains("x") {
		t.Fatalf("expected add-wins: concurrent add should survive the remove")
	}
}

func TestAWORSetMergeCommutative(t *testing.T) {
	a := NewAWORSet[string]()
	a.Add(1, "p")
	b := NewAWORSet[string]()
	b.Add(2, "q")

	ab := a.Clone()
	ab.Merge(b)
	ba := b.Clone()
	ba.Merge(a)

	if !ab.Equal(ba) {
		t.Fatalf("merge not commutative: %v vs %v", ab.Value(), ba.Value())
	}
}

func TestAWORSetMergeDeltaReproducesMembers(t *testing.T) {
	a := NewAWORSet[string]()
	a.Add(1, "p")
	a.Add(1, "q")

	delta := a.Split()
	if delta == nil {
		t.Fatalf("expected non-nil delta")
	}

	b := NewAWORSet[string]()
	b.MergeDelta(delta)

	if !contains(b.Value(), "p") || !contains(b.Value(), "q") {
		t.Fatalf("expected delta replay to reproduce both members, got %v", b.Value())
	}
}
