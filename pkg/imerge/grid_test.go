package imerge

import "testing"

func TestGridGetSetRoundTrip(t *testing.T) {
	g := NewGrid(3, 4)
	if g.M() != 3 || g.N() != 4 {
		t.Fatalf("expected M=3 N=4, got M=%d N=%d", g.M(), g.N())
	}
	r := MergeRecord{Oid: "abc", Flags: SavedAuto}
	g.Set(2, 1, r)
	if got := g.Get(2, 1); got != r {
		t.Errorf("expected %+v, got %+v", r, got)
	}
	if got := g.Get(0, 0); got.IsKnown() {
		t.Errorf("expected untouched cell to be unknown, got %+v", got)
	}
}

func TestFullBlockCounts(t *testing.T) {
	g := NewGrid(3, 4)
	b := FullBlock(g)
	if b.Len1() != 4 || b.Len2() != 5 {
		t.Fatalf("expected Len1=4 Len2=5 (counts, not last index), got Len1=%d Len2=%d", b.Len1(), b.Len2())
	}
	if b.Area() != 3*4 {
		t.Errorf("expected area 12, got %d", b.Area())
	}
}

func TestBlockAbsoluteTranslation(t *testing.T) {
	g := NewGrid(5, 5)
	b := FullBlock(g).Slice(1, 4, 2, 5)
	if b.Len1() != 3 || b.Len2() != 3 {
		t.Fatalf("expected 3x3 slice, got Len1=%d Len2=%d", b.Len1(), b.Len2())
	}
	a1, a2 := b.Absolute(0, 0)
	if a1 != 1 || a2 != 2 {
		t.Errorf("expected absolute (1,2), got (%d,%d)", a1, a2)
	}
	r := MergeRecord{Oid: "x", Flags: NewAuto}
	b.Set(1, 1, r)
	if got := g.Get(2, 3); got != r {
		t.Errorf("Block.Set did not flatten to the backing grid: got %+v", got)
	}
}

func TestBlockLocalRoundTrip(t *testing.T) {
	g := NewGrid(5, 5)
	b := FullBlock(g).Slice(1, 4, 2, 5)
	i1, i2, ok := b.Local(2, 3)
	if !ok || i1 != 1 || i2 != 1 {
		t.Fatalf("expected local (1,1) ok=true, got (%d,%d) ok=%v", i1, i2, ok)
	}
	if _, _, ok := b.Local(0, 0); ok {
		t.Error("expected (0,0) to fall outside the slice")
	}
}

func TestSubBlockMatchesSlice(t *testing.T) {
	g := NewGrid(5, 5)
	b := FullBlock(g)
	sub := b.SubBlock(2, 3)
	if sub.Len1() != 2 || sub.Len2() != 3 {
		t.Fatalf("expected SubBlock(2,3) to have Len1=2 Len2=3, got Len1=%d Len2=%d", sub.Len1(), sub.Len2())
	}
	a1, a2 := sub.Absolute(1, 2)
	if a1 != 1 || a2 != 2 {
		t.Errorf("expected SubBlock to start at grid origin, got absolute (%d,%d)", a1, a2)
	}
}

func TestIsFullyKnown(t *testing.T) {
	g := NewGrid(1, 1)
	b := FullBlock(g)
	if b.IsFullyKnown() {
		t.Fatal("fresh grid must not be fully known")
	}
	for i1 := 0; i1 < b.Len1(); i1++ {
		for i2 := 0; i2 < b.Len2(); i2++ {
			b.Set(i1, i2, MergeRecord{Oid: "c", Flags: SavedAuto})
		}
	}
	if !b.IsFullyKnown() {
		t.Fatal("expected fully-populated block to report IsFullyKnown")
	}
}

func TestIsBlocked(t *testing.T) {
	g := NewGrid(2, 2)
	b := FullBlock(g)
	if b.IsBlocked(1, 1) {
		t.Error("fresh cell must not be blocked")
	}
	var r MergeRecord
	r.RecordBlocked()
	b.Set(1, 1, r)
	if !b.IsBlocked(1, 1) {
		t.Error("expected cell to report blocked after RecordBlocked")
	}
}
