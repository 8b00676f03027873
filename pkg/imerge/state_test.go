package imerge

import (
	"context"
	"crypto/sha1"
	"fmt"
	"testing"

	"github.com/imerge-tools/imerge/pkg/vcs"
)

// fakeVcs backs only the ref/blob surface state.go needs (ReadRef,
// UpdateRef, DeleteRef, ReadBlob, WriteBlob, ForEachRef); every other
// Vcs method panics if called, since Save/ReadState/Remove/List never
// reach them.
type fakeVcs struct {
	vcs.Vcs
	refs  map[string]vcs.Oid
	blobs map[vcs.Oid][]byte
}

func newFakeVcs() *fakeVcs {
	return &fakeVcs{refs: map[string]vcs.Oid{}, blobs: map[vcs.Oid][]byte{}}
}

func (f *fakeVcs) ReadRef(ctx context.Context, name string) (vcs.Oid, error) {
	return f.refs[name], nil
}

func (f *fakeVcs) UpdateRef(ctx context.Context, name string, oid vcs.Oid) error {
	f.refs[name] = oid
	return nil
}

func (f *fakeVcs) DeleteRef(ctx context.Context, name string) error {
	delete(f.refs, name)
	return nil
}

func (f *fakeVcs) ForEachRef(ctx context.Context, prefix string) (map[string]vcs.Oid, error) {
	out := map[string]vcs.Oid{}
	for name, oid := range f.refs {
		if len(name) >= len(prefix) && name[:len(prefix)] == prefix {
			out[name] = oid
		}
	}
	return out, nil
}

func (f *fakeVcs) ReadBlob(ctx context.Context, oid vcs.Oid) ([]byte, error) {
	data, ok := f.blobs[oid]
	if !ok {
		return nil, fmt.Errorf("no such blob %s", oid)
	}
	return data, nil
}

func (f *fakeVcs) WriteBlob(ctx context.Context, data []byte) (vcs.Oid, error) {
	sum := sha1.Sum(data)
	oid := vcs.Oid(fmt.Sprintf("%x", sum))
	f.blobs[oid] = data
	return oid, nil
}

func testBoundary() *vcs.Boundary {
	return &vcs.Boundary{
		Base:      "base",
		Ancestry1: []vcs.Oid{"base", "a1"},
		Ancestry2: []vcs.Oid{"base", "b1", "b2"},
	}
}

func TestInitializeStateBoundary(t *testing.T) {
	s := InitializeState("mymerge", testBoundary(), GoalFull, nil, false, "mymerge")
	if s.Tip1 != "a1" || s.Tip2 != "b2" {
		t.Fatalf("expected tips a1/b2, got %s/%s", s.Tip1, s.Tip2)
	}
	if s.Block.Len1() != 2 || s.Block.Len2() != 3 {
		t.Fatalf("expected 2x3 grid, got Len1=%d Len2=%d", s.Block.Len1(), s.Block.Len2())
	}
	if !s.Block.Get(0, 0).IsManual() || s.Block.Get(0, 0).Oid != "base" {
		t.Error("expected (0,0) to be the manual base cell")
	}
	if !s.Block.Get(1, 0).IsManual() || s.Block.Get(1, 0).Oid != "a1" {
		t.Error("expected left column to carry ancestry1")
	}
	if !s.Block.Get(0, 2).IsManual() || s.Block.Get(0, 2).Oid != "b2" {
		t.Error("expected top row to carry ancestry2")
	}
}

func TestSaveThenReadStateRoundTrip(t *testing.T) {
	v := newFakeVcs()
	s := InitializeState("mymerge", testBoundary(), GoalFull, nil, true, "out-branch")
	r := s.Block.Get(1, 1)
	r.RecordAuto("merged-1-1")
	s.Block.Set(1, 1, r)

	if err := s.Save(context.Background(), v); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := ReadState(context.Background(), v, "mymerge")
	if err != nil {
		t.Fatalf("ReadState failed: %v", err)
	}
	if got.Tip1 != s.Tip1 || got.Tip2 != s.Tip2 {
		t.Errorf("tips did not round-trip: got %s/%s want %s/%s", got.Tip1, got.Tip2, s.Tip1, s.Tip2)
	}
	if got.Branch != "out-branch" || !got.Manual {
		t.Errorf("branch/manual did not round-trip: %+v", got)
	}
	if got.Block.Get(1, 1).Oid != "merged-1-1" {
		t.Errorf("expected cell (1,1) to round-trip, got %+v", got.Block.Get(1, 1))
	}
	if !got.Block.Get(1, 1).IsAuto() {
		t.Error("expected round-tripped cell to carry SavedAuto provenance")
	}
	if !got.Block.Get(0, 0).IsManual() {
		t.Error("expected boundary cell to still be manual after round-trip")
	}
}

func TestSaveClearsStaleAutoOnManualSupersede(t *testing.T) {
	v := newFakeVcs()
	s := InitializeState("mymerge", testBoundary(), GoalFull, nil, false, "mymerge")
	r := s.Block.Get(1, 1)
	r.RecordAuto("auto-result")
	s.Block.Set(1, 1, r)
	if err := s.Save(context.Background(), v); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, ok := v.refs[cellRefName("mymerge", false, 1, 1)]; !ok {
		t.Fatal("expected auto ref to exist after first save")
	}

	r = s.Block.Get(1, 1)
	r.RecordManual("manual-result")
	s.Block.Set(1, 1, r)
	if err := s.Save(context.Background(), v); err != nil {
		t.Fatalf("second Save failed: %v", err)
	}
	if _, ok := v.refs[cellRefName("mymerge", false, 1, 1)]; ok {
		t.Error("expected stale auto ref to be deleted once a manual record supersedes it")
	}
	if oid := v.refs[cellRefName("mymerge", true, 1, 1)]; oid != "manual-result" {
		t.Errorf("expected manual ref to hold manual-result, got %q", oid)
	}
}

func TestReadStateNoSuchMerge(t *testing.T) {
	v := newFakeVcs()
	_, err := ReadState(context.Background(), v, "ghost")
	if _, ok := err.(*NoSuchMergeError); !ok {
		t.Fatalf("expected *NoSuchMergeError, got %T (%v)", err, err)
	}
}

func TestReadStateCorruptVersion(t *testing.T) {
	v := newFakeVcs()
	blobOid, _ := v.WriteBlob(context.Background(), []byte(`{"version":"2.0.0"}`))
	_ = v.UpdateRef(context.Background(), stateRefName("bad"), blobOid)
	_, err := ReadState(context.Background(), v, "bad")
	if _, ok := err.(*CorruptStateError); !ok {
		t.Fatalf("expected *CorruptStateError for unsupported major version, got %T (%v)", err, err)
	}
}

func TestReadStateMissingBoundaryCell(t *testing.T) {
	v := newFakeVcs()
	// A manual cell at (1,1) but no manual boundary cell at (1,0) or (0,1).
	_ = v.UpdateRef(context.Background(), cellRefName("bad", true, 1, 1), "c")
	blobOid, _ := v.WriteBlob(context.Background(), []byte(`{"version":"1.3.0","tip1":"c","tip2":"c"}`))
	_ = v.UpdateRef(context.Background(), stateRefName("bad"), blobOid)
	_, err := ReadState(context.Background(), v, "bad")
	if _, ok := err.(*CorruptStateError); !ok {
		t.Fatalf("expected *CorruptStateError for missing boundary cell, got %T (%v)", err, err)
	}
}

func TestRemoveDeletesNamespace(t *testing.T) {
	v := newFakeVcs()
	s := InitializeState("mymerge", testBoundary(), GoalFull, nil, false, "mymerge")
	if err := s.Save(context.Background(), v); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if len(v.refs) == 0 {
		t.Fatal("expected refs to exist before Remove")
	}
	if err := Remove(context.Background(), v, "mymerge"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	for ref := range v.refs {
		t.Errorf("expected namespace empty after Remove, found %s", ref)
	}
}

func TestListSortsNames(t *testing.T) {
	v := newFakeVcs()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		s := InitializeState(name, testBoundary(), GoalFull, nil, false, name)
		if err := s.Save(context.Background(), v); err != nil {
			t.Fatalf("Save(%s) failed: %v", name, err)
		}
	}
	names, err := List(context.Background(), v)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	want := []string{"alpha", "mid", "zeta"}
	if len(names) != len(want) {
		t.Fatalf("expected %v, got %v", want, names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("expected %v, got %v", want, names)
			break
		}
	}
}
