package vcs

import (
	"context"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/memory"

	"github.com/imerge-tools/imerge/internal/trace"
)

// testRepo builds an in-memory repository with a linear base->a1 chain on
// the initial branch, plus a "feature" branch base->b1->b2 that is left
// checked out, so tests
// can exercise merge-base/ancestry logic without a real git binary.
type testRepo struct {
	g                *Git
	base, a1, b1, b2 Oid
}

func newTestRepo(t *testing.T) *testRepo {
	t.Helper()
	fs := memfs.New()
	storer := memory.NewStorage()
	repo, err := git.Init(storer, fs)
	if err != nil {
		t.Fatalf("git.Init: %v", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		t.Fatalf("Worktree: %v", err)
	}

	sig := &object.Signature{Name: "tester", Email: "tester@example.com", When: time.Unix(1700000000, 0)}
	commit := func(path, contents string) Oid {
		f, err := fs.Create(path)
		if err != nil {
			t.Fatalf("fs.Create: %v", err)
		}
		if _, err := f.Write([]byte(contents)); err != nil {
			t.Fatalf("write: %v", err)
		}
		if err := f.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
		if _, err := wt.Add(path); err != nil {
			t.Fatalf("Add: %v", err)
		}
		h, err := wt.Commit("msg: "+path, &git.CommitOptions{Author: sig, Committer: sig})
		if err != nil {
			t.Fatalf("Commit: %v", err)
		}
		return toOid(h)
	}

	base := commit("base.txt", "base")
	a1 := commit("a1.txt", "a1")

	baseHash := plumbing.NewHash(string(base))
	if err := wt.Checkout(&git.CheckoutOptions{Hash: baseHash, Branch: "refs/heads/feature", Create: true}); err != nil {
		t.Fatalf("checkout feature: %v", err)
	}
	b1 := commit("b1.txt", "b1")
	b2 := commit("b2.txt", "b2")

	return &testRepo{
		g:    &Git{repo: repo, repoPath: "", debug: trace.NewDebuger(false)},
		base: base, a1: a1, b1: b1, b2: b2,
	}
}

func TestIsAncestor(t *testing.T) {
	tr := newTestRepo(t)
	ok, err := tr.g.IsAncestor(context.Background(), tr.base, tr.a1)
	if err != nil || !ok {
		t.Fatalf("expected base to be an ancestor of a1, got ok=%v err=%v", ok, err)
	}
	ok, err = tr.g.IsAncestor(context.Background(), tr.a1, tr.base)
	if err != nil || ok {
		t.Fatalf("expected a1 not to be an ancestor of base, got ok=%v err=%v", ok, err)
	}
	ok, err = tr.g.IsAncestor(context.Background(), tr.a1, tr.a1)
	if err != nil || !ok {
		t.Fatalf("expected a commit to be its own ancestor, got ok=%v err=%v", ok, err)
	}
}

func TestMergeBaseBest(t *testing.T) {
	tr := newTestRepo(t)
	base, err := tr.g.MergeBaseBest(context.Background(), tr.a1, tr.b2)
	if err != nil {
		t.Fatalf("MergeBaseBest: %v", err)
	}
	if base != tr.base {
		t.Errorf("expected merge base %s, got %s", tr.base, base)
	}
}

func TestLinearAncestry(t *testing.T) {
	tr := newTestRepo(t)
	chain, err := tr.g.LinearAncestry(context.Background(), tr.base, tr.b2, false)
	if err != nil {
		t.Fatalf("LinearAncestry: %v", err)
	}
	want := []Oid{tr.base, tr.b1, tr.b2}
	if len(chain) != len(want) {
		t.Fatalf("expected chain %v, got %v", want, chain)
	}
	for i := range want {
		if chain[i] != want[i] {
			t.Fatalf("expected chain %v, got %v", want, chain)
		}
	}
}

func TestParentsAndTree(t *testing.T) {
	tr := newTestRepo(t)
	parents, err := tr.g.Parents(context.Background(), tr.a1)
	if err != nil {
		t.Fatalf("Parents: %v", err)
	}
	if len(parents) != 1 || parents[0] != tr.base {
		t.Fatalf("expected a1's sole parent to be base, got %v", parents)
	}
	if _, err := tr.g.GetTree(context.Background(), tr.a1); err != nil {
		t.Fatalf("GetTree: %v", err)
	}
}

func TestRefReadUpdateDelete(t *testing.T) {
	tr := newTestRepo(t)
	ctx := context.Background()
	const ref = "refs/imerge/demo/state"

	if oid, err := tr.g.ReadRef(ctx, ref); err != nil || oid != "" {
		t.Fatalf("expected missing ref to read as empty, got %q err=%v", oid, err)
	}
	if err := tr.g.UpdateRef(ctx, ref, tr.a1); err != nil {
		t.Fatalf("UpdateRef: %v", err)
	}
	if oid, err := tr.g.ReadRef(ctx, ref); err != nil || oid != tr.a1 {
		t.Fatalf("expected ref to read back a1, got %q err=%v", oid, err)
	}
	if err := tr.g.DeleteRef(ctx, ref); err != nil {
		t.Fatalf("DeleteRef: %v", err)
	}
	if oid, err := tr.g.ReadRef(ctx, ref); err != nil || oid != "" {
		t.Fatalf("expected deleted ref to read as empty, got %q err=%v", oid, err)
	}
}

func TestForEachRefPrefix(t *testing.T) {
	tr := newTestRepo(t)
	ctx := context.Background()
	_ = tr.g.UpdateRef(ctx, "refs/imerge/demo/auto/0-1", tr.a1)
	_ = tr.g.UpdateRef(ctx, "refs/imerge/demo/auto/1-0", tr.b1)
	_ = tr.g.UpdateRef(ctx, "refs/imerge/other/state", tr.base)

	refs, err := tr.g.ForEachRef(ctx, "refs/imerge/demo/")
	if err != nil {
		t.Fatalf("ForEachRef: %v", err)
	}
	if len(refs) != 2 {
		t.Fatalf("expected 2 refs under refs/imerge/demo/, got %d (%v)", len(refs), refs)
	}
}

func TestReadWriteBlob(t *testing.T) {
	tr := newTestRepo(t)
	ctx := context.Background()
	data := []byte(`{"version":"1.3.0"}`)
	oid, err := tr.g.WriteBlob(ctx, data)
	if err != nil {
		t.Fatalf("WriteBlob: %v", err)
	}
	got, err := tr.g.ReadBlob(ctx, oid)
	if err != nil {
		t.Fatalf("ReadBlob: %v", err)
	}
	if string(got) != string(data) {
		t.Fatalf("expected blob round-trip, got %q want %q", got, data)
	}
}

func TestConfigBoolFallback(t *testing.T) {
	tr := newTestRepo(t)
	ctx := context.Background()
	if !tr.g.ConfigBool(ctx, "imerge.reuseexistingcommits", true) {
		t.Error("expected unset config key to fall back to the default")
	}

	cfg, err := tr.g.repo.Config()
	if err != nil {
		t.Fatalf("Config: %v", err)
	}
	cfg.Raw.Section("imerge").SetOption("reuseexistingcommits", "false")
	if err := tr.g.repo.Storer.SetConfig(cfg); err != nil {
		t.Fatalf("SetConfig: %v", err)
	}

	value, ok, err := tr.g.Config(ctx, "imerge.reuseexistingcommits")
	if err != nil || !ok || value != "false" {
		t.Fatalf("expected config value \"false\", got %q ok=%v err=%v", value, ok, err)
	}
	if tr.g.ConfigBool(ctx, "imerge.reuseexistingcommits", true) {
		t.Error("expected ConfigBool to honor the explicit false value over its fallback")
	}
}

func TestHeadBranch(t *testing.T) {
	tr := newTestRepo(t)
	name, err := tr.g.HeadBranch(context.Background())
	if err != nil {
		t.Fatalf("HeadBranch: %v", err)
	}
	if name != "feature" {
		t.Errorf("expected checked-out branch \"feature\", got %q", name)
	}
}

func TestSplitConfigKey(t *testing.T) {
	section, name, ok := splitConfigKey("imerge.reuseexistingcommits")
	if !ok || section != "imerge" || name != "reuseexistingcommits" {
		t.Fatalf("unexpected split: section=%q name=%q ok=%v", section, name, ok)
	}
	if _, _, ok := splitConfigKey("noseparator"); ok {
		t.Error("expected a key without a dot to fail")
	}
}
