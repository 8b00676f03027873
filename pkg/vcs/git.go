package vcs

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/pkg/errors"

	"github.com/imerge-tools/imerge/internal/gitproc"
	"github.com/imerge-tools/imerge/internal/trace"
)

// Git implements Vcs against a real on-disk repository. Reads (resolving
// names, walking history, reading refs/blobs) go through go-git's own
// object store; anything that needs git's actual merge strategy or touches
// the live worktree goes through a git subprocess (see exec.go).
type Git struct {
	repo     *git.Repository
	repoPath string // worktree root, passed to every subprocess
	debug    trace.Debuger
}

// Open opens the repository containing repoPath (walking up to find
// .git, the way git itself does).
func Open(repoPath string, verbose bool) (*Git, error) {
	repo, err := git.PlainOpenWithOptions(repoPath, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, errors.Wrapf(err, "opening repository at %s", repoPath)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, errors.Wrap(err, "imerge requires a worktree, not a bare repository")
	}
	return &Git{repo: repo, repoPath: wt.Filesystem.Root(), debug: trace.NewDebuger(verbose)}, nil
}

func (g *Git) command(ctx context.Context, args ...string) *gitproc.Command {
	g.debug.DbgPrint("git %s", strings.Join(args, " "))
	return gitproc.New(ctx, g.repoPath, "git", args...)
}

func toOid(h plumbing.Hash) Oid { return Oid(h.String()) }

func (g *Git) hash(oid Oid) plumbing.Hash { return plumbing.NewHash(string(oid)) }

func (g *Git) Resolve(ctx context.Context, spec string) (Oid, error) {
	h, err := g.repo.ResolveRevision(plumbing.Revision(spec))
	if err != nil {
		return "", errors.Wrapf(err, "resolving %q", spec)
	}
	return toOid(*h), nil
}

func (g *Git) CommitOid(ctx context.Context, spec string) (Oid, error) {
	oid, err := g.Resolve(ctx, spec)
	if err != nil {
		return "", err
	}
	if _, err := g.repo.CommitObject(g.hash(oid)); err != nil {
		return "", &NotACommitError{Spec: spec}
	}
	return oid, nil
}

func (g *Git) commit(oid Oid) (*object.Commit, error) {
	c, err := g.repo.CommitObject(g.hash(oid))
	if err != nil {
		return nil, &CommitNotFoundError{Oid: oid}
	}
	return c, nil
}

func (g *Git) IsAncestor(ctx context.Context, a, b Oid) (bool, error) {
	ca, err := g.commit(a)
	if err != nil {
		return false, err
	}
	cb, err := g.commit(b)
	if err != nil {
		return false, err
	}
	if ca.Hash == cb.Hash {
		return true, nil
	}
	return ca.IsAncestor(cb)
}

// MergeBaseBest picks, among possibly several merge bases, the one reachable
// by the fewest non-merge commits from both tips (gitimerge.py's
// tie-breaking rule for get_boundary).
func (g *Git) MergeBaseBest(ctx context.Context, a, b Oid) (Oid, error) {
	ca, err := g.commit(a)
	if err != nil {
		return "", err
	}
	cb, err := g.commit(b)
	if err != nil {
		return "", err
	}
	bases, err := ca.MergeBase(cb)
	if err != nil {
		return "", errors.Wrap(err, "computing merge base")
	}
	if len(bases) == 0 {
		return "", errors.Errorf("no merge base between %s and %s", a.Short(), b.Short())
	}
	if len(bases) == 1 {
		return toOid(bases[0].Hash), nil
	}
	type candidate struct {
		oid   Oid
		score int
	}
	candidates := make([]candidate, 0, len(bases))
	for _, base := range bases {
		oid := toOid(base.Hash)
		n1, err := g.nonMergeCommitCount(ctx, oid, a)
		if err != nil {
			return "", err
		}
		n2, err := g.nonMergeCommitCount(ctx, oid, b)
		if err != nil {
			return "", err
		}
		candidates = append(candidates, candidate{oid: oid, score: n1 + n2})
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].score < candidates[j].score })
	return candidates[0].oid, nil
}

func (g *Git) nonMergeCommitCount(ctx context.Context, base, tip Oid) (int, error) {
	out, err := g.command(ctx, "rev-list", "--count", "--no-merges", string(base)+".."+string(tip)).OneLine()
	if err != nil {
		return 0, errors.Wrap(err, "rev-list --count --no-merges")
	}
	var n int
	if _, err := fmt.Sscanf(out, "%d", &n); err != nil {
		return 0, errors.Wrapf(err, "parsing rev-list count %q", out)
	}
	return n, nil
}

// LinearAncestry walks from `to` back to `from` via first parents (if
// firstParent is true) or the sole parent (if the chain never branches),
// returning the chain in chronological order.
func (g *Git) LinearAncestry(ctx context.Context, from, to Oid, firstParent bool) ([]Oid, error) {
	cur, err := g.commit(to)
	if err != nil {
		return nil, err
	}
	chain := []Oid{toOid(cur.Hash)}
	for cur.Hash != g.hash(from) {
		if cur.NumParents() == 0 {
			return nil, &NotFirstParentAncestorError{From: from, To: to}
		}
		if cur.NumParents() > 1 && !firstParent {
			return nil, &NonlinearAncestryError{From: from, To: to}
		}
		parent, err := cur.Parent(0)
		if err != nil {
			return nil, errors.Wrap(err, "walking ancestry")
		}
		cur = parent
		chain = append(chain, toOid(cur.Hash))
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}

func (g *Git) GetTree(ctx context.Context, oid Oid) (Oid, error) {
	c, err := g.commit(oid)
	if err != nil {
		return "", err
	}
	return toOid(c.TreeHash), nil
}

func (g *Git) Parents(ctx context.Context, oid Oid) ([]Oid, error) {
	c, err := g.commit(oid)
	if err != nil {
		return nil, err
	}
	parents := make([]Oid, 0, c.NumParents())
	for _, h := range c.ParentHashes {
		parents = append(parents, toOid(h))
	}
	return parents, nil
}

func (g *Git) LogMessage(ctx context.Context, oid Oid) (string, error) {
	c, err := g.commit(oid)
	if err != nil {
		return "", err
	}
	return c.Message, nil
}

func (g *Git) AuthorTriplet(ctx context.Context, oid Oid) (Author, error) {
	c, err := g.commit(oid)
	if err != nil {
		return Author{}, err
	}
	return Author{
		Name:  c.Author.Name,
		Email: c.Author.Email,
		Date:  c.Author.When.Format("Mon Jan 2 15:04:05 2006 -0700"),
	}, nil
}

func (g *Git) ReadRef(ctx context.Context, name string) (Oid, error) {
	ref, err := g.repo.Reference(plumbing.ReferenceName(name), true)
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return "", nil
		}
		return "", errors.Wrapf(err, "reading ref %s", name)
	}
	return toOid(ref.Hash()), nil
}

func (g *Git) UpdateRef(ctx context.Context, name string, oid Oid) error {
	ref := plumbing.NewHashReference(plumbing.ReferenceName(name), g.hash(oid))
	if err := g.repo.Storer.SetReference(ref); err != nil {
		return errors.Wrapf(err, "updating ref %s", name)
	}
	return nil
}

func (g *Git) DeleteRef(ctx context.Context, name string) error {
	if err := g.repo.Storer.RemoveReference(plumbing.ReferenceName(name)); err != nil {
		return errors.Wrapf(err, "deleting ref %s", name)
	}
	return nil
}

func (g *Git) ForEachRef(ctx context.Context, prefix string) (map[string]Oid, error) {
	refs, err := g.repo.Storer.IterReferences()
	if err != nil {
		return nil, errors.Wrap(err, "iterating refs")
	}
	defer refs.Close()
	out := make(map[string]Oid)
	err = refs.ForEach(func(ref *plumbing.Reference) error {
		name := ref.Name().String()
		if strings.HasPrefix(name, prefix) && ref.Type() == plumbing.HashReference {
			out[name] = toOid(ref.Hash())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (g *Git) ReadBlob(ctx context.Context, oid Oid) ([]byte, error) {
	blob, err := g.repo.BlobObject(g.hash(oid))
	if err != nil {
		return nil, errors.Wrapf(err, "reading blob %s", oid.Short())
	}
	r, err := blob.Reader()
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

func (g *Git) WriteBlob(ctx context.Context, data []byte) (Oid, error) {
	obj := g.repo.Storer.NewEncodedObject()
	obj.SetType(plumbing.BlobObject)
	w, err := obj.Writer()
	if err != nil {
		return "", err
	}
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}
	h, err := g.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return "", errors.Wrap(err, "writing blob")
	}
	return toOid(h), nil
}

// HeadBranch returns the short name of the checked-out branch, or "" if
// HEAD is detached, matching gitimerge.py's get_head_refname(short=True).
func (g *Git) HeadBranch(ctx context.Context) (string, error) {
	head, err := g.repo.Head()
	if err != nil {
		return "", errors.Wrap(err, "reading HEAD")
	}
	if !head.Name().IsBranch() {
		return "", nil
	}
	return head.Name().Short(), nil
}

func (g *Git) Config(ctx context.Context, key string) (string, bool, error) {
	cfg, err := g.repo.ConfigScoped(gitconfig.LocalScope)
	if err != nil {
		return "", false, errors.Wrap(err, "reading config")
	}
	section, name, ok := splitConfigKey(key)
	if !ok {
		return "", false, errors.Errorf("malformed config key %q", key)
	}
	raw := cfg.Raw
	if raw == nil || !raw.HasSection(section) {
		return "", false, nil
	}
	s := raw.Section(section)
	if !s.HasOption(name) {
		return "", false, nil
	}
	return s.Option(name), true, nil
}

func (g *Git) ConfigBool(ctx context.Context, key string, fallback bool) bool {
	v, ok, err := g.Config(ctx, key)
	if err != nil || !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "yes", "on", "1":
		return true
	case "false", "no", "off", "0", "":
		return false
	default:
		return fallback
	}
}

func (g *Git) SetConfig(ctx context.Context, key, value string) error {
	if err := g.command(ctx, "config", key, value).RunEx(); err != nil {
		return errors.Wrapf(err, "git config %s", key)
	}
	return nil
}

func (g *Git) UnsetConfig(ctx context.Context, key string) error {
	if err := g.command(ctx, "config", "--unset", key).RunEx(); err != nil {
		return errors.Wrapf(err, "git config --unset %s", key)
	}
	return nil
}

// splitConfigKey splits "imerge.editmergemessages" into ("imerge",
// "editmergemessages"); it does not support subsections, which imerge's own
// config keys never use.
func splitConfigKey(key string) (section, name string, ok bool) {
	i := strings.LastIndex(key, ".")
	if i < 0 {
		return "", "", false
	}
	return key[:i], key[i+1:], true
}

var _ Vcs = (*Git)(nil)
