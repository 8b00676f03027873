package vcs

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/imerge-tools/imerge/internal/gitproc"
)

// AutoMerge attempts a clean, automatic merge of b into a and commits the
// result with the given message (or a generated one if msg == ""). It
// requires a clean worktree and checks out a detached at a, where HEAD is
// left afterwards; on conflict the merge is aborted and *ConflictError is
// returned, leaving the tree clean.
func (g *Git) AutoMerge(ctx context.Context, a, b Oid, msg string) (Oid, error) {
	if err := g.RequireCleanWorktree(ctx); err != nil {
		return "", err
	}
	if err := g.checkoutDetached(ctx, a); err != nil {
		return "", err
	}
	if msg == "" {
		msg = "merge " + a.Short() + " and " + b.Short()
	}
	err := g.command(ctx, "merge", "--no-ff", "--no-commit", "-q", string(b)).RunEx()
	if err != nil {
		_ = g.command(ctx, "merge", "--abort").RunEx()
		return "", &ConflictError{A: a, B: b}
	}
	tree, werr := g.command(ctx, "write-tree").OneLine()
	// Always abandon the in-progress merge state; the caller only wants
	// the resulting tree, recorded as a plumbing commit via CommitTree.
	_ = g.command(ctx, "merge", "--abort").RunEx()
	if werr != nil {
		return "", errors.Wrap(werr, "git write-tree")
	}
	return g.CommitTree(ctx, Oid(tree), []Oid{a, b}, msg, nil)
}

// ManualMergePrepare begins a merge of b into a and deliberately leaves the
// index conflicted for the user to resolve by hand.
func (g *Git) ManualMergePrepare(ctx context.Context, a, b Oid, msg string) error {
	if err := g.RequireCleanWorktree(ctx); err != nil {
		return err
	}
	if err := g.checkoutDetached(ctx, a); err != nil {
		return err
	}
	args := []string{"merge", "--no-ff", string(b)}
	if msg != "" {
		args = append(args, "-m", msg)
	}
	if err := g.command(ctx, args...).RunEx(); err != nil {
		// A conflict here is the expected outcome: the index is left
		// staged-with-conflicts for the user to resolve.
		if _, ok := err.(*exec.ExitError); ok {
			return nil
		}
		return errors.Wrap(err, "preparing manual merge")
	}
	return nil
}

func (g *Git) checkoutDetached(ctx context.Context, oid Oid) error {
	if err := g.command(ctx, "checkout", "-q", "--detach", string(oid)).RunEx(); err != nil {
		return errors.Wrapf(err, "checking out %s", oid.Short())
	}
	return nil
}

// CommitTree creates a commit object with the given tree and parents
// without touching the worktree or any ref.
func (g *Git) CommitTree(ctx context.Context, tree Oid, parents []Oid, msg string, author *Author) (Oid, error) {
	args := []string{"commit-tree", string(tree)}
	for _, p := range parents {
		args = append(args, "-p", string(p))
	}
	extraEnv := []string(nil)
	if author != nil {
		extraEnv = []string{
			"GIT_AUTHOR_NAME=" + author.Name,
			"GIT_AUTHOR_EMAIL=" + author.Email,
			"GIT_AUTHOR_DATE=" + author.Date,
			"GIT_COMMITTER_NAME=" + author.Name,
			"GIT_COMMITTER_EMAIL=" + author.Email,
			"GIT_COMMITTER_DATE=" + author.Date,
		}
	}
	cmd := gitproc.NewFromOptions(ctx, &gitproc.RunOpts{RepoPath: g.repoPath, ExtraEnv: extraEnv, Stdin: strings.NewReader(msg)}, "git", args...)
	out, err := cmd.OneLine()
	if err != nil {
		return "", errors.Wrap(err, "git commit-tree")
	}
	return Oid(out), nil
}

// Reparent builds a replacement for oid with the same tree and author but
// the given parents, optionally overriding its message.
func (g *Git) Reparent(ctx context.Context, oid Oid, parents []Oid, msg *string) (Oid, error) {
	tree, err := g.GetTree(ctx, oid)
	if err != nil {
		return "", err
	}
	message := msg
	if message == nil {
		m, err := g.LogMessage(ctx, oid)
		if err != nil {
			return "", err
		}
		message = &m
	}
	author, err := g.AuthorTriplet(ctx, oid)
	if err != nil {
		return "", err
	}
	return g.CommitTree(ctx, tree, parents, *message, &author)
}

// Revert checks out onto, reverts oid's change against it without
// committing, and commits the result with onto as the sole parent. It is
// how drop/revert goals build their synthetic tip2 before simplification
// ever runs.
func (g *Git) Revert(ctx context.Context, onto, oid Oid, msg string) (Oid, error) {
	if err := g.RequireCleanWorktree(ctx); err != nil {
		return "", err
	}
	if err := g.checkoutDetached(ctx, onto); err != nil {
		return "", err
	}
	if err := g.command(ctx, "revert", "--no-commit", "-n", string(oid)).RunEx(); err != nil {
		_ = g.command(ctx, "revert", "--abort").RunEx()
		return "", errors.Wrapf(err, "reverting %s onto %s", oid.Short(), onto.Short())
	}
	tree, werr := g.command(ctx, "write-tree").OneLine()
	_ = g.command(ctx, "reset", "--hard", "-q", string(onto)).RunEx()
	if werr != nil {
		return "", errors.Wrap(werr, "git write-tree")
	}
	if msg == "" {
		msg = "Revert " + oid.Short()
	}
	return g.CommitTree(ctx, Oid(tree), []Oid{onto}, msg, nil)
}

// simpleMergeInProgress reports whether MERGE_HEAD exists and names
// exactly one commit, mirroring gitimerge.py's simple_merge_in_progress
// (an octopus merge's MERGE_HEAD has more than one line and is left
// alone).
func (g *Git) simpleMergeInProgress(ctx context.Context) (bool, error) {
	path, err := g.command(ctx, "rev-parse", "--git-path", "MERGE_HEAD").OneLine()
	if err != nil {
		return false, errors.Wrap(err, "git rev-parse --git-path MERGE_HEAD")
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(g.repoPath, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, errors.Wrap(err, "reading MERGE_HEAD")
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	return len(lines) == 1 && lines[0] != "", nil
}

// CommitUserMerge ports gitimerge.py's commit_user_merge: if a simple
// merge is in progress, require that nothing is left unstaged, then
// commit with --no-verify. The message editor is opened only when
// editLogMsg (or, if it is nil, imerge.editmergemessages, default false)
// is true; otherwise the prepared message is used with --no-edit.
func (g *Git) CommitUserMerge(ctx context.Context, editLogMsg *bool) (bool, error) {
	inProgress, err := g.simpleMergeInProgress(ctx)
	if err != nil {
		return false, err
	}
	if !inProgress {
		return false, nil
	}

	out, err := g.command(ctx, "status", "--porcelain").Output()
	if err != nil {
		return false, errors.Wrap(err, "git status")
	}
	for _, line := range strings.Split(strings.TrimRight(string(out), "\n"), "\n") {
		if line == "" || len(line) < 2 {
			continue
		}
		if line[1] != ' ' {
			return false, &UncleanWorktreeError{Staged: false}
		}
	}

	edit := editLogMsg
	if edit == nil {
		def := g.ConfigBool(ctx, "imerge.editmergemessages", false)
		edit = &def
	}
	args := []string{"commit", "--no-verify"}
	if *edit {
		args = append(args, "--edit")
	} else {
		args = append(args, "--no-edit")
	}
	if err := g.command(ctx, args...).RunEx(); err != nil {
		return false, errors.Wrap(err, "committing staged merge")
	}
	return true, nil
}

func (g *Git) RequireCleanWorktree(ctx context.Context) error {
	out, err := g.command(ctx, "status", "--porcelain").Output()
	if err != nil {
		return errors.Wrap(err, "git status")
	}
	staged, unstaged := false, false
	for _, line := range strings.Split(strings.TrimRight(string(out), "\n"), "\n") {
		if line == "" {
			continue
		}
		if len(line) < 2 {
			continue
		}
		if line[0] != ' ' && line[0] != '?' {
			staged = true
		}
		if line[1] != ' ' {
			unstaged = true
		}
	}
	if staged || unstaged {
		return &UncleanWorktreeError{Staged: staged}
	}
	return nil
}

// DetachHead points HEAD directly at its current commit. It returns the
// branch name HEAD was on (for later restoration), or "" if HEAD was
// already detached.
func (g *Git) DetachHead(ctx context.Context) (string, error) {
	head, err := g.repo.Head()
	if err != nil {
		return "", errors.Wrap(err, "reading HEAD")
	}
	if head.Name() == "HEAD" {
		return "", nil
	}
	previous := head.Name().Short()
	if err := g.checkoutDetached(ctx, toOid(head.Hash())); err != nil {
		return "", err
	}
	return previous, nil
}

func (g *Git) Checkout(ctx context.Context, ref string, quiet bool) error {
	args := []string{"checkout"}
	if quiet {
		args = append(args, "-q")
	}
	args = append(args, ref)
	if err := g.command(ctx, args...).RunEx(); err != nil {
		return errors.Wrapf(err, "checking out %s", ref)
	}
	return nil
}

func (g *Git) ResetHard(ctx context.Context, oid Oid) error {
	if err := g.command(ctx, "reset", "--hard", "-q", string(oid)).RunEx(); err != nil {
		return errors.Wrapf(err, "reset --hard %s", oid.Short())
	}
	return nil
}

func (g *Git) AbortMerge(ctx context.Context) error {
	if err := g.command(ctx, "merge", "--abort").RunEx(); err != nil {
		return errors.Wrap(err, "git merge --abort")
	}
	return nil
}
