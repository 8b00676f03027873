package vcs

import "fmt"

// ConflictError reports that auto_merge failed between two commits; the
// caller is expected to treat this as routine during frontier discovery and
// convert it into a BLOCKED cell rather than propagate it as a fatal error.
type ConflictError struct {
	A, B Oid
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("automatic merge of %s and %s failed", e.A.Short(), e.B.Short())
}

// UncleanWorktreeError distinguishes unstaged changes from uncommitted
// (staged) changes, per spec: operations requiring a clean tree must say
// which kind of dirt they found.
type UncleanWorktreeError struct {
	Staged bool
}

func (e *UncleanWorktreeError) Error() string {
	if e.Staged {
		return "worktree has staged but uncommitted changes"
	}
	return "worktree has unstaged changes"
}

type InvalidRefNameError struct{ Name string }

func (e *InvalidRefNameError) Error() string { return fmt.Sprintf("invalid ref name: %q", e.Name) }

type InvalidBranchNameError struct{ Name string }

func (e *InvalidBranchNameError) Error() string {
	return fmt.Sprintf("invalid branch name: %q", e.Name)
}

// NotFirstParentAncestorError means a first-parent walk back from To
// reached a root commit without meeting From, i.e. From is not on To's
// first-parent chain.
type NotFirstParentAncestorError struct {
	From, To Oid
}

func (e *NotFirstParentAncestorError) Error() string {
	return fmt.Sprintf("%s is not a first-parent ancestor of %s", e.From.Short(), e.To.Short())
}

// NonlinearAncestryError means a walk that was not in first-parent mode met
// a merge commit between From and To; retrying with firstParent=true may
// succeed.
type NonlinearAncestryError struct {
	From, To Oid
}

func (e *NonlinearAncestryError) Error() string {
	return fmt.Sprintf("ancestry from %s to %s is not linear", e.From.Short(), e.To.Short())
}

type NotACommitError struct{ Spec string }

func (e *NotACommitError) Error() string { return fmt.Sprintf("%q does not resolve to a commit", e.Spec) }

type CommitNotFoundError struct{ Oid Oid }

func (e *CommitNotFoundError) Error() string {
	return fmt.Sprintf("commit %s not found", e.Oid.Short())
}
