package imerge

import "fmt"

// UnexpectedMergeFailureError is raised by auto_outline when a cell
// predicted mergeable (by the monotonicity assumptions in §4.3) actually
// fails; it is caught by BlockwiseMergeFrontier's backtracking and never
// escapes to the user.
type UnexpectedMergeFailureError struct {
	I1, I2 int
}

func (e *UnexpectedMergeFailureError) Error() string {
	return fmt.Sprintf("unexpected merge failure at (%d,%d)", e.I1, e.I2)
}

// FrontierBlockedError means control must return to the user: the
// automatic frontier cannot proceed past (I1,I2).
type FrontierBlockedError struct {
	I1, I2 int
}

func (e *FrontierBlockedError) Error() string {
	return fmt.Sprintf("blocked at (%d,%d); resolve the conflict and run continue", e.I1, e.I2)
}

// NotABlockingCommitError means the user tried to incorporate a commit that
// does not sit at a currently-blocked cell.
type NotABlockingCommitError struct {
	Oid string
}

func (e *NotABlockingCommitError) Error() string {
	return fmt.Sprintf("commit %s is not at a blocked cell of this merge", e.Oid)
}

// ManualMergeUnusableError means the user's HEAD commit does not have
// exactly two parents that are adjacent, known grid cells.
type ManualMergeUnusableError struct {
	Reason string
}

func (e *ManualMergeUnusableError) Error() string {
	return "cannot use this commit as a manual merge: " + e.Reason
}

// blockCompleteError is the internal sentinel auto_complete_frontier uses to
// stop its loop on success; it never reaches the CLI layer.
type blockCompleteError struct{}

func (blockCompleteError) Error() string { return "block complete" }

var errBlockComplete error = blockCompleteError{}

func isBlockComplete(err error) bool {
	_, ok := err.(blockCompleteError)
	return ok
}

// CorruptStateError reports a malformed on-disk grid: a missing boundary
// ref, bad JSON, or an unsupported version.
type CorruptStateError struct {
	Reason string
}

func (e *CorruptStateError) Error() string { return "corrupt imerge state: " + e.Reason }

// NoSuchMergeError means the named merge's state ref does not exist.
type NoSuchMergeError struct {
	Name string
}

func (e *NoSuchMergeError) Error() string { return fmt.Sprintf("no such incremental merge: %q", e.Name) }

// MergeInRangeError means a rebase-shaped goal (rebase, rebase-with-history,
// either border variant, drop, revert) found a merge commit among the
// original commits it would need to rebase, which cannot be expressed as a
// single linear chain.
type MergeInRangeError struct {
	Oid string
}

func (e *MergeInRangeError) Error() string {
	return fmt.Sprintf("cannot rebase: %s is a merge commit", e.Oid)
}
