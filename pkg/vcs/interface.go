package vcs

import "context"

// Vcs is the fixed surface imerge needs from a version-control system.
// Every method fails with one of the sentinel error kinds in errors.go
// when that is the distinguishable failure mode the caller must handle;
// anything else is wrapped with github.com/pkg/errors and treated as
// fatal.
type Vcs interface {
	// Resolve turns an arbitrary revision spec into an object id.
	Resolve(ctx context.Context, spec string) (Oid, error)
	// CommitOid resolves spec and fails with *NotACommitError if the
	// result is not a commit object.
	CommitOid(ctx context.Context, spec string) (Oid, error)

	IsAncestor(ctx context.Context, a, b Oid) (bool, error)
	// MergeBaseBest returns the merge base of a and b, breaking ties
	// among multiple bases by preferring the one reachable by fewest
	// non-merge commits from both tips.
	MergeBaseBest(ctx context.Context, a, b Oid) (Oid, error)
	// LinearAncestry returns the chronological chain from..to inclusive
	// of both ends. firstParent controls whether merge commits on the
	// path are tolerated (following only first parents).
	LinearAncestry(ctx context.Context, from, to Oid, firstParent bool) ([]Oid, error)

	// AutoMerge attempts a clean automatic merge of b into a, returning
	// the resulting commit. On conflict it aborts the merge (leaving the
	// tree clean) and returns *ConflictError.
	AutoMerge(ctx context.Context, a, b Oid, msg string) (Oid, error)
	// ManualMergePrepare begins a merge of b into a without committing;
	// it is expected to leave the index conflicted.
	ManualMergePrepare(ctx context.Context, a, b Oid, msg string) error

	CommitTree(ctx context.Context, tree Oid, parents []Oid, msg string, author *Author) (Oid, error)
	GetTree(ctx context.Context, oid Oid) (Oid, error)
	Parents(ctx context.Context, oid Oid) ([]Oid, error)
	LogMessage(ctx context.Context, oid Oid) (string, error)
	AuthorTriplet(ctx context.Context, oid Oid) (Author, error)

	ReadRef(ctx context.Context, name string) (Oid, error)
	UpdateRef(ctx context.Context, name string, oid Oid) error
	DeleteRef(ctx context.Context, name string) error
	// ForEachRef enumerates refs whose name has the given prefix,
	// returning a map from full ref name to the oid it points at.
	ForEachRef(ctx context.Context, prefix string) (map[string]Oid, error)

	// ReadBlob/WriteBlob back the state ref, which is a blob, not a
	// commit.
	ReadBlob(ctx context.Context, oid Oid) ([]byte, error)
	WriteBlob(ctx context.Context, data []byte) (Oid, error)

	// CommitUserMerge commits a staged, conflict-resolved simple merge
	// that is in progress (MERGE_HEAD names exactly one commit),
	// honoring imerge.editmergemessages unless editLogMsg overrides it.
	// It returns false without error if no such merge is in progress.
	CommitUserMerge(ctx context.Context, editLogMsg *bool) (bool, error)

	RequireCleanWorktree(ctx context.Context) error
	// DetachHead points HEAD directly at its current commit, dropping
	// any symbolic ref, and returns the short name of the branch HEAD was
	// on (or "" if HEAD was already detached) so it can be restored later.
	DetachHead(ctx context.Context) (previousBranch string, err error)
	Checkout(ctx context.Context, ref string, quiet bool) error
	ResetHard(ctx context.Context, oid Oid) error
	AbortMerge(ctx context.Context) error

	// Reparent builds a new commit object with the same tree and author
	// as oid but the given parents (and, if msg is non-nil, a replaced
	// message).
	Reparent(ctx context.Context, oid Oid, parents []Oid, msg *string) (Oid, error)

	// Revert builds a commit whose tree applies the inverse of oid's
	// change on top of onto, with onto as its sole parent. Used to build
	// the synthetic history drop/revert goals simplify against.
	Revert(ctx context.Context, onto, oid Oid, msg string) (Oid, error)

	// Config reads a single git-config value; ok is false if unset.
	Config(ctx context.Context, key string) (value string, ok bool, err error)
	ConfigBool(ctx context.Context, key string, fallback bool) bool
	// SetConfig writes a single git-config value, and UnsetConfig removes
	// one. Used to remember the active incremental merge name
	// (imerge.default) across invocations.
	SetConfig(ctx context.Context, key, value string) error
	UnsetConfig(ctx context.Context, key string) error
}
