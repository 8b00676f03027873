package imerge

import (
	"context"

	"github.com/pkg/errors"

	"github.com/imerge-tools/imerge/pkg/vcs"
)

// Reparent replaces start with a commit carrying the same tree and author
// but the given parents, then rebuilds each commit on end's first-parent
// chain after start, up to and including end, swapping in the replacement
// for any rebuilt parent. Only that first-parent chain is walked: commits
// reachable from end only through a second or later parent are not
// rebuilt. It fails if end is not a descendant of start, or if start is
// not on end's first-parent chain.
func Reparent(ctx context.Context, v vcs.Vcs, start vcs.Oid, parents []vcs.Oid, end vcs.Oid) (vcs.Oid, error) {
	ok, err := v.IsAncestor(ctx, start, end)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", errors.Errorf("reparent: %s is not an ancestor of %s", start.Short(), end.Short())
	}

	path, err := v.LinearAncestry(ctx, start, end, true)
	if err != nil {
		return "", err
	}
	// path[0] == start, path[len-1] == end, in chronological order.

	replacement := make(map[vcs.Oid]vcs.Oid, len(path))
	startReplacement, err := v.Reparent(ctx, start, parents, nil)
	if err != nil {
		return "", err
	}
	replacement[start] = startReplacement

	for _, commit := range path[1:] {
		oldParents, err := v.Parents(ctx, commit)
		if err != nil {
			return "", err
		}
		newParents := make([]vcs.Oid, len(oldParents))
		for i, p := range oldParents {
			if r, ok := replacement[p]; ok {
				newParents[i] = r
			} else {
				newParents[i] = p
			}
		}
		newCommit, err := v.Reparent(ctx, commit, newParents, nil)
		if err != nil {
			return "", err
		}
		replacement[commit] = newCommit
	}

	return replacement[end], nil
}
