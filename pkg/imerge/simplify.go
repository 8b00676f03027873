package imerge

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/imerge-tools/imerge/pkg/vcs"
)

// PrepareDropRevert builds the synthetic tip2 that drop/revert goals
// simplify against: starting at end (the last of targets, inclusive),
// it reverts each target commit in reverse chronological order, so the
// final tree equals the tree immediately before the first target.
// targets must be in ascending chronological order, end-inclusive,
// start-exclusive (the caller's `start..end` range) — the original
// pre-revert commit ("start") is recorded by the caller as
// goalopts.base, the root dropChain rebuilds history onto so the
// dropped range never appears in the simplified result.
func PrepareDropRevert(ctx context.Context, v vcs.Vcs, name string, end vcs.Oid, targets []vcs.Oid) (syntheticTip2 vcs.Oid, err error) {
	if len(targets) == 0 {
		return "", errors.New("cannot drop/revert: empty commit range")
	}
	cur := end
	for i := len(targets) - 1; i >= 0; i-- {
		target := targets[i]
		msg := fmt.Sprintf("imerge %q: revert %s", name, target.Short())
		reverted, err := v.Revert(ctx, cur, target, msg)
		if err != nil {
			return "", err
		}
		cur = reverted
	}
	return cur, nil
}

// Simplify builds the final ref-facing history for s's goal from a
// completed grid and writes it to refs/heads/<s.Branch>, requiring a
// fast-forward update unless force is set. reuseCommits gates the
// commit-chain reuse optimization of §4.8 (imerge.reuseexistingcommits,
// default true).
func Simplify(ctx context.Context, v vcs.Vcs, s *MergeState, force, reuseCommits bool) error {
	tip, err := simplifyTip(ctx, v, s, reuseCommits)
	if err != nil {
		return err
	}

	// For every path-based goal (anything but full/merge), the
	// fast-forward check must be made against the grid's own M[m,n]
	// cell, not against the freshly rebuilt chain tip: gitimerge.py's
	// _simplify_to_path checks is_ff(refname, apex) where apex is the
	// pre-simplification commit, precisely because the rebuilt chain's
	// parentage doesn't necessarily share ancestry with the real
	// branch being overwritten. full/merge have no separate apex: their
	// tip already *is* (or is built directly on top of) M[m,n].
	ffTarget := tip
	switch s.Goal {
	case GoalFull, GoalMerge:
	default:
		m, n := s.Block.Len1()-1, s.Block.Len2()-1
		ffTarget = s.Block.Get(m, n).Oid
	}

	branchRef := "refs/heads/" + s.Branch
	if !force {
		old, err := v.ReadRef(ctx, branchRef)
		if err != nil {
			return err
		}
		if old != "" {
			ancestor, err := v.IsAncestor(ctx, old, ffTarget)
			if err != nil {
				return err
			}
			if !ancestor {
				return errors.Errorf("simplify: update of %s would not be a fast-forward", branchRef)
			}
		}
	}
	return v.UpdateRef(ctx, branchRef, tip)
}

func simplifyTip(ctx context.Context, v vcs.Vcs, s *MergeState, reuseCommits bool) (vcs.Oid, error) {
	m, n := s.Block.Len1()-1, s.Block.Len2()-1
	switch s.Goal {
	case GoalFull:
		return s.Block.Get(m, n).Oid, nil

	case GoalMerge:
		tree, err := v.GetTree(ctx, s.Block.Get(m, n).Oid)
		if err != nil {
			return "", err
		}
		msg := fmt.Sprintf("imerge %q: merge", s.Name)
		return v.CommitTree(ctx, tree, []vcs.Oid{s.Block.Get(m, 0).Oid, s.Block.Get(0, n).Oid}, msg, nil)

	case GoalRebase, GoalRevert:
		// gitimerge.py's simplify_to_revert is literally
		// simplify_to_rebase: the drop/revert distinction is encoded
		// entirely in how the synthetic tip2 was built (see
		// PrepareDropRevert), not in how it is simplified.
		if err := requireNoMergesInRange(ctx, v, s); err != nil {
			return "", err
		}
		return rebaseAlongColumns(ctx, v, s, n, false, false, reuseCommits)

	case GoalRebaseWithHistory:
		if err := requireNoMergesInRange(ctx, v, s); err != nil {
			return "", err
		}
		return rebaseAlongColumns(ctx, v, s, n, true, false, reuseCommits)

	case GoalDrop:
		// simplify_to_drop walks rows (i1=1..m), taking each new
		// commit's tree from M[i1,n] and its message/author from
		// M[i1,0], chained from goalopts["base"] rather than M[0,n] —
		// unlike rebase/revert, it discards the dropped range from the
		// rebuilt history entirely instead of replaying it.
		if err := requireNoMergesInRange(ctx, v, s); err != nil {
			return "", err
		}
		base, ok := s.GoalOpts["base"].(string)
		if !ok || base == "" {
			return "", errors.New(`goal "drop" was not initialized correctly`)
		}
		return dropChain(ctx, v, s, vcs.Oid(base), reuseCommits)

	case GoalBorder:
		if err := requireNoMergesInRange(ctx, v, s); err != nil {
			return "", err
		}
		return borderApex(ctx, v, s, false, false, reuseCommits)
	case GoalBorderWithHistory:
		if err := requireNoMergesInRange(ctx, v, s); err != nil {
			return "", err
		}
		return borderApex(ctx, v, s, true, false, reuseCommits)
	case GoalBorderWithHistory2:
		if err := requireNoMergesInRange(ctx, v, s); err != nil {
			return "", err
		}
		return borderApex(ctx, v, s, true, true, reuseCommits)

	default:
		return "", errors.Errorf("simplify: unknown goal %q", s.Goal)
	}
}

// requireNoMergesInRange fails with *MergeInRangeError if any of the
// original commits a rebase-shaped goal would need to linearize (the
// non-base cells of both boundary edges) is itself a merge commit: the
// teacher's original forbids rebasing ranges containing merges for every
// goal but full/merge, since a merge commit cannot be replayed as a single
// parent link (see SPEC_FULL.md open-question resolution).
func requireNoMergesInRange(ctx context.Context, v vcs.Vcs, s *MergeState) error {
	m, n := s.Block.Len1()-1, s.Block.Len2()-1
	for i2 := 1; i2 <= n; i2++ {
		if err := requireNotMerge(ctx, v, s.Block.Get(0, i2).Oid); err != nil {
			return err
		}
	}
	for i1 := 1; i1 <= m; i1++ {
		if err := requireNotMerge(ctx, v, s.Block.Get(i1, 0).Oid); err != nil {
			return err
		}
	}
	return nil
}

func requireNotMerge(ctx context.Context, v vcs.Vcs, oid vcs.Oid) error {
	parents, err := v.Parents(ctx, oid)
	if err != nil {
		return err
	}
	if len(parents) > 1 {
		return &MergeInRangeError{Oid: oid.Short()}
	}
	return nil
}

// rebaseAlongColumns walks i2 = 1..upTo, producing a chain on top of
// M[m,0] where each new commit has the tree of M[m,i2] and the
// message/author of M[0,i2]. withHistory adds M[0,i2] as a second
// parent and appends a "rebased-with-history" provenance note;
// plainNote controls whether a "(rebased from commit ...)" note is
// still appended when withHistory is false — gitimerge.py's
// simplify_to_border always adds one, but plain rebase/revert (which
// go through create_commit_chain instead) never do.
func rebaseAlongColumns(ctx context.Context, v vcs.Vcs, s *MergeState, upTo int, withHistory, plainNote, reuseCommits bool) (vcs.Oid, error) {
	m := s.Block.Len1() - 1
	prev := s.Block.Get(m, 0).Oid
	for i2 := 1; i2 <= upTo; i2++ {
		original := s.Block.Get(0, i2).Oid
		tree, err := v.GetTree(ctx, s.Block.Get(m, i2).Oid)
		if err != nil {
			return "", err
		}
		parents := []vcs.Oid{prev}
		if withHistory {
			parents = []vcs.Oid{prev, original}
		}
		next, err := commitOrReuse(ctx, v, original, tree, parents, withHistory, plainNote, reuseCommits)
		if err != nil {
			return "", err
		}
		prev = next
	}
	return prev, nil
}

// rebaseAlongRows is the symmetric chain from M[0,n] to M[upTo,n],
// walking i1 = 1..upTo using the message/author of M[i1,0] and tree of
// M[i1,n]. See rebaseAlongColumns for withHistory/plainNote.
func rebaseAlongRows(ctx context.Context, v vcs.Vcs, s *MergeState, upTo int, withHistory, plainNote, reuseCommits bool) (vcs.Oid, error) {
	n := s.Block.Len2() - 1
	prev := s.Block.Get(0, n).Oid
	for i1 := 1; i1 <= upTo; i1++ {
		original := s.Block.Get(i1, 0).Oid
		tree, err := v.GetTree(ctx, s.Block.Get(i1, n).Oid)
		if err != nil {
			return "", err
		}
		parents := []vcs.Oid{prev}
		if withHistory {
			parents = []vcs.Oid{prev, original}
		}
		next, err := commitOrReuse(ctx, v, original, tree, parents, withHistory, plainNote, reuseCommits)
		if err != nil {
			return "", err
		}
		prev = next
	}
	return prev, nil
}

// dropChain builds the row-chain GoalDrop simplifies to: starting from
// base (goalopts["base"], the commit preceding the dropped range, not
// M[0,n]), it walks i1 = 1..m giving each new commit the tree of
// M[i1,n] and the message/author of M[i1,0]. Grounded on
// gitimerge.py's simplify_to_drop/_simplify_to_path, which never
// appends a provenance note (create_commit_chain copies the metadata
// commit's message verbatim).
func dropChain(ctx context.Context, v vcs.Vcs, s *MergeState, base vcs.Oid, reuseCommits bool) (vcs.Oid, error) {
	m, n := s.Block.Len1()-1, s.Block.Len2()-1
	prev := base
	for i1 := 1; i1 <= m; i1++ {
		original := s.Block.Get(i1, 0).Oid
		tree, err := v.GetTree(ctx, s.Block.Get(i1, n).Oid)
		if err != nil {
			return "", err
		}
		next, err := commitOrReuse(ctx, v, original, tree, []vcs.Oid{prev}, false, false, reuseCommits)
		if err != nil {
			return "", err
		}
		prev = next
	}
	return prev, nil
}

// commitOrReuse returns original unchanged if it already has the
// desired tree and parents; otherwise it builds a new commit carrying
// original's log message (extended with a provenance note when
// withHistory or plainNote asks for one) and author. The reuse check
// itself is skipped entirely when reuseCommits is false
// (imerge.reuseexistingcommits=false).
func commitOrReuse(ctx context.Context, v vcs.Vcs, original, desiredTree vcs.Oid, desiredParents []vcs.Oid, withHistory, plainNote, reuseCommits bool) (vcs.Oid, error) {
	if reuseCommits {
		if reused, ok, err := tryReuse(ctx, v, original, desiredTree, desiredParents); err != nil {
			return "", err
		} else if ok {
			return reused, nil
		}
	}
	msg, err := v.LogMessage(ctx, original)
	if err != nil {
		return "", err
	}
	msg = strings.TrimRight(msg, "\n")
	switch {
	case withHistory:
		msg += fmt.Sprintf("\n\n(rebased-with-history from commit %s)", original)
	case plainNote:
		msg += fmt.Sprintf("\n\n(rebased from commit %s)", original)
	}
	author, err := v.AuthorTriplet(ctx, original)
	if err != nil {
		return "", err
	}
	return v.CommitTree(ctx, desiredTree, desiredParents, msg, &author)
}

func tryReuse(ctx context.Context, v vcs.Vcs, candidate, desiredTree vcs.Oid, desiredParents []vcs.Oid) (vcs.Oid, bool, error) {
	tree, err := v.GetTree(ctx, candidate)
	if err != nil {
		return "", false, err
	}
	if tree != desiredTree {
		return "", false, nil
	}
	parents, err := v.Parents(ctx, candidate)
	if err != nil {
		return "", false, err
	}
	if len(parents) != len(desiredParents) {
		return "", false, nil
	}
	for i := range parents {
		if parents[i] != desiredParents[i] {
			return "", false, nil
		}
	}
	return candidate, true, nil
}

// borderApex builds the two edge chains — each stopping one short of
// the grid's corner, per gitimerge.py's simplify_to_border — and
// merges their tips with the tree of M[m,n], which supplies the
// corner's content instead of a third chain link. historyCols and
// historyRows attach history to the column-chain's (tip2-side) and
// row-chain's (tip1-side) originals respectively; border-with-history
// sets historyCols only, border-with-history2 sets both.
func borderApex(ctx context.Context, v vcs.Vcs, s *MergeState, historyCols, historyRows, reuseCommits bool) (vcs.Oid, error) {
	m, n := s.Block.Len1()-1, s.Block.Len2()-1
	colTip, err := rebaseAlongColumns(ctx, v, s, n-1, historyCols, true, reuseCommits)
	if err != nil {
		return "", err
	}
	rowTip, err := rebaseAlongRows(ctx, v, s, m-1, historyRows, true, reuseCommits)
	if err != nil {
		return "", err
	}
	tree, err := v.GetTree(ctx, s.Block.Get(m, n).Oid)
	if err != nil {
		return "", err
	}
	msg := fmt.Sprintf("imerge %q: border merge", s.Name)
	return v.CommitTree(ctx, tree, []vcs.Oid{colTip, rowTip}, msg, nil)
}
