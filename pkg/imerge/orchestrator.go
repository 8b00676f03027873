package imerge

import (
	"context"
	"fmt"

	"github.com/imerge-tools/imerge/pkg/vcs"
)

// Frontier is the common interface over the three frontier strategies a
// MergeState can be filled by: Full (micromerge row by row), Manual
// (never auto-merges), and Blockwise (staircase of outlined rectangles,
// found by bisection). Exactly one frontier kind applies to a given
// MergeState, chosen by its Manual flag and Goal.
type Frontier interface {
	// NonEmpty reports whether (1,1) is known, i.e. this frontier has
	// made any progress at all.
	NonEmpty() bool
	// IsComplete reports whether the frontier spans the entire block.
	IsComplete() bool
	// IncorporateMerge clears BLOCKED at the absolute grid coordinates
	// of a merge the user just supplied, failing with
	// *NotABlockingCommitError if it wasn't actually a blocker.
	IncorporateMerge(absI1, absI2 int) error
	// AutoExpand tries to push the frontier forward by one step. It
	// returns errBlockComplete on total success or *FrontierBlockedError
	// naming the first remaining conflict. It does not mutate itself;
	// callers must call Frontier again against the (now more complete)
	// grid to continue.
	AutoExpand(ctx context.Context, v vcs.Vcs, name string) error
}

type blockwiseFrontierAdapter struct{ *blockwiseFrontier }

func (a blockwiseFrontierAdapter) NonEmpty() bool   { return a.nonEmpty() }
func (a blockwiseFrontierAdapter) IsComplete() bool { return a.isComplete() }
func (a blockwiseFrontierAdapter) IncorporateMerge(absI1, absI2 int) error {
	return a.incorporateMerge(absI1, absI2)
}
func (a blockwiseFrontierAdapter) AutoExpand(ctx context.Context, v vcs.Vcs, name string) error {
	return a.autoExpand(ctx, v, name)
}

type fullFrontierAdapter struct{ *fullFrontier }

func (a fullFrontierAdapter) NonEmpty() bool   { return a.nonEmpty() }
func (a fullFrontierAdapter) IsComplete() bool { return a.isComplete() }
func (a fullFrontierAdapter) IncorporateMerge(absI1, absI2 int) error {
	return a.incorporateMerge(absI1, absI2)
}
func (a fullFrontierAdapter) AutoExpand(ctx context.Context, v vcs.Vcs, name string) error {
	return a.autoExpand(ctx, v, name)
}

type manualFrontierAdapter struct{ *manualFrontier }

func (a manualFrontierAdapter) NonEmpty() bool   { return a.nonEmpty() }
func (a manualFrontierAdapter) IsComplete() bool { return a.isComplete() }
func (a manualFrontierAdapter) IncorporateMerge(absI1, absI2 int) error {
	return a.incorporateMerge(absI1, absI2)
}
func (a manualFrontierAdapter) AutoExpand(ctx context.Context, v vcs.Vcs, name string) error {
	return a.autoExpand(ctx, v, name)
}

// mapFrontier returns the Frontier view of s's current grid, reusing the
// bisection search to discover already-known rectangles rather than a
// dedicated path-walk reconstruction; isMergeable's known-cell shortcut
// makes the two observationally equivalent for resuming a merge.
func mapFrontier(ctx context.Context, v vcs.Vcs, s *MergeState) (Frontier, error) {
	switch {
	case s.Manual:
		return manualFrontierAdapter{newManualFrontier(s.Block)}, nil
	case s.Goal == GoalFull:
		return fullFrontierAdapter{newFullFrontier(s.Block)}, nil
	default:
		bf, err := initiateMerge(ctx, v, s.Name, s.Block)
		if err != nil {
			return nil, err
		}
		return blockwiseFrontierAdapter{bf}, nil
	}
}

// AutoCompleteFrontier repeatedly maps and expands the frontier until
// either the whole block is filled (nil) or a blocker needs the
// user's attention (*FrontierBlockedError). The state is saved after
// every attempt, whether it advanced or blocked, so interrupted runs can
// always resume.
func AutoCompleteFrontier(ctx context.Context, v vcs.Vcs, s *MergeState) error {
	for {
		frontier, err := mapFrontier(ctx, v, s)
		if err != nil {
			return err
		}
		if frontier.IsComplete() {
			return nil
		}
		expandErr := frontier.AutoExpand(ctx, v, s.Name)
		if saveErr := s.Save(ctx, v); saveErr != nil {
			return saveErr
		}
		if isBlockComplete(expandErr) {
			return nil
		}
		if expandErr != nil {
			return expandErr
		}
	}
}

// IsComplete reports whether s's frontier spans the entire grid, i.e.
// whether it is safe to call Simplify.
func IsComplete(ctx context.Context, v vcs.Vcs, s *MergeState) (bool, error) {
	frontier, err := mapFrontier(ctx, v, s)
	if err != nil {
		return false, err
	}
	return frontier.IsComplete(), nil
}

// ScratchRef is the name of the throwaway branch used to stage a manual
// merge while the user resolves a conflict.
func ScratchRef(name string) string { return "refs/heads/imerge/" + name }

// RequestUserMerge is invoked when the frontier blocks at (bi1,bi2): it
// points the scratch branch at M[bi1,bi2-1], checks it out, and begins
// (but does not commit) a merge of M[bi1-1,bi2] into it, leaving the
// index conflicted for the user to resolve by hand.
func RequestUserMerge(ctx context.Context, v vcs.Vcs, s *MergeState, bi1, bi2 int) error {
	left := s.Block.Get(bi1, bi2-1).Oid
	upper := s.Block.Get(bi1-1, bi2).Oid
	scratch := ScratchRef(s.Name)
	if err := v.UpdateRef(ctx, scratch, left); err != nil {
		return err
	}
	if err := v.Checkout(ctx, scratch, true); err != nil {
		return err
	}
	msg := fmt.Sprintf("imerge %q: manual merge %d-%d", s.Name, bi1, bi2)
	if err := v.ManualMergePrepare(ctx, left, upper, msg); err != nil {
		return err
	}
	return nil
}

// findGridIndex returns the absolute grid coordinates of oid if it
// appears anywhere in s's grid.
func findGridIndex(s *MergeState, oid vcs.Oid) (i1, i2 int, ok bool) {
	for a := 0; a < s.Block.Len1(); a++ {
		for b := 0; b < s.Block.Len2(); b++ {
			if s.Block.Get(a, b).Oid == oid {
				return a, b, true
			}
		}
	}
	return 0, 0, false
}

// Continue finishes incorporating a manual merge the user just
// committed on the scratch branch: if a simple merge is still in
// progress with changes staged, it commits that merge first (honoring
// imerge.editmergemessages), then locates HEAD's two parents in the
// grid, verifies they are adjacent cells, records the merge, detaches
// HEAD, deletes the scratch branch, and resumes automatic completion.
func Continue(ctx context.Context, v vcs.Vcs, s *MergeState) error {
	if _, err := v.CommitUserMerge(ctx, nil); err != nil {
		return err
	}
	if err := v.RequireCleanWorktree(ctx); err != nil {
		return err
	}
	head, err := v.Resolve(ctx, "HEAD")
	if err != nil {
		return err
	}
	return recordAndAdvance(ctx, v, s, head, true)
}

// Record incorporates commit as the manual merge at its blocked cell
// without assuming it lives on the scratch branch at HEAD: the CLI's
// `record` subcommand uses this to accept an already-built merge commit
// directly, skipping the scratch-branch cleanup Continue performs.
func Record(ctx context.Context, v vcs.Vcs, s *MergeState, commit vcs.Oid) error {
	return recordAndAdvance(ctx, v, s, commit, false)
}

func recordAndAdvance(ctx context.Context, v vcs.Vcs, s *MergeState, head vcs.Oid, viaScratch bool) error {
	parents, err := v.Parents(ctx, head)
	if err != nil {
		return err
	}
	if len(parents) != 2 {
		return &ManualMergeUnusableError{Reason: fmt.Sprintf("has %d parents, need exactly 2", len(parents))}
	}
	a1, a2, aok := findGridIndex(s, parents[0])
	b1, b2, bok := findGridIndex(s, parents[1])
	if !aok || !bok {
		return &ManualMergeUnusableError{Reason: "a parent is not a known grid cell"}
	}

	// The new cell's upper neighbor is (i1-1,i2) and left neighbor is
	// (i1,i2-1): figure out which parent is which, and whether parents
	// need to be swapped to match that canonical [upper,left] order.
	var upperI1, upperI2 int
	var swapped bool
	switch {
	case b1 == a1+1 && b2 == a2-1:
		upperI1, upperI2 = a1, a2
		swapped = false
	case a1 == b1+1 && a2 == b2-1:
		upperI1, upperI2 = b1, b2
		swapped = true
	default:
		return &ManualMergeUnusableError{Reason: "parents are not adjacent grid cells"}
	}
	i1, i2 := upperI1+1, upperI2

	if swapped {
		reparented, err := v.Reparent(ctx, head, []vcs.Oid{parents[1], parents[0]}, nil)
		if err != nil {
			return err
		}
		head = reparented
	}

	r := s.Block.Get(i1, i2)
	r.RecordManual(head)
	r.Flags &^= Blocked
	s.Block.Set(i1, i2, r)

	if viaScratch {
		if _, err := v.DetachHead(ctx); err != nil {
			return err
		}
		if err := v.DeleteRef(ctx, ScratchRef(s.Name)); err != nil {
			return err
		}
	}
	if err := s.Save(ctx, v); err != nil {
		return err
	}
	return AutoCompleteFrontier(ctx, v, s)
}
