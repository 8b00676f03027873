package imerge

import (
	"context"
	"errors"
	"fmt"

	"github.com/imerge-tools/imerge/pkg/vcs"
)

// autoFillMicromerge attempts the single trial merge needed to fill local
// cell (i1,i2), whose upper neighbor (i1-1,i2) and left neighbor
// (i1,i2-1) must already be known. It records NEW_AUTO and returns true
// on success, or marks the cell BLOCKED and returns false on conflict.
//
// The merge is run as automerge(upper, left) rather than gitimerge's
// automerge(left, upper): for a clean automatic merge the resulting tree
// does not depend on which side is checked out first, only the parent
// order does, and recording parents as [upper, left] is what lets every
// recorded auto cell satisfy the grid's parent-correctness invariant.
func autoFillMicromerge(ctx context.Context, v vcs.Vcs, name string, block *Block, i1, i2 int) (bool, error) {
	upper := block.Get(i1-1, i2).Oid
	left := block.Get(i1, i2-1).Oid
	abs1, abs2 := block.Absolute(i1, i2)
	msg := fmt.Sprintf("imerge %q: automatic merge %d-%d", name, abs1, abs2)
	oid, err := v.AutoMerge(ctx, upper, left, msg)
	if err != nil {
		var conflict *vcs.ConflictError
		if errors.As(err, &conflict) {
			r := block.Get(i1, i2)
			r.RecordBlocked()
			block.Set(i1, i2, r)
			return false, nil
		}
		return false, err
	}
	r := block.Get(i1, i2)
	r.RecordAuto(oid)
	block.Set(i1, i2, r)
	return true, nil
}

// fullFrontier fills block completely, one micromerge at a time,
// row by row from the bottom-left.
type fullFrontier struct {
	block *Block
}

func newFullFrontier(block *Block) *fullFrontier { return &fullFrontier{block: block} }

func (f *fullFrontier) nonEmpty() bool { return f.block.IsKnown(1, 1) }

func (f *fullFrontier) isComplete() bool {
	return f.block.IsKnown(f.block.Len1()-1, f.block.Len2()-1)
}

// incorporateMerge clears BLOCKED at absolute (absI1,absI2); it fails
// with *NotABlockingCommitError if that cell was not blocked.
func (f *fullFrontier) incorporateMerge(absI1, absI2 int) error {
	i1, i2, ok := f.block.Local(absI1, absI2)
	if !ok || !f.block.IsBlocked(i1, i2) {
		return &NotABlockingCommitError{Oid: fmt.Sprintf("%d-%d", absI1, absI2)}
	}
	r := f.block.Get(i1, i2)
	r.Flags &^= Blocked
	f.block.Set(i1, i2, r)
	return nil
}

// autoExpand walks every row from the bottom, attempting a micromerge at
// each unknown, unblocked cell. A conflict blocks that cell and
// truncates the row's usable width for every subsequent row; once every
// column is blocked by that point, it raises FrontierBlockedError naming
// the leftmost blocker. It returns errBlockComplete if the block was
// already fully known.
func (f *fullFrontier) autoExpand(ctx context.Context, v vcs.Vcs, name string) error {
	block := f.block
	len2 := block.Len2()

	var blocker *[2]int
	for i1 := 1; i1 < block.Len1(); i1++ {
		for i2 := 1; i2 < len2; i2++ {
			switch {
			case block.IsKnown(i1, i2):
				continue
			case block.IsBlocked(i1, i2):
				if blocker == nil {
					abs1, abs2 := block.Absolute(i1, i2)
					blocker = &[2]int{abs1, abs2}
				}
				len2 = i2
			default:
				ok, err := autoFillMicromerge(ctx, v, name, block, i1, i2)
				if err != nil {
					return err
				}
				if ok {
					continue
				}
				if blocker == nil {
					abs1, abs2 := block.Absolute(i1, i2)
					blocker = &[2]int{abs1, abs2}
				}
				len2 = i2
			}
			break
		}
	}

	if blocker != nil {
		return &FrontierBlockedError{I1: blocker[0], I2: blocker[1]}
	}
	return errBlockComplete
}

// manualFrontier is a fullFrontier variant that never attempts an
// automatic merge: the first unknown cell immediately blocks.
type manualFrontier struct {
	block *Block
}

func newManualFrontier(block *Block) *manualFrontier { return &manualFrontier{block: block} }

func (f *manualFrontier) nonEmpty() bool     { return f.block.IsKnown(1, 1) }
func (f *manualFrontier) isComplete() bool   { return (&fullFrontier{f.block}).isComplete() }
func (f *manualFrontier) incorporateMerge(absI1, absI2 int) error {
	return (&fullFrontier{f.block}).incorporateMerge(absI1, absI2)
}

func (f *manualFrontier) autoExpand(ctx context.Context, v vcs.Vcs, name string) error {
	block := f.block
	for i1 := 1; i1 < block.Len1(); i1++ {
		for i2 := 1; i2 < block.Len2(); i2++ {
			if !block.IsKnown(i1, i2) {
				abs1, abs2 := block.Absolute(i1, i2)
				return &FrontierBlockedError{I1: abs1, I2: abs2}
			}
		}
	}
	return errBlockComplete
}
