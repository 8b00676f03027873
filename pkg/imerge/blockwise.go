package imerge

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/imerge-tools/imerge/pkg/vcs"
)

// autoOutline fills in the outline of block (its bottom edge, its right
// edge and the far vertex) given that its left and top edges are already
// known, by merging along the bottom edge, then the right edge, then
// reconciling the two paths to the far vertex; interior cells are left
// as they are. It stages every merge
// it creates and only writes them into block once the whole outline
// succeeds, so a failure partway through never leaves a partial result
// behind (the caller backtracks instead).
func autoOutline(ctx context.Context, v vcs.Vcs, name string, block *Block) error {
	type staged struct {
		i1, i2 int
		oid    vcs.Oid
	}
	var merges []staged

	doMerge := func(i1 int, commit1 vcs.Oid, i2 int, commit2 vcs.Oid, record bool) (vcs.Oid, error) {
		if block.IsKnown(i1, i2) {
			return block.Get(i1, i2).Oid, nil
		}
		abs1, abs2 := block.Absolute(i1, i2)
		msg := fmt.Sprintf("imerge %q: automatic merge %d-%d", name, abs1, abs2)
		oid, err := v.AutoMerge(ctx, commit1, commit2, msg)
		if err != nil {
			var conflict *vcs.ConflictError
			if errors.As(err, &conflict) {
				return "", &UnexpectedMergeFailureError{I1: i1, I2: i2}
			}
			return "", err
		}
		if record {
			merges = append(merges, staged{i1, i2, oid})
		}
		return oid, nil
	}

	len1, len2 := block.Len1(), block.Len2()

	i2 := len2 - 1
	left := block.Get(0, i2).Oid
	var err error
	for i1 := 1; i1 <= len1-2; i1++ {
		left, err = doMerge(i1, block.Get(i1, 0).Oid, i2, left, true)
		if err != nil {
			return err
		}
	}

	i1 := len1 - 1
	above := block.Get(i1, 0).Oid
	for i2 := 1; i2 <= len2-2; i2++ {
		above, err = doMerge(i1, above, i2, block.Get(0, i2).Oid, true)
		if err != nil {
			return err
		}
	}

	i1, i2 = len1-1, len2-1
	if i1 > 1 && i2 > 1 {
		vertexV1, err := doMerge(i1, block.Get(i1, 0).Oid, i2, left, false)
		if err != nil {
			return err
		}
		vertexV2, err := doMerge(i1, above, i2, block.Get(0, i2).Oid, false)
		if err != nil {
			return err
		}
		t1, err := v.GetTree(ctx, vertexV1)
		if err != nil {
			return err
		}
		t2, err := v.GetTree(ctx, vertexV2)
		if err != nil {
			return err
		}
		if t1 != t2 {
			return &UnexpectedMergeFailureError{I1: i1, I2: i2}
		}
		reparented, err := v.Reparent(ctx, vertexV1, []vcs.Oid{above, left}, nil)
		if err != nil {
			return err
		}
		merges = append(merges, staged{i1, i2, reparented})
	} else {
		if _, err := doMerge(i1, above, i2, left, true); err != nil {
			return err
		}
	}

	for _, m := range merges {
		r := block.Get(m.i1, m.i2)
		r.RecordAuto(m.oid)
		block.Set(m.i1, m.i2, r)
	}
	return nil
}

// blockwiseFrontier is a normalized list of maximal rectangles within
// block that are believed to be completely mergeable (outlined or not).
// Invariants held by normalizeBlocks: no empty blocks, no block contains
// another, sorted bottom-left to top-right by Len1.
type blockwiseFrontier struct {
	block  *Block
	blocks []*Block
}

func newBlockwiseFrontier(block *Block, blocks []*Block) *blockwiseFrontier {
	return &blockwiseFrontier{block: block, blocks: normalizeBlocks(blocks)}
}

func normalizeBlocks(blocks []*Block) []*Block {
	sorted := make([]*Block, len(blocks))
	copy(sorted, blocks)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Len1() < sorted[j].Len1() })

	contains := func(a, b *Block) bool { return a.Len1() >= b.Len1() && a.Len2() >= b.Len2() }

	var ret []*Block
	for _, blk := range sorted {
		if blk.Len1() == 0 || blk.Len2() == 0 {
			continue
		}
		for {
			if len(ret) == 0 {
				ret = append(ret, blk)
				break
			}
			last := ret[len(ret)-1]
			if contains(last, blk) {
				break
			}
			if contains(blk, last) {
				ret = ret[:len(ret)-1]
				continue
			}
			ret = append(ret, blk)
			break
		}
	}
	return ret
}

func (f *blockwiseFrontier) nonEmpty() bool { return len(f.blocks) > 0 }

// isComplete reports whether this frontier's single block spans all of
// f.block, i.e. the entire region has been shown mergeable.
func (f *blockwiseFrontier) isComplete() bool {
	return len(f.blocks) == 1 && f.blocks[0].Len1() == f.block.Len1() && f.blocks[0].Len2() == f.block.Len2()
}

// removeFailure refines the frontier given that the merge at local (i1,i2)
// (relative to f.block) in fact failed: any block whose extent contains
// (i1,i2) is replaced by up to two proper sub-rectangles, one truncated
// just above the failure and one truncated just to its left.
func (f *blockwiseFrontier) removeFailure(i1, i2 int) {
	var newBlocks []*Block
	shrunk := false
	for _, blk := range f.blocks {
		if i1 < blk.Len1() && i2 < blk.Len2() {
			if i1 > 1 {
				newBlocks = append(newBlocks, blk.SubBlock(i1, blk.Len2()))
			}
			if i2 > 1 {
				newBlocks = append(newBlocks, blk.SubBlock(blk.Len1(), i2))
			}
			shrunk = true
		} else {
			newBlocks = append(newBlocks, blk)
		}
	}
	if shrunk {
		f.blocks = normalizeBlocks(newBlocks)
	}
}

// partition splits this frontier into the zero, one, or two frontiers
// lying strictly to the left of and/or above sub, which must be one of
// f.blocks and must already be fully outlined.
func (f *blockwiseFrontier) partition(sub *Block) ([]*blockwiseFrontier, error) {
	var left, right []*Block
	for _, b := range f.blocks {
		switch {
		case b.Len1() == sub.Len1() && b.Len2() == sub.Len2():
			// the block just partitioned on; drop it.
		case b.Len1() < sub.Len1() && b.Len2() > sub.Len2():
			left = append(left, b.Slice(0, b.Len1(), sub.Len2()-1, b.Len2()))
		case b.Len1() > sub.Len1() && b.Len2() < sub.Len2():
			right = append(right, b.Slice(sub.Len1()-1, b.Len1(), 0, b.Len2()))
		default:
			return nil, errors.New("imerge: blockwise frontier partitioned with inappropriate block")
		}
	}

	var out []*blockwiseFrontier
	if sub.Len2() < f.block.Len2() {
		out = append(out, newBlockwiseFrontier(f.block.Slice(0, sub.Len1(), sub.Len2()-1, f.block.Len2()), left))
	}
	if sub.Len1() < f.block.Len1() {
		out = append(out, newBlockwiseFrontier(f.block.Slice(sub.Len1()-1, f.block.Len1(), 0, sub.Len2()), right))
	}
	return out, nil
}

// boundaryBlocks is f.blocks plus, where needed to close the boundary,
// the implicit one-wide blocks along f.block's left column and bottom
// row.
func (f *blockwiseFrontier) boundaryBlocks() []*Block {
	var out []*Block
	if len(f.blocks) == 0 || f.blocks[0].Len2() < f.block.Len2() {
		out = append(out, f.block.Slice(0, 1, 0, f.block.Len2()))
	}
	out = append(out, f.blocks...)
	if len(f.blocks) == 0 || f.blocks[len(f.blocks)-1].Len1() < f.block.Len1() {
		out = append(out, f.block.Slice(0, f.block.Len1(), 0, 1))
	}
	return out
}

// blockerBlocks yields the rectangles in the gaps between successive
// boundary blocks: the regions on the far side of the frontier that a
// single additional merge could unblock.
func (f *blockwiseFrontier) blockerBlocks() []*Block {
	boundary := f.boundaryBlocks()
	var out []*Block
	for i := 0; i+1 < len(boundary); i++ {
		b1, b2 := boundary[i], boundary[i+1]
		out = append(out, f.block.Slice(b1.Len1()-1, b2.Len1(), b2.Len2()-1, b1.Len2()))
	}
	return out
}

func (f *blockwiseFrontier) affectedBlockerBlock(absI1, absI2 int) (*Block, error) {
	for _, blk := range f.blockerBlocks() {
		li1, li2, ok := blk.Local(absI1, absI2)
		if !ok {
			continue
		}
		if li1 == 1 && li2 == 1 {
			return blk, nil
		}
		return nil, &NotABlockingCommitError{Oid: fmt.Sprintf("%d-%d", absI1, absI2)}
	}
	return nil, &NotABlockingCommitError{Oid: fmt.Sprintf("%d-%d", absI1, absI2)}
}

// incorporateMerge clears BLOCKED on the blocker block that a successful
// merge at absolute (absI1,absI2) unblocks. It fails with
// *NotABlockingCommitError if that merge was not on the frontier.
func (f *blockwiseFrontier) incorporateMerge(absI1, absI2 int) error {
	blk, err := f.affectedBlockerBlock(absI1, absI2)
	if err != nil {
		return err
	}
	r := blk.Get(1, 1)
	r.Flags &^= Blocked
	blk.Set(1, 1, r)
	return nil
}

// autoExpand tries to outline one blocker block of the frontier. It
// returns errBlockComplete if the frontier already spans the whole
// block, or a *FrontierBlockedError naming the leftmost unresolved
// commit if no blocker block could be expanded. It does not mutate f;
// a successful expansion means the frontier must be recomputed from the
// (mutated) grid.
func (f *blockwiseFrontier) autoExpand(ctx context.Context, v vcs.Vcs, name string) error {
	blocks := f.blockerBlocks()
	if len(blocks) == 0 {
		return errBlockComplete
	}
	sort.Slice(blocks, func(i, j int) bool {
		a1, a2 := blocks[i].Absolute(0, 0)
		b1, b2 := blocks[j].Absolute(0, 0)
		if a1 != b1 {
			return a1 < b1
		}
		return a2 < b2
	})

	for _, blk := range blocks {
		mf, err := initiateMerge(ctx, v, name, blk)
		if err != nil {
			return err
		}
		if mf.nonEmpty() {
			return nil
		}
	}
	i1, i2 := blocks[0].Absolute(1, 1)
	return &FrontierBlockedError{I1: i1, I2: i2}
}

// initiateMerge computes the step-stair frontier of block by bisection,
// then outlines each discovered rectangle, backtracking (splitting and
// retrying with a smaller rectangle) whenever outlining turns up a merge
// that was predicted to succeed but didn't. Every backtrack strictly
// shrinks the total area still being attempted, so the loop terminates.
func initiateMerge(ctx context.Context, v vcs.Vcs, name string, block *Block) (*blockwiseFrontier, error) {
	var discovered []*Block
	if err := findFrontierBlocks(ctx, v, block, func(b *Block) error {
		discovered = append(discovered, b)
		return nil
	}); err != nil {
		return nil, err
	}
	topLevel := newBlockwiseFrontier(block, discovered)

	frontier := topLevel
	for frontier.nonEmpty() {
		subblock := frontier.blocks[0]
		err := autoOutline(ctx, v, name, subblock)
		if err == nil {
			subFrontiers, perr := frontier.partition(subblock)
			if perr != nil {
				return nil, perr
			}
			var next *blockwiseFrontier
			for _, sf := range subFrontiers {
				if sf.nonEmpty() {
					next = sf
					break
				}
			}
			if next == nil {
				break
			}
			frontier = next
			continue
		}

		var failure *UnexpectedMergeFailureError
		if !errors.As(err, &failure) {
			return nil, err
		}
		frontier.removeFailure(failure.I1, failure.I2)
		if failure.I1 == 1 && failure.I2 == 1 {
			r := subblock.Get(1, 1)
			r.RecordBlocked()
			subblock.Set(1, 1, r)
		}
		if frontier != topLevel {
			abs1, abs2 := subblock.Absolute(failure.I1, failure.I2)
			if li1, li2, ok := topLevel.block.Local(abs1, abs2); ok {
				topLevel.removeFailure(li1, li2)
			}
		}
		// retry the same frontier from its (now smaller) first block.
	}

	return topLevel, nil
}
