package imerge

import (
	"context"

	"github.com/imerge-tools/imerge/pkg/vcs"
)

// findFirstFalse returns the smallest i in [lo,hi) for which pred(i) is
// false, assuming pred is true for a (possibly empty) prefix of the range
// and false for the rest; if pred never goes false it returns hi. This is
// the bisection primitive every frontier search is built from: it costs
// O(log(hi-lo)) calls to pred instead of a linear scan.
func findFirstFalse(ctx context.Context, lo, hi int, pred func(ctx context.Context, i int) (bool, error)) (int, error) {
	for lo < hi {
		mid := lo + (hi-lo)/2
		ok, err := pred(ctx, mid)
		if err != nil {
			return 0, err
		}
		if ok {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo, nil
}

// isMergeable reports whether block[i1,0] and block[0,i2] merge cleanly,
// without recording anything. A previously-discovered cell at (i1,i2)
// answers immediately; otherwise it probes with a throwaway AutoMerge.
func isMergeable(ctx context.Context, v vcs.Vcs, block *Block, i1, i2 int) (bool, error) {
	if block.IsKnown(i1, i2) {
		return true, nil
	}
	if block.IsBlocked(i1, i2) {
		return false, nil
	}
	left := block.Get(i1, 0).Oid
	upper := block.Get(0, i2).Oid
	_, err := v.AutoMerge(ctx, left, upper, "")
	if err == nil {
		return true, nil
	}
	var conflict *vcs.ConflictError
	if asConflictError(err, &conflict) {
		return false, nil
	}
	return false, err
}

func asConflictError(err error, target **vcs.ConflictError) bool {
	ce, ok := err.(*vcs.ConflictError)
	if ok {
		*target = ce
	}
	return ok
}

// findFrontierBlocks finds, via bisection, the step-stair boundary between
// mergeable and conflicting cells within block and yields the maximal
// rectangular sub-blocks ([:i1,:i2] in Python's slice notation) that lie
// entirely within the mergeable region, from the bottom-left to the
// top-right. It relies on two assumptions (only approximately true; see
// auto_outline, which verifies and corrects):
//
//  1. if block[i1-1,0] merges with block[0,i2-1], every pairwise merge in
//     block[1:i1,1:i2] also succeeds;
//  2. if that merge fails, every pairwise merge in block[i1-1:,i2-1:] also
//     fails.
//
// Any remaining cell this function could not place in a mergeable
// rectangle is left unknown, except for (1,1), which is recorded blocked
// when the whole block turns out to be unmergeable.
func findFrontierBlocks(ctx context.Context, v vcs.Vcs, block *Block, yield func(*Block) error) error {
	if block.Len1() <= 1 || block.Len2() <= 1 || block.IsBlocked(1, 1) {
		return nil
	}

	merge := func(ctx context.Context, i1, i2 int) (bool, error) { return isMergeable(ctx, v, block, i1, i2) }

	whole, err := isMergeable(ctx, v, block, block.Len1()-1, block.Len2()-1)
	if err != nil {
		return err
	}
	if whole {
		return yield(block)
	}

	cornerOK, err := isMergeable(ctx, v, block, 1, 1)
	if err != nil {
		return err
	}
	if !cornerOK {
		r := block.Get(1, 1)
		r.RecordBlocked()
		block.Set(1, 1, r)
		return nil
	}

	i1 := 1
	i2, err := findFirstFalse(ctx, 2, block.Len2(), func(ctx context.Context, i int) (bool, error) {
		return merge(ctx, i1, i)
	})
	if err != nil {
		return err
	}

	for {
		if i2 == 1 {
			return nil
		}

		lastRowOK, err := isMergeable(ctx, v, block, block.Len1()-1, i2-1)
		if err != nil {
			return err
		}
		if i1 == block.Len1()-1 || lastRowOK {
			return yield(block.SubBlock(block.Len1(), i2))
		}
		i1, err = findFirstFalse(ctx, i1+1, block.Len1()-1, func(ctx context.Context, i int) (bool, error) {
			return merge(ctx, i, i2-1)
		})
		if err != nil {
			return err
		}
		if err := yield(block.SubBlock(i1, i2)); err != nil {
			return err
		}

		if i2-1 == 1 {
			return nil
		}
		col1OK, err := isMergeable(ctx, v, block, i1, 1)
		if err != nil {
			return err
		}
		if !col1OK {
			return nil
		}
		i2, err = findFirstFalse(ctx, 2, i2-1, func(ctx context.Context, i int) (bool, error) {
			return merge(ctx, i1, i)
		})
		if err != nil {
			return err
		}
	}
}
