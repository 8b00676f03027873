package imerge

import (
	"context"

	"github.com/imerge-tools/imerge/pkg/vcs"
)

// CellKind classifies one grid cell for diagram rendering, matching
// gitimerge.py's Block.MergeState lookup table (is_known, is_manual,
// is_blocked) -> MERGE_*.
type CellKind int

const (
	CellUnknown CellKind = iota
	CellManual
	CellAutomatic
	CellBlocked
	CellUnblocked // known, but was blocked at some point in its history
)

// FrontierBit marks a cell's position relative to the current Blockwise
// merge frontier, overlaid on top of CellKind. Full and Manual frontiers
// never set these (gitimerge.py's MergeFrontier.create_diagram does not
// override the block-only diagram for those two strategies).
type FrontierBit uint8

const (
	FrontierWithin FrontierBit = 1 << iota
	FrontierRightEdge
	FrontierBottomEdge
)

// DiagramCell is one cell of a rendered grid: its merge-provenance kind,
// the commit it holds (if any), and its frontier overlay bits.
type DiagramCell struct {
	Kind     CellKind
	Oid      vcs.Oid
	Frontier FrontierBit
}

func cellKind(r MergeRecord) CellKind {
	switch {
	case !r.IsKnown() && !r.IsBlocked():
		return CellUnknown
	case !r.IsKnown() && r.IsBlocked():
		return CellBlocked
	case r.IsKnown() && r.IsBlocked():
		return CellUnblocked
	case r.IsKnown() && r.IsManual():
		return CellManual
	default:
		return CellAutomatic
	}
}

// Diagram computes the full len1 x len2 grid of DiagramCell for s,
// mapping its current frontier (which may run trial merges to
// rediscover a Blockwise frontier's shape, exactly as gitimerge.py's
// `diagram` subcommand does) and overlaying FRONTIER_* bits when the
// frontier strategy is Blockwise.
func Diagram(ctx context.Context, v vcs.Vcs, s *MergeState) ([][]DiagramCell, error) {
	block := s.Block
	len1, len2 := block.Len1(), block.Len2()
	grid := make([][]DiagramCell, len1)
	for i1 := range grid {
		grid[i1] = make([]DiagramCell, len2)
		for i2 := range grid[i1] {
			r := block.Get(i1, i2)
			grid[i1][i2] = DiagramCell{Kind: cellKind(r), Oid: r.Oid}
		}
	}

	frontier, err := mapFrontier(ctx, v, s)
	if err != nil {
		return nil, err
	}
	if bf, ok := frontier.(blockwiseFrontierAdapter); ok {
		applyFrontierOverlay(grid, bf.blockwiseFrontier)
	}
	return grid, nil
}

// applyFrontierOverlay ports gitimerge.py's BlockwiseMergeFrontier
// .create_diagram (the FRONTIER_WITHIN/RIGHT_EDGE/BOTTOM_EDGE bit
// placement along each frontier block's trailing edges).
func applyFrontierOverlay(grid [][]DiagramCell, f *blockwiseFrontier) {
	block := f.block
	len2 := block.Len2()

	var nextBlock *Block
	if len(f.blocks) > 0 {
		nextBlock = f.blocks[0]
	}
	setBit(grid, block, 0, len2-1, FrontierBottomEdge)
	for i2 := 1; i2 < len2; i2++ {
		if nextBlock == nil || i2 >= nextBlock.Len2() {
			setBit(grid, block, 0, i2, FrontierRightEdge)
		}
	}

	var prevBlock *Block
	for n, blk := range f.blocks {
		var next *Block
		if n+1 < len(f.blocks) {
			next = f.blocks[n+1]
		}
		for i1 := 0; i1 < blk.Len1(); i1++ {
			for i2 := 0; i2 < blk.Len2(); i2++ {
				v := FrontierWithin
				if i1 == blk.Len1()-1 && (next == nil || i2 >= next.Len2()) {
					v |= FrontierRightEdge
				}
				if i2 == blk.Len2()-1 && (prevBlock == nil || i1 >= prevBlock.Len1()) {
					v |= FrontierBottomEdge
				}
				abs1, abs2 := blk.Absolute(i1, i2)
				grid[abs1][abs2].Frontier |= v
			}
		}
		prevBlock = blk
	}

	var lastBlock *Block
	if len(f.blocks) > 0 {
		lastBlock = f.blocks[len(f.blocks)-1]
	}
	for i1 := 1; i1 < block.Len1(); i1++ {
		if lastBlock == nil || i1 >= lastBlock.Len1() {
			setBit(grid, block, i1, 0, FrontierBottomEdge)
		}
	}
	setBit(grid, block, block.Len1()-1, 0, FrontierRightEdge)
}

func setBit(grid [][]DiagramCell, block *Block, i1, i2 int, bit FrontierBit) {
	abs1, abs2 := block.Absolute(i1, i2)
	grid[abs1][abs2].Frontier |= bit
}
