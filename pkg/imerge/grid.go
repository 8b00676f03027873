package imerge

// Grid is the dense (m+1)x(n+1) backing store of merge records, indexed
// [i1][i2] with 0<=i1<=m, 0<=i2<=n.
type Grid struct {
	m, n  int
	cells [][]MergeRecord
}

func NewGrid(m, n int) *Grid {
	cells := make([][]MergeRecord, m+1)
	for i := range cells {
		cells[i] = make([]MergeRecord, n+1)
	}
	return &Grid{m: m, n: n, cells: cells}
}

func (g *Grid) M() int { return g.m }
func (g *Grid) N() int { return g.n }

func (g *Grid) Get(i1, i2 int) MergeRecord { return g.cells[i1][i2] }

func (g *Grid) Set(i1, i2 int, r MergeRecord) { g.cells[i1][i2] = r }

// Block is a rectangular view [start1:start1+len1, start2:start2+len2] of a
// Grid. Indices passed to its methods are local to the view; SubBlock
// flattens directly against the backing Grid rather than nesting views, per
// the "avoid recursive nesting" design note.
type Block struct {
	grid           *Grid
	start1, start2 int
	len1, len2     int
}

// FullBlock returns a view over the whole grid. Len1/Len2 follow
// gitimerge.py's counting convention (Len1 == number of valid i1 values,
// so valid local indices run 0..Len1()-1), not the last valid index.
func FullBlock(g *Grid) *Block {
	return &Block{grid: g, len1: g.m + 1, len2: g.n + 1}
}

// Len1 is the number of valid i1 coordinates in this block (0..Len1()-1).
func (b *Block) Len1() int { return b.len1 }

// Len2 is the number of valid i2 coordinates in this block (0..Len2()-1).
func (b *Block) Len2() int { return b.len2 }

// Area is the number of distinct pairwise merges a fully-outlined block
// would need to have discovered, matching gitimerge.py's get_area().
func (b *Block) Area() int { return (b.len1 - 1) * (b.len2 - 1) }

func (b *Block) Get(i1, i2 int) MergeRecord { return b.grid.Get(b.start1+i1, b.start2+i2) }

func (b *Block) Set(i1, i2 int, r MergeRecord) { b.grid.Set(b.start1+i1, b.start2+i2, r) }

// Absolute translates a local coordinate to grid coordinates.
func (b *Block) Absolute(i1, i2 int) (int, int) { return b.start1 + i1, b.start2 + i2 }

// SubBlock returns the view covering local rows [0:end1) and columns
// [0:end2) of b, i.e. Python's block[:end1, :end2]. Like FullBlock, end1
// and end2 are counts: the returned block's Len1()==end1, Len2()==end2.
func (b *Block) SubBlock(end1, end2 int) *Block {
	return b.Slice(0, end1, 0, end2)
}

// Slice returns the view covering local rows [r0,r1) and columns [c0,c1)
// of b, flattened directly against the backing Grid (never nested),
// i.e. Python's block[r0:r1, c0:c1].
func (b *Block) Slice(r0, r1, c0, c1 int) *Block {
	return &Block{grid: b.grid, start1: b.start1 + r0, start2: b.start2 + c0, len1: r1 - r0, len2: c1 - c0}
}

// Local converts absolute grid coordinates into this block's local
// coordinate space, reporting ok=false if they fall outside the block.
func (b *Block) Local(absI1, absI2 int) (i1, i2 int, ok bool) {
	i1, i2 = absI1-b.start1, absI2-b.start2
	if i1 < 0 || i1 >= b.len1 || i2 < 0 || i2 >= b.len2 {
		return 0, 0, false
	}
	return i1, i2, true
}

// IsKnown reports whether the cell holds a commit.
func (b *Block) IsKnown(i1, i2 int) bool { return b.Get(i1, i2).IsKnown() }

// IsBlocked reports whether the cell is marked blocked.
func (b *Block) IsBlocked(i1, i2 int) bool { return b.Get(i1, i2).IsBlocked() }

// IsFullyKnown reports whether every cell of the block holds a commit
// (used by invariant checks and tests; the frontier algorithm itself
// never needs to scan an entire block — that's the point of outlining).
func (b *Block) IsFullyKnown() bool {
	for i1 := 0; i1 < b.len1; i1++ {
		for i2 := 0; i2 < b.len2; i2++ {
			if !b.IsKnown(i1, i2) {
				return false
			}
		}
	}
	return true
}
