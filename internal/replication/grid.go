package replication

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// interestGrid answers "which entities are near this observer" in O(1)
// average time. Cells hold indices into the world's entity slice, not
// pointers, and keep their capacity across ticks.
//
// Positions use the X/Y ground plane; height does not affect interest.
// Cells are stored row-major (cells[row*cols+col]).
type interestGrid struct {
	invCellSize float32
	cols, rows  int
	cells       [][]uint32
	scratch     []uint32
}

// newInterestGrid creates a grid covering a square world of the given size.
// cellSize should equal the view distance.
func newInterestGrid(worldSize, cellSize float32, maxEntities int) *interestGrid {
	n := int(math.Ceil(float64(worldSize / cellSize)))
	if n < 1 {
		n = 1
	}

	cells := make([][]uint32, n*n)
	perCell := maxEntities / len(cells)
	if perCell < 4 {
		perCell = 4
	}
	for i := range cells {
		cells[i] = make([]uint32, 0, perCell)
	}

	return &interestGrid{
		invCellSize: 1 / cellSize,
		cols:        n,
		rows:        n,
		cells:       cells,
		scratch:     make([]uint32, 0, 64),
	}
}

// clear resets all cells without releasing memory.
func (g *interestGrid) clear() {
	for i := range g.cells {
		g.cells[i] = g.cells[i][:0]
	}
}

func (g *interestGrid) clampCol(c int) int {
	if c < 0 {
		return 0
	}
	if c >= g.cols {
		return g.cols - 1
	}
	return c
}

func (g *interestGrid) clampRow(r int) int {
	if r < 0 {
		return 0
	}
	if r >= g.rows {
		return g.rows - 1
	}
	return r
}

// insert adds entity index id at pos. Positions outside the world are
// clamped to the border cells.
func (g *interestGrid) insert(id uint32, pos mgl32.Vec3) {
	col := g.clampCol(int(pos.X() * g.invCellSize))
	row := g.clampRow(int(pos.Y() * g.invCellSize))
	idx := row*g.cols + col
	g.cells[idx] = append(g.cells[idx], id)
}

// query returns candidate indices within radius of center. The slice is
// reused by the next call, and may include entities outside the radius;
// callers do the precise distance check.
func (g *interestGrid) query(center mgl32.Vec3, radius float32) []uint32 {
	g.scratch = g.scratch[:0]

	minCol := g.clampCol(int((center.X() - radius) * g.invCellSize))
	maxCol := g.clampCol(int((center.X() + radius) * g.invCellSize))
	minRow := g.clampRow(int((center.Y() - radius) * g.invCellSize))
	maxRow := g.clampRow(int((center.Y() + radius) * g.invCellSize))

	for row := minRow; row <= maxRow; row++ {
		for col := minCol; col <= maxCol; col++ {
			g.scratch = append(g.scratch, g.cells[row*g.cols+col]...)
		}
	}
	return g.scratch
}

// gridStats contains occupancy figures for the stats endpoint.
type gridStats struct {
	TotalCells    int `json:"totalCells"`
	NonEmptyCells int `json:"nonEmptyCells"`
	MaxInCell     int `json:"maxInCell"`
}

func (g *interestGrid) stats() gridStats {
	s := gridStats{TotalCells: len(g.cells)}
	for _, cell := range g.cells {
		if len(cell) > 0 {
			s.NonEmptyCells++
		}
		if len(cell) > s.MaxInCell {
			s.MaxInCell = len(cell)
		}
	}
	return s
}
