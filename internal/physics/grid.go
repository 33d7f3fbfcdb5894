package physics

import "math"

// SpatialGrid buckets item indices by position so a collision pass only
// tests items in the 3x3 block of cells around a query point. The cell size
// must cover the largest collision distance. The grid does not wrap: cells
// past an edge are skipped.
type SpatialGrid struct {
	cell  float64
	cols  int
	rows  int
	items [][]int // Per cell, row-major; reused between ticks
}

// NewSpatialGrid creates a grid over a worldW by worldH area.
func NewSpatialGrid(worldW, worldH, cellSize float64) *SpatialGrid {
	g := &SpatialGrid{cell: cellSize}
	g.Resize(worldW, worldH)
	return g
}

// Resize lays the grid out for new world bounds, dropping every item.
func (g *SpatialGrid) Resize(worldW, worldH float64) {
	// Points on the far edge get a cell of their own
	g.cols = max(int(math.Floor(worldW/g.cell))+1, 1)
	g.rows = max(int(math.Floor(worldH/g.cell))+1, 1)
	g.items = make([][]int, g.cols*g.rows)
}

// Clear empties every cell, keeping the allocated capacity.
func (g *SpatialGrid) Clear() {
	for i := range g.items {
		g.items[i] = g.items[i][:0]
	}
}

// Insert files index under the cell containing x, y.
func (g *SpatialGrid) Insert(x, y float64, index int) {
	col, row := g.locate(x, y)
	i := row*g.cols + col
	g.items[i] = append(g.items[i], index)
}

// QueryAround calls fn for every index in the cells around x, y, row by row.
// Iteration stops once fn returns true.
func (g *SpatialGrid) QueryAround(x, y float64, fn func(index int) bool) {
	col, row := g.locate(x, y)
	for r := max(row-1, 0); r <= min(row+1, g.rows-1); r++ {
		for c := max(col-1, 0); c <= min(col+1, g.cols-1); c++ {
			for _, index := range g.items[r*g.cols+c] {
				if fn(index) {
					return
				}
			}
		}
	}
}

// locate returns the cell of x, y, clamped onto the grid.
func (g *SpatialGrid) locate(x, y float64) (col, row int) {
	col = min(max(int(x/g.cell), 0), g.cols-1)
	row = min(max(int(y/g.cell), 0), g.rows-1)
	return col, row
}
