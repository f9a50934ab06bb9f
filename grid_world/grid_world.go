package grid_world

import (
	"errors"
	"fmt"

	"rlsim/models"
)

const (
	// Cell types
	EMPTY  = 'o'
	WALL   = 'W'
	START  = '-'
	GOAL   = '+'
	CLIFF  = 'C'
	HAZARD = 'X'
	PRIZE  = '$'
)

// The demo layouts. Row 0 is the top row, as printed in a console.
var (
	CliffLayout []string = []string{
		"oooooooooooo",
		"oooooooooooo",
		"oooooooooooo",
		"-CCCCCCCCCC+",
	}

	ValueLayout []string = []string{
		"oooooooooo",
		"oooooooo$o",
		"ooXXoooooo",
		"ooXooooooo",
		"oooooooooo",
		"ooooWWWooo",
		"oooooooooo",
		"oooooooooo",
		"oooooooooo",
		"oooooooooo",
	}

	ParkingLayout []string = []string{
		"-ooooooooooooooooooo",
		"oooooooooooooooooooo",
		"oooooooooooooooooooo",
		"oooooooooooooooooooo",
		"oooooooooooooooooooo",
		"oooooooooooooooooooo",
		"oooooooooooooooooooo",
		"oooooooooooooooooooo",
		"oooooooooooooooooooo",
		"oooooooooooooooooooo",
		"oooooooooooooooooooo",
		"oooooooooooooooooooo",
		"oooooooooooooooooooo",
		"oooooooooooooooooooo",
		"oooooooooooooooooooo",
		"ooooooooooooooo+oooo",
		"oooooooooooooooooooo",
		"oooooooooooooooooooo",
		"oooooooooooooooooooo",
		"oooooooooooooooooooo",
	}
)

var (
	// ErrEmptyLayout is returned when a layout has no rows or no columns.
	ErrEmptyLayout = errors.New("layout has no cells")
	// ErrRaggedLayout is returned when layout rows differ in length.
	ErrRaggedLayout = errors.New("layout rows differ in length")
	// ErrUnknownCell is returned for a rune that is not a cell type.
	ErrUnknownCell = errors.New("unknown cell type")
)

// Grid is a rectangular layout of typed cells. Every cell, walls included,
// owns a state index so that tables can be pre-sized to Rows*Cols.
type Grid struct {
	rows, cols int
	cells      [][]rune
}

// Convert parses a layout into a Grid, validating its shape and cell runes.
func Convert(layout []string) (*Grid, error) {
	if len(layout) == 0 || len(layout[0]) == 0 {
		return nil, ErrEmptyLayout
	}

	g := &Grid{
		rows:  len(layout),
		cols:  len(layout[0]),
		cells: make([][]rune, 0, len(layout)),
	}
	for r, line := range layout {
		row := []rune(line)
		if len(row) != g.cols {
			return nil, fmt.Errorf("row %d: %w", r, ErrRaggedLayout)
		}
		for c, cell := range row {
			switch cell {
			case EMPTY, WALL, START, GOAL, CLIFF, HAZARD, PRIZE:
			default:
				return nil, fmt.Errorf("cell (%d,%d) %q: %w", r, c, cell, ErrUnknownCell)
			}
		}
		g.cells = append(g.cells, row)
	}
	return g, nil
}

// MustConvert is Convert for the compiled-in layouts.
func MustConvert(layout []string) *Grid {
	g, err := Convert(layout)
	if err != nil {
		panic(err)
	}
	return g
}

// Dims returns the number of rows and columns.
func (g *Grid) Dims() (rows, cols int) {
	return g.rows, g.cols
}

func (g *Grid) NumStates() int {
	return g.rows * g.cols
}

func (g *Grid) NumActions() int {
	return models.NUM_DIRECTIONS
}

// StateOf returns the row-major state index of p.
func (g *Grid) StateOf(p models.Point) models.State {
	return models.State(p.Row*g.cols + p.Col)
}

// PointOf returns the coordinates of state s.
func (g *Grid) PointOf(s models.State) models.Point {
	return models.Point{Row: int(s) / g.cols, Col: int(s) % g.cols}
}

// InBounds reports whether p lies on the grid.
func (g *Grid) InBounds(p models.Point) bool {
	return p.Row >= 0 && p.Row < g.rows && p.Col >= 0 && p.Col < g.cols
}

// CellType returns the type rune at p.
func (g *Grid) CellType(p models.Point) rune {
	return g.cells[p.Row][p.Col]
}

// Successor returns the cell reached by moving from p in direction a. Moves
// off the grid or into a wall leave the agent where it is.
func (g *Grid) Successor(p models.Point, a models.Action) models.Point {
	next := p.Move(a)
	if !g.InBounds(next) || g.CellType(next) == WALL {
		return p
	}
	return next
}

// Find returns the first cell of the passed type, scanning rows top-down.
func (g *Grid) Find(cellType rune) (models.Point, bool) {
	for r := range g.cells {
		for c, cell := range g.cells[r] {
			if cell == cellType {
				return models.Point{Row: r, Col: c}, true
			}
		}
	}
	return models.Point{}, false
}

// Layout returns the grid as strings, one per row.
func (g *Grid) Layout() []string {
	layout := make([]string, g.rows)
	for r, row := range g.cells {
		layout[r] = string(row)
	}
	return layout
}

// Visit calls fn for every cell in row-major (state index) order.
func (g *Grid) Visit(fn func(p models.Point, cellType rune)) {
	for r := range g.cells {
		for c, cell := range g.cells[r] {
			fn(models.Point{Row: r, Col: c}, cell)
		}
	}
}
