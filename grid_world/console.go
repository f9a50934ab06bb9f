package grid_world

import (
	"fmt"
	"io"

	"rlsim/models"

	"gonum.org/v1/gonum/floats"
)

// Arrow returns a rune for the direction of a, for console display.
func Arrow(a models.Action) rune {
	switch a {
	case models.Up:
		return '^'
	case models.Right:
		return '>'
	case models.Down:
		return 'v'
	case models.Left:
		return '<'
	}
	return '?'
}

// Show the layout, for visual reference.
func ShowGrid(w io.Writer, g *Grid) {
	for _, row := range g.Layout() {
		for _, cell := range row {
			fmt.Fprintf(w, "%c ", cell)
		}
		fmt.Fprintln(w)
	}
}

// ShowValues prints one value per cell, e.g. V(s) or max_a Q(s,a), indexed by state.
func ShowValues(w io.Writer, g *Grid, values []float64) {
	total := 0.0
	g.Visit(func(p models.Point, cellType rune) {
		val := values[g.StateOf(p)]
		if cellType == WALL {
			fmt.Fprintf(w, "%7s ", "#")
		} else {
			fmt.Fprintf(w, "%7.2f ", val)
			total += val
		}
		if p.Col == g.cols-1 {
			fmt.Fprintln(w)
		}
	})
	fmt.Fprintf(w, "Total: %.2f\n", total)
}

// ShowPolicy prints the greedy action of each open cell as an arrow. Terminal
// and blocked cells print their cell type instead.
func ShowPolicy(w io.Writer, g *Grid, qvalues [][]float64) {
	g.Visit(func(p models.Point, cellType rune) {
		if cellType == EMPTY || cellType == START {
			fmt.Fprintf(w, "%c ", Arrow(models.Action(floats.MaxIdx(qvalues[g.StateOf(p)]))))
		} else {
			fmt.Fprintf(w, "%c ", cellType)
		}
		if p.Col == g.cols-1 {
			fmt.Fprintln(w)
		}
	})
}

// MaxValues reduces a state-action table to the best value per state.
func MaxValues(qvalues [][]float64) []float64 {
	values := make([]float64, len(qvalues))
	for s, row := range qvalues {
		values[s] = floats.Max(row)
	}
	return values
}
