// cell_views converts engine snapshots into the view-model sent to clients.
package cell_views

import (
	"rlsim/grid_world"
	"rlsim/models"
	"rlsim/simulation"

	"gonum.org/v1/gonum/floats"
)

// NoAction marks a cell with no greedy action: walls, terminals and
// value-iteration cells.
const NoAction = -1

// Cell is the per-cell view-model of a grid demo. As a rule of thumb, Cell
// fields should be immediately usable by a renderer, which only decides how
// to draw them.
type Cell struct {
	Row    int     `json:"row"`
	Col    int     `json:"col"`
	Kind   string  `json:"kind"`
	Max    float64 `json:"max"`
	Greedy int     `json:"greedy"`
	Arrow  string  `json:"arrow,omitempty"`
}

// Signal is the view-model of the traffic demo.
type Signal struct {
	Queues        [2]int  `json:"queues"`
	Favored       int     `json:"favored"`
	CarsPassed    int     `json:"carsPassed"`
	Decisions     int     `json:"decisions"`
	SinceDecision int     `json:"sinceDecision"`
	LastReward    float64 `json:"lastReward"`
	// Greedy is the current greedy action per traffic state.
	Greedy  []int       `json:"greedy"`
	QValues [][]float64 `json:"qvalues"`
}

// Board is a complete, idempotent description of a demo: a client may drop
// any Board as long as it renders the latest.
type Board struct {
	Kind         simulation.Kind `json:"kind"`
	Algorithm    string          `json:"algorithm"`
	RewardMode   string          `json:"rewardMode,omitempty"`
	Epsilon      float64         `json:"epsilon"`
	Paused       bool            `json:"paused"`
	Ticks        int             `json:"ticks"`
	Transitions  int             `json:"transitions"`
	Episodes     int             `json:"episodes"`
	EpisodeSteps int             `json:"episodeSteps"`
	LastReturn   float64         `json:"lastReturn"`
	LastLength   int             `json:"lastLength"`
	SweepDelta   float64         `json:"sweepDelta"`

	Rows  int           `json:"rows,omitempty"`
	Cols  int           `json:"cols,omitempty"`
	Cells [][]Cell      `json:"cells,omitempty"`
	Agent *models.Point `json:"agent,omitempty"`

	Signal *Signal `json:"signal,omitempty"`
}

// Convert transforms an engine snapshot into a Board.
func Convert(state simulation.EngineState) Board {
	board := Board{
		Kind:         state.Kind,
		Algorithm:    string(state.Algorithm),
		RewardMode:   string(state.RewardMode),
		Epsilon:      state.Epsilon,
		Paused:       state.Paused,
		Ticks:        state.Ticks,
		Transitions:  state.Transitions,
		Episodes:     state.Episodes,
		EpisodeSteps: state.EpisodeSteps,
		LastReturn:   state.LastReturn,
		LastLength:   state.LastLength,
		SweepDelta:   state.SweepDelta,
		Rows:         state.Rows,
		Cols:         state.Cols,
		Agent:        state.Agent,
	}

	if len(state.Layout) > 0 {
		board.Cells = convertCells(state)
	}
	if state.Traffic != nil {
		board.Signal = convertSignal(state)
	}
	return board
}

func convertCells(state simulation.EngineState) [][]Cell {
	cells := make([][]Cell, len(state.Layout))
	for row, line := range state.Layout {
		cells[row] = make([]Cell, 0, len(line))
		for col, cellType := range []rune(line) {
			s := row*state.Cols + col
			cell := Cell{
				Row:    row,
				Col:    col,
				Kind:   string(cellType),
				Greedy: NoAction,
			}

			switch {
			case s < len(state.QValues):
				cell.Max = floats.Max(state.QValues[s])
				if cellType == grid_world.EMPTY || cellType == grid_world.START {
					cell.Greedy = floats.MaxIdx(state.QValues[s])
					cell.Arrow = string(grid_world.Arrow(models.Action(cell.Greedy)))
				}
			case s < len(state.Values):
				cell.Max = state.Values[s]
			}
			cells[row] = append(cells[row], cell)
		}
	}
	return cells
}

func convertSignal(state simulation.EngineState) *Signal {
	tr := state.Traffic
	signal := &Signal{
		Queues:        tr.Queues,
		Favored:       int(tr.Favored),
		CarsPassed:    tr.CarsPassed,
		Decisions:     tr.Decisions,
		SinceDecision: tr.SinceDecision,
		LastReward:    tr.LastReward,
		QValues:       state.QValues,
	}
	for _, row := range state.QValues {
		signal.Greedy = append(signal.Greedy, floats.MaxIdx(row))
	}
	return signal
}
