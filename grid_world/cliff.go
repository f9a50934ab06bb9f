package grid_world

import (
	"errors"

	"rlsim/models"
)

// Rewards
const (
	STEP_REWARD       = -1
	CLIFF_REWARD      = -100
	CLIFF_GOAL_REWARD = 10
)

// ErrNoStart and ErrNoGoal are returned for layouts lacking those cells.
var (
	ErrNoStart = errors.New("layout has no start cell")
	ErrNoGoal  = errors.New("layout has no goal cell")
)

// Cliff is the cliff-walking environment: the agent starts at one end of a
// row of cliff cells and must reach the goal at the other end. Falling off
// the cliff or reaching the goal ends the episode.
type Cliff struct {
	*Grid
	start models.Point
}

// NewCliff builds a cliff environment from a layout with one start and one goal cell.
func NewCliff(layout []string) (*Cliff, error) {
	grid, err := Convert(layout)
	if err != nil {
		return nil, err
	}
	start, ok := grid.Find(START)
	if !ok {
		return nil, ErrNoStart
	}
	if _, ok := grid.Find(GOAL); !ok {
		return nil, ErrNoGoal
	}
	return &Cliff{Grid: grid, start: start}, nil
}

func (cl *Cliff) Reset() models.State {
	return cl.StateOf(cl.start)
}

func (cl *Cliff) Step(s models.State, a models.Action) (models.State, float64, bool) {
	next := cl.Successor(cl.PointOf(s), a)
	successor := cl.StateOf(next)
	switch cl.CellType(next) {
	case CLIFF:
		return successor, CLIFF_REWARD, true
	case GOAL:
		return successor, CLIFF_GOAL_REWARD, true
	}
	return successor, STEP_REWARD, false
}
