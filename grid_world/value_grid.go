package grid_world

import (
	"rlsim/models"
)

// Rewards for arriving in a value-grid cell.
const (
	HAZARD_REWARD = -10
	PRIZE_REWARD  = 10
)

// ValueGrid is the non-episodic grid used for value iteration. The reward is
// attached to the destination cell rather than to the transition, and the
// hazard and prize cells are terminal: their values are pinned to their reward.
type ValueGrid struct {
	*Grid
}

// NewValueGrid builds a value grid from a layout.
func NewValueGrid(layout []string) (*ValueGrid, error) {
	grid, err := Convert(layout)
	if err != nil {
		return nil, err
	}
	return &ValueGrid{Grid: grid}, nil
}

// Reset returns the top-left cell. The value grid has no agent; sweeps visit every state.
func (vg *ValueGrid) Reset() models.State {
	return 0
}

func (vg *ValueGrid) Step(s models.State, a models.Action) (models.State, float64, bool) {
	successor := vg.StateOf(vg.Successor(vg.PointOf(s), a))
	return successor, vg.Reward(successor), vg.IsTerminal(successor)
}

func (vg *ValueGrid) IsTerminal(s models.State) bool {
	cellType := vg.CellType(vg.PointOf(s))
	return cellType == HAZARD || cellType == PRIZE
}

func (vg *ValueGrid) IsBlocked(s models.State) bool {
	return vg.CellType(vg.PointOf(s)) == WALL
}

func (vg *ValueGrid) Reward(s models.State) (reward float64) {
	switch vg.CellType(vg.PointOf(s)) {
	case HAZARD:
		reward = HAZARD_REWARD
	case PRIZE:
		reward = PRIZE_REWARD
	}
	return
}
