package grid_world

import (
	"errors"
	"fmt"

	"rlsim/models"
)

// RewardMode selects the non-terminal reward of the parking environment.
type RewardMode string

const (
	// Sparse costs -1 per step.
	Sparse RewardMode = "sparse"
	// Dense rewards +1 for strictly closing the distance to the goal, else -1.
	Dense RewardMode = "dense"
	// Bad rewards +1 for every step regardless of direction. It is deliberately
	// mis-specified: the agent learns that wandering pays more than parking.
	Bad RewardMode = "bad"
)

const PARKING_GOAL_REWARD = 100

// ErrUnknownRewardMode is returned when parsing an unsupported reward mode.
var ErrUnknownRewardMode = errors.New("unknown reward mode")

// RewardModes lists the supported modes.
var RewardModes = []RewardMode{Sparse, Dense, Bad}

// ParseRewardMode returns the mode named by s.
func ParseRewardMode(s string) (RewardMode, error) {
	for _, mode := range RewardModes {
		if string(mode) == s {
			return mode, nil
		}
	}
	return "", fmt.Errorf("%q: %w", s, ErrUnknownRewardMode)
}

// Parking is the parking-lot environment: drive from the start cell to the goal cell.
type Parking struct {
	*Grid
	start, goal models.Point
	mode        RewardMode
}

// NewParking builds a parking environment from a layout with one start and one goal cell.
func NewParking(layout []string, mode RewardMode) (*Parking, error) {
	if _, err := ParseRewardMode(string(mode)); err != nil {
		return nil, err
	}
	grid, err := Convert(layout)
	if err != nil {
		return nil, err
	}
	start, ok := grid.Find(START)
	if !ok {
		return nil, ErrNoStart
	}
	goal, ok := grid.Find(GOAL)
	if !ok {
		return nil, ErrNoGoal
	}
	return &Parking{
		Grid:  grid,
		start: start,
		goal:  goal,
		mode:  mode,
	}, nil
}

// Mode returns the reward mode.
func (pk *Parking) Mode() RewardMode {
	return pk.mode
}

// Goal returns the goal cell.
func (pk *Parking) Goal() models.Point {
	return pk.goal
}

func (pk *Parking) Reset() models.State {
	return pk.StateOf(pk.start)
}

func (pk *Parking) Step(s models.State, a models.Action) (models.State, float64, bool) {
	cur := pk.PointOf(s)
	next := pk.Successor(cur, a)
	successor := pk.StateOf(next)
	if next == pk.goal {
		return successor, PARKING_GOAL_REWARD, true
	}
	return successor, pk.reward(cur, next), false
}

func (pk *Parking) reward(cur, next models.Point) float64 {
	switch pk.mode {
	case Dense:
		if next.Manhattan(pk.goal) < cur.Manhattan(pk.goal) {
			return 1
		}
		return -1
	case Bad:
		return 1
	}
	return STEP_REWARD
}
