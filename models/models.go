// models contains the types shared by every environment, table and learner:
// states, actions, transitions and the environment contracts.
package models

// State is an index into a pre-sized value table. Environments map their
// native coordinates (grid cells, queue comparisons) onto [0, NumStates).
type State int

// Action is an index into the row of a state-action table.
type Action int

// The four grid moves. The order matters: greedy selection scans actions
// in this order and keeps the first strict improvement, so ties resolve
// toward Up, then Right, then Down, then Left.
const (
	Up Action = iota
	Right
	Down
	Left

	NUM_DIRECTIONS = 4
)

// Directions lists the grid moves in tie-break order.
var Directions = []Action{Up, Right, Down, Left}

// Transition is a single time step of an agent: do action a in state s,
// observe reward r and successor s', and whether s' ended the episode.
type Transition struct {
	State     State
	Action    Action
	Reward    float64
	Successor State
	Done      bool
}

// Environment defines the state space, the legal actions and the dynamics.
// Step must not mutate the agent position; callers own the trajectory.
type Environment interface {
	NumStates() int
	NumActions() int
	// Reset returns the fixed initial state.
	Reset() State
	Step(s State, a Action) (successor State, reward float64, done bool)
}

// Model is an Environment whose dynamics are known to the learner, as
// required by dynamic-programming sweeps.
type Model interface {
	Environment
	// IsTerminal reports states whose value is pinned to their reward.
	IsTerminal(s State) bool
	// IsBlocked reports states the agent can never occupy (walls).
	IsBlocked(s State) bool
	// Reward is the reward for arriving in s.
	Reward(s State) float64
}

// Point is a grid coordinate; row 0 is the top row.
type Point struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Move returns the naive neighbour in the direction of a, without any
// bounds or obstacle checks.
func (p Point) Move(a Action) Point {
	switch a {
	case Up:
		return Point{p.Row - 1, p.Col}
	case Right:
		return Point{p.Row, p.Col + 1}
	case Down:
		return Point{p.Row + 1, p.Col}
	case Left:
		return Point{p.Row, p.Col - 1}
	}
	return p
}

// Manhattan returns the L1 distance between two points.
func (p Point) Manhattan(q Point) int {
	return abs(p.Row-q.Row) + abs(p.Col-q.Col)
}

func abs(i int) int {
	if i < 0 {
		return -i
	}
	return i
}
