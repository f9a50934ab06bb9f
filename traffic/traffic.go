// traffic implements the queue-control environment: a signal at a crossing
// of two roads whose queues grow stochastically, and which drains the queue
// it currently favors.
package traffic

import (
	"rlsim/models"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// Derived states.
const (
	HorizontalHeavy models.State = iota
	VerticalHeavy
	Balanced

	NUM_STATES = 3
)

// Signal actions.
const (
	FavorHorizontal models.Action = iota
	FavorVertical

	NUM_ACTIONS = 2
)

const (
	Horizontal = 0
	Vertical   = 1
)

// DefaultArrivalProb is the per-tick probability that a queue gains a car.
const DefaultArrivalProb = 0.3

// GetState reduces the two queue lengths to which road is heavier.
func GetState(horizontal, vertical int) models.State {
	if horizontal > vertical {
		return HorizontalHeavy
	}
	if vertical > horizontal {
		return VerticalHeavy
	}
	return Balanced
}

// Intersection holds the queues and signal. Arrivals and draining mutate
// only these counters; the learning state is always derived from them.
type Intersection struct {
	Queues     [2]int
	Favored    models.Action
	CarsPassed int
	arrivals   [2]distuv.Bernoulli
}

// NewIntersection returns an empty intersection whose queues each gain a car
// per tick with probability p, drawn from src.
func NewIntersection(p float64, src rand.Source) *Intersection {
	return &Intersection{
		arrivals: [2]distuv.Bernoulli{
			{P: p, Src: src},
			{P: p, Src: src},
		},
	}
}

func (in *Intersection) NumStates() int {
	return NUM_STATES
}

func (in *Intersection) NumActions() int {
	return NUM_ACTIONS
}

// Reset empties both queues and favors the horizontal road.
func (in *Intersection) Reset() models.State {
	in.Queues = [2]int{}
	in.Favored = FavorHorizontal
	in.CarsPassed = 0
	return in.State()
}

// State returns the state derived from the current queues.
func (in *Intersection) State() models.State {
	return GetState(in.Queues[Horizontal], in.Queues[Vertical])
}

// Arrive adds a car to each queue with the arrival probability, independently.
func (in *Intersection) Arrive() {
	for i := range in.Queues {
		if in.arrivals[i].Rand() == 1 {
			in.Queues[i]++
		}
	}
}

// Step switches the signal to favor the road selected by a. The reward is the
// congestion penalty at decision time; the episode never ends. The signal
// change affects queues only through subsequent Drain calls, so the successor
// is the state derived from the queues as they stand.
func (in *Intersection) Step(s models.State, a models.Action) (models.State, float64, bool) {
	in.Favored = a
	return in.State(), -float64(in.Queues[Horizontal] + in.Queues[Vertical]), false
}

// Drain lets one car through the favored road, if any are waiting, and
// reports whether one passed.
func (in *Intersection) Drain() bool {
	road := int(in.Favored)
	if in.Queues[road] == 0 {
		return false
	}
	in.Queues[road]--
	in.CarsPassed++
	return true
}
