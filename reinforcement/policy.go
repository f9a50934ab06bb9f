package reinforcement

import (
	"errors"
	"fmt"

	"rlsim/models"

	"golang.org/x/exp/rand"
)

// ErrEpsilonRange is returned for an exploration rate outside [0,1].
var ErrEpsilonRange = errors.New("epsilon must be within [0,1]")

// Policy selects an action for a state given the current estimates.
type Policy interface {
	Choose(s models.State, table *QTable) models.Action
}

// EpsilonGreedy explores uniformly at random with probability Epsilon and
// otherwise exploits the best-known action.
type EpsilonGreedy struct {
	epsilon float64
	rng     *rand.Rand
}

// NewEpsilonGreedy returns an epsilon-greedy policy drawing from src.
func NewEpsilonGreedy(epsilon float64, src rand.Source) (*EpsilonGreedy, error) {
	policy := &EpsilonGreedy{rng: rand.New(src)}
	if err := policy.SetEpsilon(epsilon); err != nil {
		return nil, err
	}
	return policy, nil
}

// Epsilon returns the exploration rate.
func (eg *EpsilonGreedy) Epsilon() float64 {
	return eg.epsilon
}

// SetEpsilon changes the exploration rate for subsequent choices.
func (eg *EpsilonGreedy) SetEpsilon(epsilon float64) error {
	if epsilon < 0 || epsilon > 1 {
		return fmt.Errorf("%v: %w", epsilon, ErrEpsilonRange)
	}
	eg.epsilon = epsilon
	return nil
}

func (eg *EpsilonGreedy) Choose(s models.State, table *QTable) models.Action {
	if eg.rng.Float64() < eg.epsilon {
		// Exploration: do something random
		_, numActions := table.Dims()
		return models.Action(eg.rng.Intn(numActions))
	}
	// Exploitation: the max-valued action, lowest index on ties
	return table.ArgMax(s)
}

// Greedy always exploits.
type Greedy struct{}

func (Greedy) Choose(s models.State, table *QTable) models.Action {
	return table.ArgMax(s)
}
