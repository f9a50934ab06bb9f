package reinforcement

/*
The update rules for the demos. Q-learning and SARSA share everything but
the bootstrap term: Q-learning bootstraps from the best next action whatever
the agent does next, SARSA from the action its own policy picks next, and so
SARSA's estimates absorb the cost of its exploration (on the cliff this is
why it learns the safe path while Q-learning hugs the edge). Value iteration
needs no agent at all, only the model, and sweeps every state at once.
*/

import (
	"math"

	"rlsim/models"
)

// Algorithm names an update rule.
type Algorithm string

const (
	QLearningAlgorithm      Algorithm = "qlearning"
	SarsaAlgorithm          Algorithm = "sarsa"
	ValueIterationAlgorithm Algorithm = "valueiteration"
)

// Learner applies one transition to a state-action table.
type Learner interface {
	Update(table *QTable, t models.Transition)
}

// QLearning is the off-policy TD update.
type QLearning struct {
	Alpha, Gamma float64
}

func (ql *QLearning) Update(table *QTable, t models.Transition) {
	target := t.Reward
	if !t.Done {
		target += ql.Gamma * table.Max(t.Successor)
	}
	table.Add(t.State, t.Action, ql.Alpha*(target-table.Get(t.State, t.Action)))
}

// Sarsa is the on-policy TD update. The next action is drawn afresh from
// Policy on every update, never reused from an earlier draw.
type Sarsa struct {
	Alpha, Gamma float64
	Policy       Policy
}

func (sa *Sarsa) Update(table *QTable, t models.Transition) {
	target := t.Reward
	if !t.Done {
		next := sa.Policy.Choose(t.Successor, table)
		target += sa.Gamma * table.Get(t.Successor, next)
	}
	table.Add(t.State, t.Action, sa.Alpha*(target-table.Get(t.State, t.Action)))
}

// ValueIteration is the synchronous Bellman optimality sweep over a known model.
type ValueIteration struct {
	Gamma float64
}

// Sweep updates every state from a snapshot of the previous values, so the
// order in which states are visited has no effect. Terminal states are pinned
// to their reward and blocked states keep their value. Each open state takes
// the best over all moves of reward(s') + gamma*V(s'), where s' is the cell
// the move actually reaches. Sweep returns the largest absolute change.
func (vi *ValueIteration) Sweep(model models.Model, values *VTable) (delta float64) {
	prev, next := values.Clone(), values.Clone()
	for i := 0; i < model.NumStates(); i++ {
		s := models.State(i)
		if model.IsBlocked(s) {
			continue
		}

		val := model.Reward(s)
		if !model.IsTerminal(s) {
			val = math.Inf(-1)
			for a := 0; a < model.NumActions(); a++ {
				successor, reward, _ := model.Step(s, models.Action(a))
				val = math.Max(val, reward+vi.Gamma*prev.Get(successor))
			}
		}

		delta = math.Max(delta, math.Abs(val-prev.Get(s)))
		next.Set(s, val)
	}
	values.CopyFrom(next)
	return
}
