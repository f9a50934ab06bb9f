package simulation

import (
	"rlsim/grid_world"
	"rlsim/models"
	"rlsim/reinforcement"
	"rlsim/traffic"
)

// gridEnvironment is the part of a grid environment the episodic demos need.
type gridEnvironment interface {
	models.Environment
	PointOf(s models.State) models.Point
	Dims() (rows, cols int)
	Layout() []string
}

// episodicGrid drives the cliff and parking demos: an agent walks from the
// start state until a terminal transition, then starts over.
type episodicGrid struct {
	env     gridEnvironment
	table   *reinforcement.QTable
	policy  reinforcement.Policy
	learner reinforcement.Learner
	agent   models.State

	episodes      int
	steps         int
	episodeReturn float64
	lastReturn    float64
	lastLength    int
}

func newEpisodicGrid(
	env gridEnvironment,
	policy reinforcement.Policy,
	learner reinforcement.Learner,
) *episodicGrid {
	return &episodicGrid{
		env:     env,
		table:   reinforcement.NewQTable(env.NumStates(), env.NumActions()),
		policy:  policy,
		learner: learner,
		agent:   env.Reset(),
	}
}

func (g *episodicGrid) step() {
	state := g.agent
	action := g.policy.Choose(state, g.table)
	successor, reward, done := g.env.Step(state, action)
	g.learner.Update(g.table, models.Transition{
		State:     state,
		Action:    action,
		Reward:    reward,
		Successor: successor,
		Done:      done,
	})

	g.steps++
	g.episodeReturn += reward
	if !done {
		g.agent = successor
		return
	}

	g.episodes++
	g.lastReturn, g.lastLength = g.episodeReturn, g.steps
	g.episodeReturn, g.steps = 0, 0
	g.agent = g.env.Reset()
}

func (g *episodicGrid) fill(state *EngineState) {
	agent := g.env.PointOf(g.agent)
	state.Rows, state.Cols = g.env.Dims()
	state.Layout = g.env.Layout()
	state.Agent = &agent
	state.Episodes = g.episodes
	state.EpisodeSteps = g.steps
	state.LastReturn = g.lastReturn
	state.LastLength = g.lastLength
	state.QValues = g.table.Rows()
}

// sweepGrid drives the value-iteration demo: one full sweep per transition.
type sweepGrid struct {
	env     *grid_world.ValueGrid
	values  *reinforcement.VTable
	learner *reinforcement.ValueIteration
	delta   float64
}

func newSweepGrid(env *grid_world.ValueGrid, learner *reinforcement.ValueIteration) *sweepGrid {
	return &sweepGrid{
		env:     env,
		values:  reinforcement.NewVTable(env.NumStates()),
		learner: learner,
	}
}

func (g *sweepGrid) step() {
	g.delta = g.learner.Sweep(g.env, g.values)
}

func (g *sweepGrid) fill(state *EngineState) {
	state.Rows, state.Cols = g.env.Dims()
	state.Layout = g.env.Layout()
	state.Values = g.values.Values()
	state.SweepDelta = g.delta
}

// intersection drives the traffic demo. Cars arrive every tick, the signal
// is reconsidered only once the refractory period has passed, and the
// favored road drains every tick.
type intersection struct {
	env        *traffic.Intersection
	table      *reinforcement.QTable
	policy     reinforcement.Policy
	learner    reinforcement.Learner
	refractory int

	sinceDecision int
	decisions     int
	lastReward    float64
}

func newIntersection(
	env *traffic.Intersection,
	policy reinforcement.Policy,
	learner reinforcement.Learner,
	refractory int,
) *intersection {
	env.Reset()
	return &intersection{
		env:        env,
		table:      reinforcement.NewQTable(env.NumStates(), env.NumActions()),
		policy:     policy,
		learner:    learner,
		refractory: refractory,
	}
}

func (in *intersection) step() {
	in.env.Arrive()

	in.sinceDecision++
	if in.sinceDecision > in.refractory {
		in.sinceDecision = 0
		in.decide()
	}

	in.env.Drain()
}

func (in *intersection) decide() {
	state := in.env.State()
	action := in.policy.Choose(state, in.table)
	successor, reward, done := in.env.Step(state, action)
	in.learner.Update(in.table, models.Transition{
		State:     state,
		Action:    action,
		Reward:    reward,
		Successor: successor,
		Done:      done,
	})
	in.decisions++
	in.lastReward = reward
}

func (in *intersection) fill(state *EngineState) {
	state.QValues = in.table.Rows()
	state.Traffic = &TrafficState{
		Queues:        in.env.Queues,
		Favored:       in.env.Favored,
		CarsPassed:    in.env.CarsPassed,
		Decisions:     in.decisions,
		LastReward:    in.lastReward,
		SinceDecision: in.sinceDecision,
	}
}
