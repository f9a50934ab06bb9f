// simulation owns one learning run per demo: the environment, the value
// table, the policy and the learner, advanced synchronously by Tick.
package simulation

import (
	"time"

	"rlsim/grid_world"
	"rlsim/models"
	"rlsim/reinforcement"
	"rlsim/traffic"

	"golang.org/x/exp/rand"
)

// EngineState is a snapshot of an engine between ticks. Slices are copies
// and can be handed to other goroutines.
type EngineState struct {
	Kind       Kind                    `json:"kind"`
	Algorithm  reinforcement.Algorithm `json:"algorithm"`
	RewardMode grid_world.RewardMode   `json:"rewardMode,omitempty"`
	Epsilon    float64                 `json:"epsilon"`
	// Ticks counts calls to Tick since the last Initialize or Reset.
	Ticks int `json:"ticks"`
	// Transitions counts environment steps (or sweeps) since the last Initialize or Reset.
	Transitions int `json:"transitions"`

	// Grid demos
	Rows   int           `json:"rows,omitempty"`
	Cols   int           `json:"cols,omitempty"`
	Layout []string      `json:"layout,omitempty"`
	Agent  *models.Point `json:"agent,omitempty"`

	// Episodic demos
	Episodes     int     `json:"episodes"`
	EpisodeSteps int     `json:"episodeSteps"`
	LastReturn   float64 `json:"lastReturn"`
	LastLength   int     `json:"lastLength"`

	// QValues is indexed [state][action]; Values is indexed [state].
	QValues [][]float64 `json:"qvalues,omitempty"`
	Values  []float64   `json:"values,omitempty"`
	// SweepDelta is the largest value change of the last sweep.
	SweepDelta float64 `json:"sweepDelta,omitempty"`

	Traffic *TrafficState `json:"traffic,omitempty"`

	// Paused is set by a Runner holding the engine.
	Paused bool `json:"paused"`
}

// TrafficState holds the queue-control counters.
type TrafficState struct {
	Queues        [2]int        `json:"queues"`
	Favored       models.Action `json:"favored"`
	CarsPassed    int           `json:"carsPassed"`
	Decisions     int           `json:"decisions"`
	LastReward    float64       `json:"lastReward"`
	SinceDecision int           `json:"sinceDecision"`
}

// demo is the per-variant strategy an Engine drives.
type demo interface {
	// step performs one transition, or one sweep.
	step()
	fill(state *EngineState)
}

// Engine is a single simulation instance. It holds no global state, so
// engines may run side by side; each one must be driven by one goroutine.
type Engine struct {
	cfg         Config
	build       func(Config) (demo, *reinforcement.EpsilonGreedy)
	demo        demo
	policy      *reinforcement.EpsilonGreedy
	ticks       int
	transitions int
}

// New returns an initialized engine.
func New(cfg Config) (*Engine, error) {
	e := &Engine{}
	if _, err := e.Initialize(cfg); err != nil {
		return nil, err
	}
	return e, nil
}

// Initialize replaces the configuration and rebuilds the engine with a
// zeroed table and a reset environment. On error the engine is unchanged.
func (e *Engine) Initialize(cfg Config) (EngineState, error) {
	if err := cfg.Validate(); err != nil {
		return EngineState{}, err
	}
	if cfg.Seed == 0 {
		cfg.Seed = uint64(time.Now().UnixNano())
	}

	build, err := builder(cfg)
	if err != nil {
		return EngineState{}, err
	}

	e.cfg = cfg
	e.build = build
	return e.Reset(), nil
}

// Reset rebuilds the table, environment and counters from the current
// configuration, including its seed, discarding all learning.
func (e *Engine) Reset() EngineState {
	e.demo, e.policy = e.build(e.cfg)
	e.ticks = 0
	e.transitions = 0
	return e.State()
}

// Tick advances the engine by StepsPerTick transitions.
func (e *Engine) Tick() EngineState {
	e.advance()
	return e.State()
}

// advance ticks without taking a snapshot.
func (e *Engine) advance() int {
	for i := 0; i < e.cfg.StepsPerTick; i++ {
		e.demo.step()
		e.transitions++
	}
	e.ticks++
	return e.ticks
}

// State returns a snapshot of the engine.
func (e *Engine) State() EngineState {
	state := EngineState{
		Kind:        e.cfg.Kind,
		Algorithm:   e.cfg.Algorithm,
		RewardMode:  e.cfg.RewardMode,
		Epsilon:     e.cfg.Epsilon,
		Ticks:       e.ticks,
		Transitions: e.transitions,
	}
	e.demo.fill(&state)
	return state
}

// Config returns the configuration in effect, with its resolved seed.
func (e *Engine) Config() Config {
	return e.cfg
}

// SetEpsilon changes the exploration rate of the traffic demo; it applies
// from the next decision and survives Reset. The other demos keep a fixed epsilon.
func (e *Engine) SetEpsilon(epsilon float64) error {
	if e.cfg.Kind != Traffic {
		return ErrEpsilonFixed
	}
	if err := e.policy.SetEpsilon(epsilon); err != nil {
		return err
	}
	e.cfg.Epsilon = epsilon
	return nil
}

// builder validates the environment once and returns a function building
// fresh demo state from it and the configuration in effect. Grid environments
// are stateless and shared by every build; the intersection carries counters
// and is rebuilt.
func builder(cfg Config) (func(Config) (demo, *reinforcement.EpsilonGreedy), error) {
	newPolicy := func(cfg Config, src rand.Source) *reinforcement.EpsilonGreedy {
		// Epsilon was range checked by Validate.
		policy, _ := reinforcement.NewEpsilonGreedy(cfg.Epsilon, src)
		return policy
	}

	switch cfg.Kind {
	case Cliff:
		env, err := grid_world.NewCliff(grid_world.CliffLayout)
		if err != nil {
			return nil, err
		}
		return func(cfg Config) (demo, *reinforcement.EpsilonGreedy) {
			policy := newPolicy(cfg, rand.NewSource(cfg.Seed))
			return newEpisodicGrid(env, policy, newLearner(cfg, policy)), policy
		}, nil

	case Parking:
		env, err := grid_world.NewParking(grid_world.ParkingLayout, cfg.RewardMode)
		if err != nil {
			return nil, err
		}
		return func(cfg Config) (demo, *reinforcement.EpsilonGreedy) {
			policy := newPolicy(cfg, rand.NewSource(cfg.Seed))
			return newEpisodicGrid(env, policy, newLearner(cfg, policy)), policy
		}, nil

	case GridValue:
		env, err := grid_world.NewValueGrid(grid_world.ValueLayout)
		if err != nil {
			return nil, err
		}
		return func(cfg Config) (demo, *reinforcement.EpsilonGreedy) {
			return newSweepGrid(env, &reinforcement.ValueIteration{Gamma: cfg.Gamma}), nil
		}, nil

	case Traffic:
		return func(cfg Config) (demo, *reinforcement.EpsilonGreedy) {
			src := rand.NewSource(cfg.Seed)
			policy := newPolicy(cfg, src)
			env := traffic.NewIntersection(cfg.ArrivalProb, src)
			return newIntersection(env, policy, newLearner(cfg, policy), cfg.Refractory), policy
		}, nil
	}
	return nil, ErrUnknownKind
}

func newLearner(cfg Config, policy reinforcement.Policy) reinforcement.Learner {
	if cfg.Algorithm == reinforcement.SarsaAlgorithm {
		return &reinforcement.Sarsa{Alpha: cfg.Alpha, Gamma: cfg.Gamma, Policy: policy}
	}
	return &reinforcement.QLearning{Alpha: cfg.Alpha, Gamma: cfg.Gamma}
}
