package simulation

import (
	"errors"
	"fmt"

	"rlsim/grid_world"
	"rlsim/reinforcement"
	"rlsim/traffic"
)

// Kind selects the demo an engine runs.
type Kind string

const (
	Cliff     Kind = "cliff"
	GridValue Kind = "gridvalue"
	Parking   Kind = "parking"
	Traffic   Kind = "traffic"
)

// Kinds lists every demo.
var Kinds = []Kind{Cliff, GridValue, Parking, Traffic}

var (
	ErrUnknownKind = errors.New("unknown demo kind")
	// ErrAlgorithm is returned when a demo does not support the requested update rule.
	ErrAlgorithm = errors.New("algorithm not supported by demo")
	// ErrHyperParam is returned for an out-of-range learning parameter.
	ErrHyperParam = errors.New("hyper-parameter out of range")
	// ErrEpsilonFixed is returned when adjusting epsilon on a demo whose epsilon is fixed.
	ErrEpsilonFixed = errors.New("epsilon is fixed for this demo")
)

// Config holds everything an engine needs to (re)build its state. Fields not
// used by a demo are ignored.
type Config struct {
	Kind       Kind                    `json:"kind"`
	Algorithm  reinforcement.Algorithm `json:"algorithm"`
	RewardMode grid_world.RewardMode   `json:"rewardMode,omitempty"`
	Alpha      float64                 `json:"alpha"`
	Gamma      float64                 `json:"gamma"`
	Epsilon    float64                 `json:"epsilon"`
	// StepsPerTick is the number of transitions per tick. It only changes how
	// fast learning appears, never what is learned.
	StepsPerTick int `json:"stepsPerTick"`
	// Seed drives every random draw; zero picks a time-based seed on Initialize.
	Seed uint64 `json:"seed,omitempty"`
	// Refractory is the number of ticks the signal holds before the next decision.
	Refractory  int     `json:"refractory,omitempty"`
	ArrivalProb float64 `json:"arrivalProb,omitempty"`
}

// DefaultConfig returns the stock configuration of a demo.
func DefaultConfig(kind Kind) (cfg Config, err error) {
	switch kind {
	case Cliff:
		cfg = Config{
			Algorithm:    reinforcement.QLearningAlgorithm,
			Alpha:        0.5,
			Gamma:        1.0,
			Epsilon:      0.1,
			StepsPerTick: 10,
		}
	case GridValue:
		cfg = Config{
			Algorithm:    reinforcement.ValueIterationAlgorithm,
			Gamma:        0.9,
			StepsPerTick: 1,
		}
	case Parking:
		cfg = Config{
			Algorithm:    reinforcement.QLearningAlgorithm,
			RewardMode:   grid_world.Sparse,
			Alpha:        0.5,
			Gamma:        0.9,
			Epsilon:      0.1,
			StepsPerTick: 50,
		}
	case Traffic:
		cfg = Config{
			Algorithm:    reinforcement.QLearningAlgorithm,
			Alpha:        0.1,
			Gamma:        0.9,
			Epsilon:      0.2,
			StepsPerTick: 1,
			Refractory:   20,
			ArrivalProb:  traffic.DefaultArrivalProb,
		}
	default:
		return cfg, fmt.Errorf("%q: %w", kind, ErrUnknownKind)
	}
	cfg.Kind = kind
	return
}

// Validate checks the configuration is runnable.
func (cfg Config) Validate() error {
	switch cfg.Kind {
	case GridValue:
		if cfg.Algorithm != reinforcement.ValueIterationAlgorithm {
			return fmt.Errorf("%s/%s: %w", cfg.Kind, cfg.Algorithm, ErrAlgorithm)
		}
	case Cliff, Parking, Traffic:
		if cfg.Algorithm != reinforcement.QLearningAlgorithm && cfg.Algorithm != reinforcement.SarsaAlgorithm {
			return fmt.Errorf("%s/%s: %w", cfg.Kind, cfg.Algorithm, ErrAlgorithm)
		}
		if cfg.Alpha <= 0 || cfg.Alpha > 1 {
			return fmt.Errorf("alpha %v: %w", cfg.Alpha, ErrHyperParam)
		}
		if cfg.Epsilon < 0 || cfg.Epsilon > 1 {
			return fmt.Errorf("epsilon %v: %w", cfg.Epsilon, reinforcement.ErrEpsilonRange)
		}
	default:
		return fmt.Errorf("%q: %w", cfg.Kind, ErrUnknownKind)
	}

	if cfg.Gamma < 0 || cfg.Gamma > 1 {
		return fmt.Errorf("gamma %v: %w", cfg.Gamma, ErrHyperParam)
	}
	if cfg.StepsPerTick < 1 {
		return fmt.Errorf("steps per tick %d: %w", cfg.StepsPerTick, ErrHyperParam)
	}

	switch cfg.Kind {
	case Parking:
		if _, err := grid_world.ParseRewardMode(string(cfg.RewardMode)); err != nil {
			return err
		}
	case Traffic:
		if cfg.Refractory < 0 {
			return fmt.Errorf("refractory %d: %w", cfg.Refractory, ErrHyperParam)
		}
		if cfg.ArrivalProb < 0 || cfg.ArrivalProb > 1 {
			return fmt.Errorf("arrival probability %v: %w", cfg.ArrivalProb, ErrHyperParam)
		}
	}
	return nil
}

// FromSpec maps a demo entry of the yaml config onto a validated Config,
// starting from the demo's defaults.
func FromSpec(spec reinforcement.DemoSpec) (Config, error) {
	cfg, err := DefaultConfig(Kind(spec.Kind))
	if err != nil {
		return cfg, err
	}

	if spec.Algorithm != "" {
		cfg.Algorithm = reinforcement.Algorithm(spec.Algorithm)
	}
	if spec.RewardMode != "" {
		cfg.RewardMode = grid_world.RewardMode(spec.RewardMode)
	}
	if spec.StepsPerTick != 0 {
		cfg.StepsPerTick = spec.StepsPerTick
	}
	cfg.Seed = spec.Seed
	cfg.Alpha = spec.GetHyperParamOrDefault("alpha", cfg.Alpha)
	cfg.Gamma = spec.GetHyperParamOrDefault("gamma", cfg.Gamma)
	cfg.Epsilon = spec.GetHyperParamOrDefault("epsilon", cfg.Epsilon)
	cfg.Refractory = int(spec.GetHyperParamOrDefault("refractory", float64(cfg.Refractory)))
	cfg.ArrivalProb = spec.GetHyperParamOrDefault("arrival", cfg.ArrivalProb)

	return cfg, cfg.Validate()
}
