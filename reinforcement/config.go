package reinforcement

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

type OuterConfig struct {
	Kind string      `mapstructure:"kind"`
	Def  interface{} `mapstructure:"def"`
}

// TrainingConfig encodes the demos to run and their hyper-parameters outside
// of code. Parameters not given fall back to each demo's defaults.
// Tags are lower case because viper folds every key before handing back 'def'.
type TrainingConfig struct {
	// Demos lists the engines to start, one per entry.
	Demos []DemoSpec `yaml:"demos"`
	// FrameInterval is the duration between ticks of a served engine, e.g. "16ms".
	FrameInterval string `yaml:"frameinterval"`
	// TrainingDeadline is a fixed duration describing when to terminate headless training.
	TrainingDeadline map[string]string `yaml:"trainingdeadline"`
}

// DemoSpec describes a single engine.
type DemoSpec struct {
	Kind       string `yaml:"kind"`
	Algorithm  string `yaml:"algorithm"`
	RewardMode string `yaml:"rewardmode"`
	Seed       uint64 `yaml:"seed"`
	// StepsPerTick is the number of transitions per frame; zero keeps the default.
	StepsPerTick int `yaml:"stepspertick"`
	// HyperParams is a key-val pair of param names and their value.
	HyperParams []HyperParameter `yaml:"hyperparams"`
}

type HyperParameter struct {
	Key string  `yaml:"key"`
	Val float64 `yaml:"val"`
}

func (spec *DemoSpec) GetHyperParamOrDefault(param string, defaultVal float64) float64 {
	for _, kvp := range spec.HyperParams {
		if kvp.Key == param {
			return kvp.Val
		}
	}
	return defaultVal
}

// Frame returns the frame interval, or defaultVal when none is configured.
func (cfg *TrainingConfig) Frame(defaultVal time.Duration) (time.Duration, error) {
	if cfg.FrameInterval == "" {
		return defaultVal, nil
	}
	frame, err := time.ParseDuration(cfg.FrameInterval)
	if err != nil {
		return 0, fmt.Errorf("frame interval: %w", err)
	}
	if frame <= 0 {
		return 0, fmt.Errorf("frame interval %s: must be positive", frame)
	}
	return frame, nil
}

// WithTrainingDeadline returns a context extended by the training deadline, if one is specified.
func (cfg *TrainingConfig) WithTrainingDeadline(
	ctx context.Context,
) (context.Context, context.CancelFunc, error) {
	if val, ok := cfg.TrainingDeadline["duration"]; ok {
		duration, err := time.ParseDuration(val)
		if err != nil {
			return nil, nil, fmt.Errorf("training deadline: %w", err)
		}
		innerCtx, cancel := context.WithTimeout(ctx, duration)
		return innerCtx, cancel, nil
	}
	defaultCtx, cancel := context.WithCancel(ctx)
	return defaultCtx, cancel, nil
}

// FromYaml reads a config file whose 'def' section holds a TrainingConfig.
// Viper handles locating and reading the file; the inner definition is
// round-tripped through yaml so the nested types keep their yaml tags.
func FromYaml(path string) (*TrainingConfig, error) {
	vp := viper.New()
	vp.SetConfigFile(path)
	vp.SetConfigType("yaml")
	vp.AddConfigPath(filepath.Dir(path))
	var err error
	if err = vp.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	outerConfig := &OuterConfig{}
	if err = vp.Unmarshal(outerConfig); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", path, err)
	}

	var spec []byte
	if spec, err = yaml.Marshal(outerConfig.Def); err != nil {
		return nil, err
	}

	innerConfig := &TrainingConfig{}
	if err = yaml.Unmarshal(spec, innerConfig); err != nil {
		return nil, fmt.Errorf("decode def: %w", err)
	}

	return innerConfig, nil
}
