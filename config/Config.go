// Package config implements the runtime configuration of the governor.
// A Config is loaded by viper from, in increasing order of precedence,
// the defaults of the selected variant, an optional YAML file, RLGOV_*
// environment variables and command line flags.
package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/samuelfneumann/rlgov/agent"
	"github.com/samuelfneumann/rlgov/agent/linear/discrete/doubleq"
	"github.com/samuelfneumann/rlgov/agent/linear/discrete/policy"
	"github.com/samuelfneumann/rlgov/agent/linear/discrete/qlearning"
	"github.com/samuelfneumann/rlgov/agent/nonlinear/discrete/deepq"
	"github.com/samuelfneumann/rlgov/environment"
	"github.com/samuelfneumann/rlgov/expreplay"
	"github.com/samuelfneumann/rlgov/governor"
	"github.com/samuelfneumann/rlgov/initwfn"
	"github.com/samuelfneumann/rlgov/timestep"
)

// Exploration schedules
const (
	Fixed    = "fixed"
	Decaying = "decaying"
)

// Epsilon configures the ε-greedy exploration schedule. A fixed
// schedule uses Start forever.
type Epsilon struct {
	Schedule string  `mapstructure:"schedule" yaml:"schedule"`
	Start    float64 `mapstructure:"start" yaml:"start"`
	End      float64 `mapstructure:"end" yaml:"end"`
	Decay    float64 `mapstructure:"decay" yaml:"decay"`
}

// Replay configures the experience replay buffer of the deepq variant
type Replay struct {
	Capacity  int `mapstructure:"capacity" yaml:"capacity"`
	BatchSize int `mapstructure:"batchSize" yaml:"batchSize"`
}

// Config is the complete runtime configuration
type Config struct {
	Variant string `mapstructure:"variant" yaml:"variant"`
	Cores   []int  `mapstructure:"cores" yaml:"cores"`

	LearningRate float64 `mapstructure:"learningRate" yaml:"learningRate"`
	Discount     float64 `mapstructure:"discount" yaml:"discount"`
	Epsilon      Epsilon `mapstructure:"epsilon" yaml:"epsilon"`

	Replay               Replay `mapstructure:"replay" yaml:"replay"`
	TargetUpdateInterval int    `mapstructure:"targetUpdateInterval" yaml:"targetUpdateInterval"`
	HiddenSize           int    `mapstructure:"hiddenSize" yaml:"hiddenSize"`
	OutputRule           string `mapstructure:"outputRule" yaml:"outputRule"`
	Initializer          string `mapstructure:"initializer" yaml:"initializer"`

	NumStates       int     `mapstructure:"numStates" yaml:"numStates"`
	Actions         int     `mapstructure:"actions" yaml:"actions"`
	Reward          string  `mapstructure:"reward" yaml:"reward"`
	EnergyThreshold float64 `mapstructure:"energyThreshold" yaml:"energyThreshold"`

	SettleInterval time.Duration `mapstructure:"settleInterval" yaml:"settleInterval"`
	MaxSettle      time.Duration `mapstructure:"maxSettle" yaml:"maxSettle"`

	Seed     uint64        `mapstructure:"seed" yaml:"seed"`
	Interval time.Duration `mapstructure:"interval" yaml:"interval"`
	Steps    int           `mapstructure:"steps" yaml:"steps"`

	Procfs      string `mapstructure:"procfs" yaml:"procfs"`
	Sysfs       string `mapstructure:"sysfs" yaml:"sysfs"`
	MetricsAddr string `mapstructure:"metricsAddr" yaml:"metricsAddr"`
}

// Validate returns an error describing whether or not the Config is
// valid
func (c Config) Validate() error {
	if len(c.Cores) == 0 {
		return fmt.Errorf("config: no cores to govern")
	}
	for _, core := range c.Cores {
		if core < 0 {
			return fmt.Errorf("config: negative core %d", core)
		}
	}
	if c.Interval <= 0 {
		return fmt.Errorf("config: interval must be positive, got %v",
			c.Interval)
	}
	if c.Steps < 0 {
		return fmt.Errorf("config: steps must be non-negative, got %d",
			c.Steps)
	}

	g, err := c.Governor()
	if err != nil {
		return err
	}
	return g.Validate()
}

// Governor returns the governor.Config described by c
func (c Config) Governor() (governor.Config, error) {
	vf, err := c.valueFunction()
	if err != nil {
		return governor.Config{}, err
	}

	schedule, err := c.schedule()
	if err != nil {
		return governor.Config{}, err
	}

	task, err := environment.ParseTaskType(c.Reward)
	if err != nil {
		return governor.Config{}, err
	}

	return governor.Config{
		ValueFunction: vf,
		Schedule:      schedule,
		Actions:       c.Actions,
		Bins:          c.NumStates,
		Task: environment.TaskConfig{
			Type:      task,
			Threshold: c.EnergyThreshold,
		},
		SettleInterval: c.SettleInterval,
		MaxSettle:      c.MaxSettle,
	}, nil
}

func (c Config) valueFunction() (agent.Config, error) {
	variant, err := agent.ParseType(c.Variant)
	if err != nil {
		return nil, err
	}

	tabular := qlearning.Config{
		LearningRate: c.LearningRate,
		Discount:     c.Discount,
		NumStates:    c.NumStates,
		NumActions:   c.Actions,
	}

	switch variant {
	case agent.QLearning:
		return tabular, nil

	case agent.DoubleQLearning:
		return doubleq.Config{Config: tabular}, nil

	case agent.DeepQ:
		init, err := initwfn.Parse(c.Initializer)
		if err != nil {
			return nil, err
		}
		rule, err := deepq.ParseOutputRule(c.OutputRule)
		if err != nil {
			return nil, err
		}
		return deepq.Config{
			LearningRate: c.LearningRate,
			Discount:     c.Discount,
			StateDim:     timestep.StateDim,
			HiddenSize:   c.HiddenSize,
			NumActions:   c.Actions,
			InitWFn:      init,
			ExpReplay: expreplay.Config{
				MaxReplayCapacity: c.Replay.Capacity,
				SampleSize:        c.Replay.BatchSize,
			},
			TargetUpdateInterval: c.TargetUpdateInterval,
			OutputRule:           rule,
		}, nil
	}
	return nil, fmt.Errorf("config: no value function for variant %q",
		variant)
}

func (c Config) schedule() (policy.Schedule, error) {
	switch c.Epsilon.Schedule {
	case Fixed:
		return policy.Fixed{Value: c.Epsilon.Start}, nil
	case Decaying:
		return policy.Decaying{
			Start: c.Epsilon.Start,
			End:   c.Epsilon.End,
			Decay: c.Epsilon.Decay,
		}, nil
	default:
		return nil, fmt.Errorf("config: unknown epsilon schedule %q, want "+
			"%q or %q", c.Epsilon.Schedule, Fixed, Decaying)
	}
}

// YAML renders the Config as a YAML document which can be read back
// with --config
func (c Config) YAML() ([]byte, error) {
	out, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return out, nil
}
