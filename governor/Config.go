package governor

import (
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"k8s.io/utils/clock"

	"github.com/samuelfneumann/rlgov/agent"
	"github.com/samuelfneumann/rlgov/agent/linear/discrete/policy"
	"github.com/samuelfneumann/rlgov/environment"
	"github.com/samuelfneumann/rlgov/utils/randutils"
)

// Config describes the learning engine run on every core
type Config struct {
	// ValueFunction selects and configures the learning strategy
	ValueFunction agent.Config

	// Schedule drives ε of the ε-greedy action selector
	Schedule policy.Schedule

	// Actions is the size of the action set, 3 or 5
	Actions int

	// Bins is the number of frequency bins states are discretized into
	Bins int

	// Task selects the reward scheme
	Task environment.TaskConfig

	// SettleInterval is how long to wait after actuating before the
	// next state is sampled. It is capped at MaxSettle when MaxSettle
	// is positive.
	SettleInterval time.Duration
	MaxSettle      time.Duration
}

// Validate returns an error describing whether or not the Config is
// valid
func (c Config) Validate() error {
	if c.ValueFunction == nil {
		return fmt.Errorf("governor: no value function configured")
	}
	if err := c.ValueFunction.Validate(); err != nil {
		return err
	}
	if c.Schedule == nil {
		return fmt.Errorf("governor: no exploration schedule configured")
	}
	if err := c.Schedule.Validate(); err != nil {
		return err
	}
	if _, err := NewActionSet(c.Actions); err != nil {
		return err
	}
	if c.Bins < 1 {
		return fmt.Errorf("governor: need at least 1 bin, got %d", c.Bins)
	}
	if _, err := environment.ParseTaskType(string(c.Task.Type)); err != nil {
		return err
	}
	if c.Task.Threshold < 0 {
		return fmt.Errorf("governor: negative energy threshold %v",
			c.Task.Threshold)
	}
	if c.SettleInterval < 0 || c.MaxSettle < 0 {
		return fmt.Errorf("governor: negative settle interval")
	}
	return nil
}

// Settle returns the bounded settle wait
func (c Config) Settle() time.Duration {
	if c.MaxSettle > 0 && c.SettleInterval > c.MaxSettle {
		return c.MaxSettle
	}
	return c.SettleInterval
}

// Options holds the collaborators shared by every controller
type Options struct {
	Sensor   environment.Sensor
	Actuator environment.Actuator

	// Rand is shared by all cores and must be safe for concurrent use
	Rand randutils.Source

	// Clock defaults to the real clock
	Clock clock.Clock

	// Metrics may be nil
	Metrics *Metrics

	Logger logr.Logger
}

func (o Options) withDefaults() (Options, error) {
	if o.Sensor == nil || o.Actuator == nil {
		return o, fmt.Errorf("governor: sensor and actuator are required")
	}
	if o.Rand == nil {
		return o, fmt.Errorf("governor: nil random source")
	}
	if o.Clock == nil {
		o.Clock = clock.RealClock{}
	}
	if o.Logger.GetSink() == nil {
		o.Logger = logr.Discard()
	}
	return o, nil
}
