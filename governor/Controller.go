// Package governor implements the per-core learning controllers of the
// frequency governor and the registry which owns them.
//
// Every tick of a core follows the same sequence: sample the state of
// the core, select an action ε-greedily, actuate the clamped target
// frequency, optionally wait for the core to settle, sample the next
// state, compute the reward, learn from the transition, periodically
// refresh a target network, and decay ε. Any failure inside a tick
// skips learning for that tick and is reported in the Result.
package governor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"k8s.io/utils/clock"

	"github.com/samuelfneumann/rlgov/agent"
	"github.com/samuelfneumann/rlgov/agent/linear/discrete/policy"
	"github.com/samuelfneumann/rlgov/environment"
	"github.com/samuelfneumann/rlgov/timestep"
	"github.com/samuelfneumann/rlgov/utils/floatutils"
)

// Outcome describes how a tick ended. A tick whose update was only
// partially applied, because some samples of a replayed batch were
// rolled back, still ends with OutcomeLearned: the value function
// changed, so the tick counts towards target refreshes and ε decay.
// OutcomeRejected means nothing was learned.
type Outcome string

const (
	OutcomeLearned         Outcome = "learned"
	OutcomeInvalid         Outcome = "invalid-descriptor"
	OutcomeActuationFailed Outcome = "actuation-failed"
	OutcomeSensorFailed    Outcome = "sensor-failed"
	OutcomeCancelled       Outcome = "cancelled"
	OutcomeRejected        Outcome = "update-rejected"
)

// Result reports what happened during a single tick
type Result struct {
	Core     int
	Action   int
	Target   int // Requested frequency, always within the core's range
	Achieved int // Frequency reported by the actuator
	Reward   float64
	Epsilon  float64 // ε after the tick
	Learned  bool
	Outcome  Outcome
}

// Context is the learning state owned by a single core
type Context struct {
	vf     agent.ValueFunction
	policy *policy.EGreedy
	task   environment.Task
	steps  int
}

// Controller runs the ticks of a single core. Ticks of one core are
// serialized; controllers of different cores share nothing but the
// random source.
type Controller struct {
	mu     sync.Mutex
	core   int
	state  *Context
	closed bool

	actions ActionSet
	bins    int
	settle  time.Duration

	sensor   environment.Sensor
	actuator environment.Actuator
	clock    clock.Clock
	metrics  *Metrics
	log      logr.Logger
}

// NewController creates the controller of core. Value functions are
// created with zeroed tables or freshly initialized weights.
func NewController(core int, c Config, opts Options) (*Controller, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}
	return newController(core, c, opts)
}

func newController(core int, c Config, opts Options) (*Controller, error) {
	actions, err := NewActionSet(c.Actions)
	if err != nil {
		return nil, err
	}

	vf, err := c.ValueFunction.CreateValueFunction(opts.Rand)
	if err != nil {
		return nil, fmt.Errorf("could not create value function: %w", err)
	}
	if vf.NumActions() != actions.Len() {
		return nil, fmt.Errorf("value function has %d actions but the "+
			"action set has %d", vf.NumActions(), actions.Len())
	}

	p, err := policy.NewEGreedy(c.Schedule, opts.Rand)
	if err != nil {
		return nil, fmt.Errorf("could not create policy: %w", err)
	}

	task, err := c.Task.Create(opts.Clock)
	if err != nil {
		return nil, fmt.Errorf("could not create reward: %w", err)
	}

	return &Controller{
		core:     core,
		state:    &Context{vf: vf, policy: p, task: task},
		actions:  actions,
		bins:     c.Bins,
		settle:   c.Settle(),
		sensor:   opts.Sensor,
		actuator: opts.Actuator,
		clock:    opts.Clock,
		metrics:  opts.Metrics,
		log:      opts.Logger.WithValues("core", core),
	}, nil
}

// Core returns the core governed by the Controller
func (c *Controller) Core() int {
	return c.core
}

// Steps returns the number of ticks the Controller has learned from
func (c *Controller) Steps() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.steps
}

// Epsilon returns the current exploration rate
func (c *Controller) Epsilon() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.policy.Epsilon()
}

// ValueFunction returns the value function of the core. It must not be
// used while the controller is ticking.
func (c *Controller) ValueFunction() agent.ValueFunction {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.vf
}

// Tick runs one full control step of the core described by d. The
// returned error is non-nil only once the Controller has been shut
// down; every other failure is reported by the Result's Outcome.
func (c *Controller) Tick(ctx context.Context, d Descriptor) (Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return Result{}, ErrShutdown
	}

	res := c.tick(ctx, d)
	c.metrics.observe(res)
	return res, nil
}

func (c *Controller) tick(ctx context.Context, d Descriptor) Result {
	res := Result{
		Core:     c.core,
		Target:   d.CurrentFrequency,
		Achieved: d.CurrentFrequency,
		Epsilon:  c.state.policy.Epsilon(),
	}

	if err := d.Validate(); err != nil {
		c.log.Error(err, "Ignoring tick")
		res.Outcome = OutcomeInvalid
		return res
	}
	if ctx.Err() != nil {
		res.Outcome = OutcomeCancelled
		return res
	}

	state := c.sample(ctx, d)
	res.Action = c.state.policy.SelectAction(c.state.vf, state)
	res.Target = c.actions.Target(res.Action, d)

	achieved, err := c.actuator.ApplyFrequency(ctx, c.core, res.Target,
		environment.AtLeast)
	if err != nil {
		c.log.V(1).Info("Actuation failed", "target", res.Target,
			"error", err.Error())
		res.Outcome = OutcomeActuationFailed
		return res
	}
	res.Achieved = achieved

	if err := c.wait(ctx); err != nil {
		c.log.V(1).Info("Settle wait aborted", "error", err.Error())
		res.Outcome = OutcomeCancelled
		return res
	}

	features, err := c.sensor.SampleState(ctx, c.core)
	var next timestep.State
	if err == nil {
		next, err = NewState(features, c.bins)
	}
	if err != nil {
		c.log.V(1).Info("Could not sample next state", "error", err.Error())
		res.Outcome = OutcomeSensorFailed
		return res
	}

	res.Reward = c.state.task.GetReward(environment.Step{
		Core:                c.core,
		ObservedUtilization: d.ObservedUtilization,
		Current:             d.CurrentFrequency,
		Achieved:            achieved,
		Max:                 d.MaxFrequency,
	})
	if !floatutils.IsFinite(res.Reward) {
		c.log.V(1).Info("Replacing non-finite reward", "reward", res.Reward)
		c.metrics.nonFiniteReward(c.core)
		res.Reward = 0
	}

	t := timestep.NewTransition(state, res.Action, res.Reward, next, false)
	if err := c.state.vf.Update(t); errors.Is(err, agent.ErrPartialUpdate) {
		c.log.V(1).Info("Update partially applied", "error", err.Error())
	} else if err != nil {
		c.log.V(1).Info("Update rejected", "transition", t.String(),
			"error", err.Error())
		res.Outcome = OutcomeRejected
		return res
	}
	c.state.steps++

	if r, ok := c.state.vf.(interface{ ReplayLen() int }); ok {
		c.metrics.setReplay(c.core, r.ReplayLen())
	}
	if r, ok := c.state.vf.(agent.TargetRefresher); ok &&
		c.state.steps%r.TargetUpdateInterval() == 0 {
		r.RefreshTarget()
		c.metrics.refreshed(c.core)
		c.log.V(1).Info("Refreshed target network", "steps", c.state.steps)
	}

	res.Epsilon = c.state.policy.Decay()
	res.Learned = true
	res.Outcome = OutcomeLearned

	c.log.V(1).Info("Tick", "action", c.actions.Name(res.Action),
		"target", res.Target, "achieved", res.Achieved, "reward", res.Reward,
		"epsilon", res.Epsilon)
	return res
}

// sample returns the current state of the core, or a neutral state
// built from d when the sensor is unavailable
func (c *Controller) sample(ctx context.Context, d Descriptor) timestep.State {
	features, err := c.sensor.SampleState(ctx, c.core)
	if err == nil {
		var s timestep.State
		if s, err = NewState(features, c.bins); err == nil {
			return s
		}
	}
	c.log.V(1).Info("Using neutral state", "error", err.Error())
	return NeutralState(d, c.bins)
}

// wait blocks for the settle interval or until ctx is done
func (c *Controller) wait(ctx context.Context) error {
	if c.settle <= 0 {
		return nil
	}

	timer := c.clock.NewTimer(c.settle)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C():
		return nil
	}
}

// Shutdown stops the Controller. A tick in progress completes first;
// later ticks return ErrShutdown.
func (c *Controller) Shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}
