// Package deepq implements Q-learning with a two-layer network, an
// experience replay buffer, and a periodically refreshed target
// network.
package deepq

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/rlgov/agent"
	"github.com/samuelfneumann/rlgov/expreplay"
	"github.com/samuelfneumann/rlgov/network"
	"github.com/samuelfneumann/rlgov/timestep"
	"github.com/samuelfneumann/rlgov/utils/floatutils"
	"github.com/samuelfneumann/rlgov/utils/randutils"
)

// DeepQ implements the deep Q-learning algorithm with a fixed,
// hand-written weight update rather than a gradient step.
//
// For each replayed transition the TD error
//
//	δ = r + γ * max[Qtarget(s', a')] - Q(s, a)
//
// adjusts every hidden unit by W_h += lr*δ*s, b_h += lr*δ, and every
// output unit by W_o += lr*δ*g, b_o += lr*δ, where g depends on the
// OutputRule.
type DeepQ struct {
	live    *network.MultiHeadMLP // Weights which are adapted
	target  *network.MultiHeadMLP // Provides the update target
	scratch *network.MultiHeadMLP // Pre-sample weights for rollback

	learningRate float64
	discount     float64
	outputRule   OutputRule

	replay expreplay.ExperienceReplayer

	targetUpdateInterval int
	trainingSteps        int
	refreshes            int
}

// New creates and returns a new DeepQ value function. The target
// network starts as a copy of the live network.
func New(c Config, rng randutils.Source) (*DeepQ, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		return nil, fmt.Errorf("deepq: nil random source")
	}
	rule, _ := ParseOutputRule(string(c.OutputRule))

	live, err := network.NewMultiHeadMLP(c.StateDim, c.HiddenSize,
		c.NumActions, c.InitWFn, rng)
	if err != nil {
		return nil, fmt.Errorf("deepq: could not create network: %w", err)
	}

	replay, err := c.ExpReplay.Create(rng)
	if err != nil {
		msg := "deepq: could not create experience replay buffer: %w"
		return nil, fmt.Errorf(msg, err)
	}

	return &DeepQ{
		live:                 live,
		target:               live.Clone(),
		scratch:              live.Clone(),
		learningRate:         c.LearningRate,
		discount:             c.Discount,
		outputRule:           rule,
		replay:               replay,
		targetUpdateInterval: c.TargetUpdateInterval,
	}, nil
}

// NumActions returns the number of actions
func (d *DeepQ) NumActions() int {
	return d.live.Outputs()
}

// Estimate returns the live network's action values in s. States with
// the wrong number of features are valued at zero.
func (d *DeepQ) Estimate(s timestep.State) []float64 {
	values, err := d.live.Forward(s.Features)
	if err != nil {
		return make([]float64, d.NumActions())
	}
	return values
}

// TargetEstimate returns the target network's action values in s
func (d *DeepQ) TargetEstimate(s timestep.State) ([]float64, error) {
	return d.target.Forward(s.Features)
}

// Update adds t to the replay buffer and, once the buffer holds at
// least a batch of transitions, trains on one batch sampled uniformly
// with replacement. Samples are applied one at a time. A sample which
// would make any weight non-finite is rolled back and the remaining
// samples are still applied; the returned error then wraps
// agent.ErrNonFinite, and also agent.ErrPartialUpdate when at least one
// sample was applied.
func (d *DeepQ) Update(t timestep.Transition) error {
	if err := d.checkTransition(t); err != nil {
		return fmt.Errorf("deepq: update: %w", err)
	}
	d.replay.Add(t)

	if d.replay.Len() < d.replay.BatchSize() {
		return nil
	}
	batch, err := d.replay.Sample()
	if expreplay.IsEmptyBuffer(err) || expreplay.IsInsufficientSamples(err) {
		return nil
	} else if err != nil {
		return fmt.Errorf("deepq: update: %w", err)
	}

	rejected := 0
	for _, sample := range batch {
		if err := d.train(sample); err != nil {
			rejected++
		}
	}
	d.trainingSteps++

	if rejected == len(batch) {
		return fmt.Errorf("deepq: update: all %d samples rejected: %w",
			len(batch), agent.ErrNonFinite)
	} else if rejected > 0 {
		return fmt.Errorf("deepq: update: %d of %d samples rejected: %w: %w",
			rejected, len(batch), agent.ErrPartialUpdate, agent.ErrNonFinite)
	}
	return nil
}

// train applies the update rule for a single transition
func (d *DeepQ) train(t timestep.Transition) error {
	q, err := d.live.Forward(t.State.Features)
	if err != nil {
		return err
	}

	target := t.Reward
	if !t.Terminal {
		next, err := d.target.Forward(t.NextState.Features)
		if err != nil {
			return err
		}
		target += d.discount * floatutils.Max(next)
	}

	step := d.learningRate * (target - q[t.Action])
	if !floatutils.IsFinite(step) {
		return agent.ErrNonFinite
	}

	var g []float64
	if d.outputRule == HiddenActivation {
		if g, err = d.live.HiddenActivations(t.State.Features); err != nil {
			return err
		}
	}

	d.scratch.Set(d.live)

	state := mat.NewVecDense(len(t.State.Features), t.State.Features)
	d.live.Hidden().Adjust(step, state)

	if d.outputRule == HiddenBias {
		bias := d.live.Hidden().Bias().RawVector().Data
		g = make([]float64, len(bias))
		for k := range bias {
			g[k] = network.Rectify(bias[k])
		}
	}
	d.live.Output().Adjust(step, mat.NewVecDense(len(g), g))

	if !d.live.IsFinite() {
		d.live.Set(d.scratch)
		return agent.ErrNonFinite
	}
	return nil
}

// checkTransition ensures a transition can be stored and learned from
func (d *DeepQ) checkTransition(t timestep.Transition) error {
	features := d.live.Features()
	if len(t.State.Features) != features ||
		len(t.NextState.Features) != features {
		return fmt.Errorf("%w: expected %d features, got %d and %d",
			agent.ErrOutOfRange, features, len(t.State.Features),
			len(t.NextState.Features))
	}
	if t.Action < 0 || t.Action >= d.NumActions() {
		return fmt.Errorf("%w: action %d not in [0, %d)", agent.ErrOutOfRange,
			t.Action, d.NumActions())
	}
	if !floatutils.IsFinite(t.Reward) ||
		!floatutils.AllFinite(t.State.Features) ||
		!floatutils.AllFinite(t.NextState.Features) {
		return agent.ErrNonFinite
	}
	return nil
}

// RefreshTarget copies the live weights into the target network
func (d *DeepQ) RefreshTarget() {
	d.target.Set(d.live)
	d.refreshes++
}

// TargetUpdateInterval returns the number of learned steps between
// target refreshes
func (d *DeepQ) TargetUpdateInterval() int {
	return d.targetUpdateInterval
}

// TrainingSteps returns the number of batches trained on
func (d *DeepQ) TrainingSteps() int {
	return d.trainingSteps
}

// Refreshes returns the number of target network refreshes
func (d *DeepQ) Refreshes() int {
	return d.refreshes
}

// ReplayLen returns the number of transitions in the replay buffer
func (d *DeepQ) ReplayLen() int {
	return d.replay.Len()
}

// ReplayCapacity returns the capacity of the replay buffer
func (d *DeepQ) ReplayCapacity() int {
	return d.replay.MaxCapacity()
}

// Network returns the live network
func (d *DeepQ) Network() *network.MultiHeadMLP {
	return d.live
}

// GobEncode implements the gob.GobEncoder interface. The replay buffer
// is not serialized.
func (d *DeepQ) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	err := gob.NewEncoder(&buf).Encode(snapshot{
		Live:          d.live,
		Target:        d.target,
		LearningRate:  d.learningRate,
		Discount:      d.discount,
		OutputRule:    d.outputRule,
		TrainingSteps: d.trainingSteps,
		Refreshes:     d.refreshes,
	})
	return buf.Bytes(), err
}

// GobDecode implements the gob.GobDecoder interface. If the receiver
// already holds networks, the decoded networks must match their
// architecture. The receiver keeps its replay buffer.
func (d *DeepQ) GobDecode(data []byte) error {
	var s snapshot
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return err
	}

	if d.live != nil {
		if err := d.live.Set(s.Live); err != nil {
			return fmt.Errorf("gobdecode: %w", err)
		}
		if err := d.target.Set(s.Target); err != nil {
			return fmt.Errorf("gobdecode: %w", err)
		}
	} else {
		d.live, d.target = s.Live, s.Target
		d.scratch = s.Live.Clone()
	}

	d.learningRate, d.discount = s.LearningRate, s.Discount
	d.outputRule = s.OutputRule
	d.trainingSteps, d.refreshes = s.TrainingSteps, s.Refreshes
	return nil
}

type snapshot struct {
	Live, Target  *network.MultiHeadMLP
	LearningRate  float64
	Discount      float64
	OutputRule    OutputRule
	TrainingSteps int
	Refreshes     int
}

var (
	_ agent.TargetRefresher = &DeepQ{}
	_ agent.Snapshotter     = &DeepQ{}
)
