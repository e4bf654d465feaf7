// Package doubleq implements tabular double Q-learning.
//
// Two tables are kept. On each update a fair coin chooses one table to
// update, and the bootstrap term of that update is taken from the other
// table. Since neither table bootstraps off its own maximum, the
// overestimation bias of single-table Q-learning is reduced. Actions
// are ranked using the sum of both tables.
package doubleq

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/rlgov/agent"
	"github.com/samuelfneumann/rlgov/agent/linear/discrete/qlearning"
	"github.com/samuelfneumann/rlgov/timestep"
	"github.com/samuelfneumann/rlgov/utils/floatutils"
	"github.com/samuelfneumann/rlgov/utils/randutils"
)

// DoubleQ implements the double Q-learning algorithm
type DoubleQ struct {
	q1, q2       *mat.Dense
	learningRate float64
	discount     float64
	rng          randutils.Source

	q1Updates, q2Updates int
}

// New creates a new DoubleQ value function with zeroed tables
func New(c Config, rng randutils.Source) (*DoubleQ, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("doubleq: %w", err)
	}
	if rng == nil {
		return nil, fmt.Errorf("doubleq: nil random source")
	}

	return &DoubleQ{
		q1:           mat.NewDense(c.NumStates, c.NumActions, nil),
		q2:           mat.NewDense(c.NumStates, c.NumActions, nil),
		learningRate: c.LearningRate,
		discount:     c.Discount,
		rng:          rng,
	}, nil
}

// NumActions returns the number of actions in each table
func (d *DoubleQ) NumActions() int {
	_, cols := d.q1.Dims()
	return cols
}

// NumStates returns the number of state bins in each table
func (d *DoubleQ) NumStates() int {
	rows, _ := d.q1.Dims()
	return rows
}

// Estimate returns Q1(s, ·) + Q2(s, ·). The sum is only used to rank
// actions, never as an update target.
func (d *DoubleQ) Estimate(s timestep.State) []float64 {
	values := qlearning.Row(d.q1, s.Bin)
	for i, v := range d.q2.RawRowView(s.Bin) {
		values[i] += v
	}
	return values
}

// Tables returns the action values of (bin, action) in each table
func (d *DoubleQ) Tables(bin, action int) (q1, q2 float64) {
	return d.q1.At(bin, action), d.q2.At(bin, action)
}

// Updates returns the number of updates applied to each table
func (d *DoubleQ) Updates() (q1, q2 int) {
	return d.q1Updates, d.q2Updates
}

// Update flips a coin and performs one of
//
//	Q1(s, a) <- Q1(s, a) + α * (r + γ * max[Q2(s', a')] - Q1(s, a))
//	Q2(s, a) <- Q2(s, a) + α * (r + γ * max[Q1(s', a')] - Q2(s, a))
//
// The bootstrap term is dropped on terminal transitions.
func (d *DoubleQ) Update(t timestep.Transition) error {
	if err := qlearning.CheckTransition(t, d.NumStates(),
		d.NumActions()); err != nil {
		return fmt.Errorf("doubleq: update: %w", err)
	}

	updated, bootstrap := d.q2, d.q1
	updateFirst := randutils.Coin(d.rng)
	if updateFirst {
		updated, bootstrap = d.q1, d.q2
	}

	target := t.Reward
	if !t.Terminal {
		target += d.discount * floatutils.Max(bootstrap.RawRowView(
			t.NextState.Bin))
	}

	err := qlearning.TDUpdate(updated, t.State.Bin, t.Action, target,
		d.learningRate)
	if err != nil {
		return fmt.Errorf("doubleq: update: %w", err)
	}

	if updateFirst {
		d.q1Updates++
	} else {
		d.q2Updates++
	}
	return nil
}

// GobEncode implements the gob.GobEncoder interface. Update counts and
// the random source are not serialized.
func (d *DoubleQ) GobEncode() ([]byte, error) {
	q1, err := d.q1.MarshalBinary()
	if err != nil {
		return nil, err
	}
	q2, err := d.q2.MarshalBinary()
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	err = gob.NewEncoder(&buf).Encode(snapshot{q1, q2, d.learningRate,
		d.discount})
	return buf.Bytes(), err
}

// GobDecode implements the gob.GobDecoder interface. The receiver keeps
// its random source.
func (d *DoubleQ) GobDecode(data []byte) error {
	var s snapshot
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return err
	}

	q1, q2 := &mat.Dense{}, &mat.Dense{}
	if err := q1.UnmarshalBinary(s.Q1); err != nil {
		return err
	}
	if err := q2.UnmarshalBinary(s.Q2); err != nil {
		return err
	}
	d.q1, d.q2 = q1, q2
	d.learningRate, d.discount = s.LearningRate, s.Discount
	return nil
}

type snapshot struct {
	Q1, Q2       []byte
	LearningRate float64
	Discount     float64
}

var _ agent.Snapshotter = &DoubleQ{}
