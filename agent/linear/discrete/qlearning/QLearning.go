// Package qlearning implements tabular, single-estimator Q-learning
// over discretized frequency bins.
package qlearning

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/rlgov/agent"
	"github.com/samuelfneumann/rlgov/timestep"
	"github.com/samuelfneumann/rlgov/utils/floatutils"
)

// QLearning implements the Q-Learning algorithm with a single table of
// action values: rows are state bins, columns are actions.
type QLearning struct {
	table        *mat.Dense
	learningRate float64
	discount     float64
}

// New creates a new QLearning value function with a zeroed table
func New(c Config) (*QLearning, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	return &QLearning{
		table:        mat.NewDense(c.NumStates, c.NumActions, nil),
		learningRate: c.LearningRate,
		discount:     c.Discount,
	}, nil
}

// NumActions returns the number of actions in the table
func (q *QLearning) NumActions() int {
	_, cols := q.table.Dims()
	return cols
}

// NumStates returns the number of state bins in the table
func (q *QLearning) NumStates() int {
	rows, _ := q.table.Dims()
	return rows
}

// Estimate returns the row of action values for the state's bin
func (q *QLearning) Estimate(s timestep.State) []float64 {
	return Row(q.table, s.Bin)
}

// At returns the action value of (bin, action)
func (q *QLearning) At(bin, action int) float64 {
	return q.table.At(bin, action)
}

// Update performs the one-step Q-learning update
//
//	Q(s, a) <- Q(s, a) + α * (r + γ * max[Q(s', a')] - Q(s, a))
//
// The bootstrap term is dropped on terminal transitions.
func (q *QLearning) Update(t timestep.Transition) error {
	if err := CheckTransition(t, q.NumStates(), q.NumActions()); err != nil {
		return fmt.Errorf("qlearning: update: %w", err)
	}

	target := t.Reward
	if !t.Terminal {
		target += q.discount * floatutils.Max(q.table.RawRowView(
			t.NextState.Bin))
	}

	return TDUpdate(q.table, t.State.Bin, t.Action, target, q.learningRate)
}

// GobEncode implements the gob.GobEncoder interface
func (q *QLearning) GobEncode() ([]byte, error) {
	table, err := q.table.MarshalBinary()
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	err = enc.Encode(snapshot{table, q.learningRate, q.discount})
	return buf.Bytes(), err
}

// GobDecode implements the gob.GobDecoder interface
func (q *QLearning) GobDecode(data []byte) error {
	var s snapshot
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return err
	}

	table := &mat.Dense{}
	if err := table.UnmarshalBinary(s.Table); err != nil {
		return err
	}
	q.table = table
	q.learningRate = s.LearningRate
	q.discount = s.Discount
	return nil
}

// snapshot is the serialized form of a QLearning value function
type snapshot struct {
	Table        []byte
	LearningRate float64
	Discount     float64
}

var _ agent.Snapshotter = &QLearning{}
