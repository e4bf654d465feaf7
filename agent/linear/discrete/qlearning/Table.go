package qlearning

import (
	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/rlgov/agent"
	"github.com/samuelfneumann/rlgov/timestep"
	"github.com/samuelfneumann/rlgov/utils/floatutils"
)

// Row returns a copy of row i of table
func Row(table *mat.Dense, i int) []float64 {
	_, cols := table.Dims()
	row := make([]float64, cols)
	copy(row, table.RawRowView(i))
	return row
}

// CheckTransition returns agent.ErrOutOfRange if either state bin or
// the action of t falls outside a numStates x numActions table, and
// agent.ErrNonFinite if the reward is not finite
func CheckTransition(t timestep.Transition, numStates, numActions int) error {
	if t.State.Bin < 0 || t.State.Bin >= numStates ||
		t.NextState.Bin < 0 || t.NextState.Bin >= numStates ||
		t.Action < 0 || t.Action >= numActions {
		return agent.ErrOutOfRange
	}
	if !floatutils.IsFinite(t.Reward) {
		return agent.ErrNonFinite
	}
	return nil
}

// TDUpdate moves table(bin, action) a fraction α of the way toward
// target. The table is left untouched if the result is not finite.
func TDUpdate(table *mat.Dense, bin, action int, target, α float64) error {
	current := table.At(bin, action)
	updated := current + α*(target-current)
	if !floatutils.IsFinite(updated) {
		return agent.ErrNonFinite
	}

	table.Set(bin, action, updated)
	return nil
}
