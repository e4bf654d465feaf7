package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samuelfneumann/rlgov/timestep"
	"github.com/samuelfneumann/rlgov/utils/randutils"
)

// fixedValues is a value function returning the same estimates in
// every state
type fixedValues []float64

func (f fixedValues) Estimate(timestep.State) []float64 {
	out := make([]float64, len(f))
	copy(out, f)
	return out
}

func (f fixedValues) Update(timestep.Transition) error { return nil }

func (f fixedValues) NumActions() int { return len(f) }

func TestSelectActionExploits(t *testing.T) {
	rng := &randutils.Scripted{Floats: []float64{0.5}, Ints: []int{4}}
	p, err := NewEGreedy(Fixed{Value: 0.1}, rng)
	require.NoError(t, err)

	vf := fixedValues{0, 2, 1, 2, -1}
	for i := 0; i < 5; i++ {
		assert.Equal(t, 1, p.SelectAction(vf, timestep.State{}))
	}
}

func TestSelectActionExplores(t *testing.T) {
	rng := &randutils.Scripted{Floats: []float64{0.05}, Ints: []int{3, 0, 4}}
	p, err := NewEGreedy(Fixed{Value: 0.1}, rng)
	require.NoError(t, err)

	vf := fixedValues{0, 2, 1, 2, -1}
	assert.Equal(t, 3, p.SelectAction(vf, timestep.State{}))
	assert.Equal(t, 0, p.SelectAction(vf, timestep.State{}))
	assert.Equal(t, 4, p.SelectAction(vf, timestep.State{}))
}

func TestGreedyTieBreak(t *testing.T) {
	assert.Equal(t, 0, Greedy(fixedValues{0, 0, 0}, timestep.State{}))
	assert.Equal(t, 2, Greedy(fixedValues{-1, 0, 3, 3}, timestep.State{}))
}

func TestDecayingScheduleIsMonotoneAndBounded(t *testing.T) {
	s := Decaying{Start: 1.0, End: 0.01, Decay: 0.995}
	p, err := NewEGreedy(s, randutils.NewLocked(1))
	require.NoError(t, err)
	require.Equal(t, 1.0, p.Epsilon())

	prev := p.Epsilon()
	for i := 0; i < 5000; i++ {
		e := p.Decay()
		require.LessOrEqual(t, e, prev)
		require.GreaterOrEqual(t, e, s.End)
		require.LessOrEqual(t, e, s.Start)
		prev = e
	}
	assert.Equal(t, s.End, p.Epsilon())
}

func TestFixedScheduleHoldsEpsilon(t *testing.T) {
	p, err := NewEGreedy(Fixed{Value: 0.1}, randutils.NewLocked(1))
	require.NoError(t, err)

	for i := 0; i < 100; i++ {
		assert.Equal(t, 0.1, p.Decay())
	}
}

func TestScheduleValidate(t *testing.T) {
	tests := []struct {
		name     string
		schedule Schedule
		wantErr  bool
	}{
		{"decaying", Decaying{Start: 1, End: 0.01, Decay: 0.995}, false},
		{"no decay", Decaying{Start: 0.5, End: 0.5, Decay: 1}, false},
		{"end above start", Decaying{Start: 0.1, End: 0.5, Decay: 0.9}, true},
		{"start above one", Decaying{Start: 1.5, End: 0.1, Decay: 0.9}, true},
		{"zero decay", Decaying{Start: 1, End: 0.1, Decay: 0}, true},
		{"fixed", Fixed{Value: 0.1}, false},
		{"fixed negative", Fixed{Value: -0.1}, true},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := test.schedule.Validate()
			if test.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewEGreedyRejectsInvalid(t *testing.T) {
	_, err := NewEGreedy(nil, randutils.NewLocked(1))
	assert.Error(t, err)

	_, err = NewEGreedy(Fixed{Value: 0.1}, nil)
	assert.Error(t, err)

	_, err = NewEGreedy(Fixed{Value: 2}, randutils.NewLocked(1))
	assert.Error(t, err)
}
