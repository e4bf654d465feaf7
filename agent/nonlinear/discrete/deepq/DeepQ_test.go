package deepq

import (
	"bytes"
	"encoding/gob"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samuelfneumann/rlgov/agent"
	"github.com/samuelfneumann/rlgov/expreplay"
	"github.com/samuelfneumann/rlgov/initwfn"
	"github.com/samuelfneumann/rlgov/timestep"
	"github.com/samuelfneumann/rlgov/utils/randutils"
)

var approx = cmpopts.EquateApprox(0, 1e-12)

func config(t *testing.T, rule OutputRule, batch int) Config {
	t.Helper()
	init, err := initwfn.NewZeroes()
	require.NoError(t, err)

	return Config{
		LearningRate:         0.1,
		Discount:             0.5,
		StateDim:             2,
		HiddenSize:           2,
		NumActions:           2,
		InitWFn:              init,
		ExpReplay:            expreplay.Config{MaxReplayCapacity: 10, SampleSize: batch},
		TargetUpdateInterval: 4,
		OutputRule:           rule,
	}
}

func newDeepQ(t *testing.T, c Config) *DeepQ {
	t.Helper()
	d, err := New(c, &randutils.Scripted{})
	require.NoError(t, err)
	return d
}

func transition(s []float64, a int, r float64, next []float64) timestep.Transition {
	return timestep.NewTransition(timestep.NewState(s, 0), a, r,
		timestep.NewState(next, 0), false)
}

func TestHiddenBiasRule(t *testing.T) {
	d := newDeepQ(t, config(t, HiddenBias, 1))

	// δ = 1 + 0.5*0 - 0, step = 0.1
	// W_h[j] = [0.1, 0.05], b_h[j] = 0.1
	// g = relu(b_h) = [0.1, 0.1], W_o[i] = [0.01, 0.01], b_o[i] = 0.1
	require.NoError(t, d.Update(transition([]float64{1, 0.5}, 0, 1,
		[]float64{0, 0})))

	hidden := d.Network().Hidden()
	for j := 0; j < 2; j++ {
		assert.InDelta(t, 0.1, hidden.Weights().At(j, 0), 1e-12)
		assert.InDelta(t, 0.05, hidden.Weights().At(j, 1), 1e-12)
		assert.InDelta(t, 0.1, hidden.Bias().AtVec(j), 1e-12)
	}

	// Hidden: 0.1 + 0.025 + 0.1 = 0.225
	// Output: 2 * 0.01 * 0.225 + 0.1 = 0.1045
	got := d.Estimate(timestep.NewState([]float64{1, 0.5}, 0))
	assert.Empty(t, cmp.Diff([]float64{0.1045, 0.1045}, got, approx))
	assert.Equal(t, 1, d.TrainingSteps())
}

func TestHiddenActivationRule(t *testing.T) {
	d := newDeepQ(t, config(t, HiddenActivation, 1))

	// g is taken before the hidden layer moves: relu(0) = 0. Only the
	// output bias changes.
	require.NoError(t, d.Update(transition([]float64{1, 0.5}, 0, 1,
		[]float64{0, 0})))

	output := d.Network().Output()
	for i := 0; i < 2; i++ {
		assert.InDelta(t, 0, output.Weights().At(i, 0), 1e-12)
		assert.InDelta(t, 0.1, output.Bias().AtVec(i), 1e-12)
	}

	got := d.Estimate(timestep.NewState([]float64{1, 0.5}, 0))
	assert.Empty(t, cmp.Diff([]float64{0.1, 0.1}, got, approx))
}

func TestTerminalDropsBootstrap(t *testing.T) {
	c := config(t, HiddenActivation, 1)
	init, err := initwfn.NewConstant(1)
	require.NoError(t, err)
	c.InitWFn = init
	d := newDeepQ(t, c)

	// Live and target both output relu(0+0+1)*2 + 1 = 3 for s' = 0
	before := d.Estimate(timestep.NewState([]float64{0, 0}, 0))
	require.Empty(t, cmp.Diff([]float64{3, 3}, before, approx))

	tr := timestep.NewTransition(timestep.NewState([]float64{0, 0}, 0), 1, 3,
		timestep.NewState([]float64{0, 0}, 0), true)
	require.NoError(t, d.Update(tr))

	// δ = 3 - 3 = 0, nothing moves
	after := d.Estimate(timestep.NewState([]float64{0, 0}, 0))
	assert.Empty(t, cmp.Diff(before, after, approx))
}

func TestWarmUp(t *testing.T) {
	d := newDeepQ(t, config(t, HiddenBias, 3))
	s := []float64{0.5, 0.5}

	for i := 0; i < 2; i++ {
		require.NoError(t, d.Update(transition(s, 1, 1, s)))
		assert.Equal(t, i+1, d.ReplayLen())
		assert.Equal(t, 0, d.TrainingSteps())
		assert.Empty(t, cmp.Diff([]float64{0, 0}, d.Estimate(
			timestep.NewState(s, 0))))
	}

	require.NoError(t, d.Update(transition(s, 1, 1, s)))
	assert.Equal(t, 1, d.TrainingSteps())
	assert.NotEqual(t, 0.0, d.Estimate(timestep.NewState(s, 0))[0])
}

func TestReplayLenCapped(t *testing.T) {
	d := newDeepQ(t, config(t, HiddenBias, 1))
	s := []float64{0.1, 0.1}
	for i := 0; i < 25; i++ {
		require.NoError(t, d.Update(transition(s, 0, 0, s)))
	}
	assert.Equal(t, 10, d.ReplayLen())
	assert.Equal(t, 10, d.ReplayCapacity())
	assert.Equal(t, 25, d.TrainingSteps())
}

func TestTargetStartsAsCopyAndRefreshes(t *testing.T) {
	c := config(t, HiddenBias, 1)
	init, err := initwfn.NewUniform(-1, 1)
	require.NoError(t, err)
	c.InitWFn = init
	d, err := New(c, randutils.NewLocked(11))
	require.NoError(t, err)

	s := timestep.NewState([]float64{0.3, 0.7}, 0)
	target, err := d.TargetEstimate(s)
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(d.Estimate(s), target))

	require.NoError(t, d.Update(transition([]float64{0.3, 0.7}, 1, 5,
		[]float64{0.3, 0.7})))
	target, err = d.TargetEstimate(s)
	require.NoError(t, err)
	assert.NotEmpty(t, cmp.Diff(d.Estimate(s), target))

	d.RefreshTarget()
	target, err = d.TargetEstimate(s)
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(d.Estimate(s), target))
	assert.Equal(t, 1, d.Refreshes())
	assert.Equal(t, 4, d.TargetUpdateInterval())

	// Refreshing copies, it does not alias
	require.NoError(t, d.Update(transition([]float64{0.3, 0.7}, 1, 5,
		[]float64{0.3, 0.7})))
	target, err = d.TargetEstimate(s)
	require.NoError(t, err)
	assert.NotEmpty(t, cmp.Diff(d.Estimate(s), target))
}

func TestNonFiniteSampleRolledBack(t *testing.T) {
	c := config(t, HiddenBias, 1)
	c.LearningRate = 1
	d := newDeepQ(t, c)

	// step = 1e308 is finite, but the output adjustment 1e308 * 1e308
	// overflows
	err := d.Update(transition([]float64{1, 1}, 0, 1e308, []float64{0, 0}))
	require.ErrorIs(t, err, agent.ErrNonFinite)
	assert.NotErrorIs(t, err, agent.ErrPartialUpdate)

	assert.True(t, d.Network().IsFinite())
	assert.Empty(t, cmp.Diff([]float64{0, 0}, d.Estimate(
		timestep.NewState([]float64{1, 1}, 0))))
}

func TestPartiallyAppliedBatch(t *testing.T) {
	c := config(t, HiddenBias, 2)
	c.LearningRate = 1
	d, err := New(c, &randutils.Scripted{Ints: []int{0, 1}})
	require.NoError(t, err)

	s := []float64{1, 1}
	require.NoError(t, d.Update(transition(s, 0, 1, []float64{0, 0})))
	assert.Equal(t, 0, d.TrainingSteps())

	// The batch holds the finite transition, which is applied, and the
	// overflowing one, which is rolled back
	err = d.Update(transition(s, 0, 1e308, []float64{0, 0}))
	require.ErrorIs(t, err, agent.ErrPartialUpdate)
	require.ErrorIs(t, err, agent.ErrNonFinite)

	assert.Equal(t, 1, d.TrainingSteps())
	assert.Equal(t, 2, d.ReplayLen())
	assert.True(t, d.Network().IsFinite())
	got := d.Estimate(timestep.NewState(s, 0))
	assert.NotEqual(t, 0.0, got[0])
}

func TestRejectsBadTransitions(t *testing.T) {
	d := newDeepQ(t, config(t, HiddenBias, 1))

	err := d.Update(transition([]float64{1}, 0, 0, []float64{1, 1}))
	assert.ErrorIs(t, err, agent.ErrOutOfRange)

	err = d.Update(transition([]float64{1, 1}, 2, 0, []float64{1, 1}))
	assert.ErrorIs(t, err, agent.ErrOutOfRange)

	err = d.Update(transition([]float64{1, 1}, 0, math.NaN(),
		[]float64{1, 1}))
	assert.ErrorIs(t, err, agent.ErrNonFinite)

	err = d.Update(transition([]float64{1, math.Inf(1)}, 0, 0,
		[]float64{1, 1}))
	assert.ErrorIs(t, err, agent.ErrNonFinite)

	assert.Equal(t, 0, d.ReplayLen())
}

func TestEstimateWrongFeatures(t *testing.T) {
	d := newDeepQ(t, config(t, HiddenBias, 1))
	assert.Equal(t, []float64{0, 0}, d.Estimate(timestep.NewState(
		[]float64{1, 2, 3}, 0)))
}

func TestValidate(t *testing.T) {
	valid := config(t, HiddenBias, 1)
	require.NoError(t, valid.Validate())

	tests := map[string]func(c *Config){
		"zero learning rate": func(c *Config) { c.LearningRate = 0 },
		"discount > 1":       func(c *Config) { c.Discount = 1.5 },
		"no hidden units":    func(c *Config) { c.HiddenSize = 0 },
		"no actions":         func(c *Config) { c.NumActions = 0 },
		"no initializer":     func(c *Config) { c.InitWFn = nil },
		"zero interval":      func(c *Config) { c.TargetUpdateInterval = 0 },
		"bad rule":           func(c *Config) { c.OutputRule = "gradient" },
		"batch > capacity": func(c *Config) {
			c.ExpReplay = expreplay.Config{MaxReplayCapacity: 2, SampleSize: 3}
		},
	}

	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			c := valid
			mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestParseOutputRule(t *testing.T) {
	rule, err := ParseOutputRule("")
	require.NoError(t, err)
	assert.Equal(t, HiddenBias, rule)

	rule, err = ParseOutputRule("hidden-activation")
	require.NoError(t, err)
	assert.Equal(t, HiddenActivation, rule)

	_, err = ParseOutputRule("other")
	assert.Error(t, err)
}

func TestGob(t *testing.T) {
	d := newDeepQ(t, config(t, HiddenBias, 1))
	require.NoError(t, d.Update(transition([]float64{1, 0.5}, 0, 1,
		[]float64{0, 0})))

	var buf bytes.Buffer
	require.NoError(t, gob.NewEncoder(&buf).Encode(d))

	restored := newDeepQ(t, config(t, HiddenBias, 1))
	require.NoError(t, gob.NewDecoder(&buf).Decode(restored))

	s := timestep.NewState([]float64{1, 0.5}, 0)
	assert.Empty(t, cmp.Diff(d.Estimate(s), restored.Estimate(s)))
	assert.Equal(t, 1, restored.TrainingSteps())
	assert.Equal(t, 0, restored.ReplayLen())
}

func BenchmarkUpdate(b *testing.B) {
	init, _ := initwfn.NewUniform(-1, 1)
	d, _ := New(Config{
		LearningRate:         0.001,
		Discount:             0.99,
		StateDim:             timestep.StateDim,
		HiddenSize:           32,
		NumActions:           5,
		InitWFn:              init,
		ExpReplay:            expreplay.Config{MaxReplayCapacity: 1000, SampleSize: 32},
		TargetUpdateInterval: 100,
	}, randutils.NewLocked(1))
	s := []float64{0.5, 0.2, 0.4, 0.3, 0.1}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		d.Update(transition(s, i%5, 0.5, s))
	}
}
