package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samuelfneumann/rlgov/agent"
	"github.com/samuelfneumann/rlgov/agent/linear/discrete/doubleq"
	"github.com/samuelfneumann/rlgov/agent/linear/discrete/policy"
	"github.com/samuelfneumann/rlgov/agent/linear/discrete/qlearning"
	"github.com/samuelfneumann/rlgov/agent/nonlinear/discrete/deepq"
	"github.com/samuelfneumann/rlgov/environment"
)

func load(t *testing.T, args ...string) (Config, error) {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	AddFlags(fs)
	require.NoError(t, fs.Parse(args))
	return Load(viper.New(), fs, "")
}

func TestVariantDefaults(t *testing.T) {
	single, err := load(t)
	require.NoError(t, err)
	assert.Equal(t, "single", single.Variant)
	assert.Equal(t, 0.1, single.LearningRate)
	assert.Equal(t, 0.9, single.Discount)
	assert.Equal(t, Epsilon{Schedule: Fixed, Start: 0.1, End: 0.1, Decay: 1},
		single.Epsilon)
	assert.Equal(t, 5, single.NumStates)
	assert.Equal(t, 3, single.Actions)
	assert.Equal(t, "utilization", single.Reward)
	assert.Empty(t, cmp.Diff([]int{0}, single.Cores))

	double, err := load(t, "--variant=double")
	require.NoError(t, err)
	assert.Equal(t, 10, double.NumStates)
	assert.Equal(t, 5, double.Actions)
	assert.Equal(t, "energy", double.Reward)

	dq, err := load(t, "--variant=deepq")
	require.NoError(t, err)
	assert.Equal(t, 0.001, dq.LearningRate)
	assert.Equal(t, 0.99, dq.Discount)
	assert.Equal(t, Epsilon{Schedule: Decaying, Start: 1, End: 0.01,
		Decay: 0.995}, dq.Epsilon)
	assert.Equal(t, Replay{Capacity: 1000, BatchSize: 32}, dq.Replay)
	assert.Equal(t, 100, dq.TargetUpdateInterval)
	assert.Equal(t, 32, dq.HiddenSize)
	assert.Equal(t, 10*time.Millisecond, dq.SettleInterval)
	assert.Equal(t, "hidden-bias", dq.OutputRule)
}

func TestFlagsOverride(t *testing.T) {
	c, err := load(t, "--variant=deepq", "--hidden-size=16",
		"--cores=0,2", "--settle-interval=5ms", "--output-rule",
		"hidden-activation")
	require.NoError(t, err)
	assert.Equal(t, 16, c.HiddenSize)
	assert.Empty(t, cmp.Diff([]int{0, 2}, c.Cores))
	assert.Equal(t, 5*time.Millisecond, c.SettleInterval)
	assert.Equal(t, "hidden-activation", c.OutputRule)

	// Untouched keys keep the variant defaults
	assert.Equal(t, 100, c.TargetUpdateInterval)
}

func TestEnvironmentOverride(t *testing.T) {
	t.Setenv("RLGOV_VARIANT", "double")
	t.Setenv("RLGOV_EPSILON_START", "0.3")
	t.Setenv("RLGOV_LEARNINGRATE", "0.5")

	c, err := load(t)
	require.NoError(t, err)
	assert.Equal(t, "double", c.Variant)
	assert.Equal(t, 0.3, c.Epsilon.Start)
	assert.Equal(t, 0.5, c.LearningRate)

	// Flags take precedence over the environment
	c, err = load(t, "--learning-rate=0.2")
	require.NoError(t, err)
	assert.Equal(t, 0.2, c.LearningRate)
}

func TestFileRoundTrip(t *testing.T) {
	c, err := load(t, "--variant=deepq", "--cores=1,3", "--seed=7")
	require.NoError(t, err)

	out, err := c.YAML()
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "rlgov.yaml")
	require.NoError(t, os.WriteFile(path, out, 0o644))

	loaded, err := Load(viper.New(), nil, path)
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(c, loaded))
}

func TestFileSelectsVariant(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rlgov.yaml")
	require.NoError(t, os.WriteFile(path, []byte("variant: deepq\n"+
		"replay:\n  batchSize: 8\n"), 0o644))

	c, err := Load(viper.New(), nil, path)
	require.NoError(t, err)
	assert.Equal(t, 8, c.Replay.BatchSize)
	assert.Equal(t, 1000, c.Replay.Capacity)
	assert.Equal(t, 0.001, c.LearningRate)

	_, err = Load(viper.New(), nil, filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestInvalid(t *testing.T) {
	tests := map[string][]string{
		"variant":  {"--variant=triple"},
		"actions":  {"--actions=4"},
		"reward":   {"--reward=speed"},
		"schedule": {"--epsilon-schedule=linear"},
		"core":     {"--cores=-1"},
		"interval": {"--interval=-1s"},
		"rule":     {"--variant=deepq", "--output-rule=other"},
		"init":     {"--variant=deepq", "--initializer=normal"},
		"batch":    {"--variant=deepq", "--replay-capacity=4", "--batch-size=8"},
	}
	for name, args := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := load(t, args...)
			assert.Error(t, err)
		})
	}
}

func TestGovernor(t *testing.T) {
	single, err := load(t)
	require.NoError(t, err)
	g, err := single.Governor()
	require.NoError(t, err)
	assert.Equal(t, qlearning.Config{LearningRate: 0.1, Discount: 0.9,
		NumStates: 5, NumActions: 3}, g.ValueFunction)
	assert.Equal(t, policy.Fixed{Value: 0.1}, g.Schedule)
	assert.Equal(t, 5, g.Bins)

	double, err := load(t, "--variant=double")
	require.NoError(t, err)
	g, err = double.Governor()
	require.NoError(t, err)
	assert.IsType(t, doubleq.Config{}, g.ValueFunction)
	assert.Equal(t, environment.Energy, g.Task.Type)
	assert.Equal(t, agent.DoubleQLearning, g.ValueFunction.Type())

	dq, err := load(t, "--variant=deepq")
	require.NoError(t, err)
	g, err = dq.Governor()
	require.NoError(t, err)
	vf, ok := g.ValueFunction.(deepq.Config)
	require.True(t, ok)
	assert.Equal(t, 5, vf.StateDim)
	assert.Equal(t, 32, vf.ExpReplay.SampleSize)
	assert.Equal(t, deepq.HiddenBias, vf.OutputRule)
	assert.Equal(t, policy.Decaying{Start: 1, End: 0.01, Decay: 0.995},
		g.Schedule)
	assert.Equal(t, 10*time.Millisecond, g.Settle())
}
