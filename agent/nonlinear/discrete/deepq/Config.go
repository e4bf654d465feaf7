package deepq

import (
	"fmt"

	"github.com/samuelfneumann/rlgov/agent"
	"github.com/samuelfneumann/rlgov/expreplay"
	"github.com/samuelfneumann/rlgov/initwfn"
	"github.com/samuelfneumann/rlgov/utils/randutils"
)

// OutputRule determines the hidden-layer signal g(k) that scales the
// output layer's weight adjustment on each training sample
type OutputRule string

const (
	// HiddenBias uses g(k) = relu(b_h[k]) taken after the hidden layer
	// has been adjusted for the sample. This is the legacy rule.
	HiddenBias OutputRule = "hidden-bias"

	// HiddenActivation uses g(k) = relu(W_h[k]·s + b_h[k]) taken before
	// the hidden layer is adjusted for the sample
	HiddenActivation OutputRule = "hidden-activation"
)

// ParseOutputRule returns the OutputRule named by s. The empty string
// names the default rule.
func ParseOutputRule(s string) (OutputRule, error) {
	switch OutputRule(s) {
	case "", HiddenBias:
		return HiddenBias, nil
	case HiddenActivation:
		return HiddenActivation, nil
	default:
		return "", fmt.Errorf("deepq: unknown output rule %q, want %q or %q",
			s, HiddenBias, HiddenActivation)
	}
}

// Config implements a configuration for a DeepQ value function
type Config struct {
	LearningRate float64
	Discount     float64

	StateDim   int // Number of input features
	HiddenSize int // Number of hidden units
	NumActions int

	// Initialization algorithm for weights and biases
	InitWFn *initwfn.InitWFn

	// Experience replay parameters
	ExpReplay expreplay.Config

	// Number of learned steps between target network refreshes
	TargetUpdateInterval int

	OutputRule OutputRule
}

// BatchSize returns the batch size of the value function constructed
// using this Config
func (c Config) BatchSize() int {
	return c.ExpReplay.SampleSize
}

// Type returns the type of the configuration
func (c Config) Type() agent.Type {
	return agent.DeepQ
}

// Tabular implements the agent.Config interface
func (c Config) Tabular() bool {
	return false
}

// Validate checks a Config to ensure it is a valid configuration of a
// DeepQ value function.
func (c Config) Validate() error {
	if c.LearningRate <= 0 {
		return fmt.Errorf("deepq: learning rate must be positive, got %v",
			c.LearningRate)
	}
	if c.Discount < 0 || c.Discount > 1 {
		return fmt.Errorf("deepq: discount must be in [0, 1], got %v",
			c.Discount)
	}
	if c.StateDim < 1 || c.HiddenSize < 1 || c.NumActions < 1 {
		return fmt.Errorf("deepq: invalid architecture %d → %d → %d",
			c.StateDim, c.HiddenSize, c.NumActions)
	}
	if c.InitWFn == nil {
		return fmt.Errorf("deepq: no weight initializer")
	}
	if c.TargetUpdateInterval < 1 {
		return fmt.Errorf("deepq: target networks must be updated at "+
			"positive timestep intervals \n\twant(>0) \n\thave(%v)",
			c.TargetUpdateInterval)
	}
	if _, err := ParseOutputRule(string(c.OutputRule)); err != nil {
		return err
	}
	if err := c.ExpReplay.Validate(); err != nil {
		return fmt.Errorf("deepq: %w", err)
	}
	return nil
}

// CreateValueFunction creates a new DeepQ value function based on the
// configuration
func (c Config) CreateValueFunction(rng randutils.Source) (agent.ValueFunction,
	error) {
	return New(c, rng)
}
