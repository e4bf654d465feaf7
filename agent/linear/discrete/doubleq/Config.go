package doubleq

import (
	"github.com/samuelfneumann/rlgov/agent"
	"github.com/samuelfneumann/rlgov/agent/linear/discrete/qlearning"
	"github.com/samuelfneumann/rlgov/utils/randutils"
)

// Config represents a configuration for the tabular double Q-learning
// value function. Both tables share the same shape and step sizes.
type Config struct {
	qlearning.Config
}

// CreateValueFunction creates the DoubleQ value function from the
// Config. Coin flips choosing which table to update are drawn from rng.
func (c Config) CreateValueFunction(rng randutils.Source) (agent.ValueFunction,
	error) {
	return New(c, rng)
}

// Type returns the type of the value function constructed by the Config
func (c Config) Type() agent.Type {
	return agent.DoubleQLearning
}
