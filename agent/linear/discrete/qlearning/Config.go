package qlearning

import (
	"fmt"

	"github.com/samuelfneumann/rlgov/agent"
	"github.com/samuelfneumann/rlgov/utils/randutils"
)

// Config represents a configuration for the tabular QLearning value
// function
type Config struct {
	LearningRate float64 // α
	Discount     float64 // γ
	NumStates    int     // Number of frequency bins
	NumActions   int
}

// CreateValueFunction creates the QLearning value function from the
// Config. The table is always initialized to zero. The random source
// is unused.
func (c Config) CreateValueFunction(_ randutils.Source) (agent.ValueFunction,
	error) {
	return New(c)
}

// Validate ensures that the Config is valid
func (c Config) Validate() error {
	if c.LearningRate <= 0 || c.LearningRate > 1 {
		return fmt.Errorf("qlearning: learning rate must be in (0, 1], "+
			"got %v", c.LearningRate)
	}
	if c.Discount < 0 || c.Discount > 1 {
		return fmt.Errorf("qlearning: discount must be in [0, 1], got %v",
			c.Discount)
	}
	if c.NumStates < 1 {
		return fmt.Errorf("qlearning: need at least 1 state, got %d",
			c.NumStates)
	}
	if c.NumActions < 1 {
		return fmt.Errorf("qlearning: need at least 1 action, got %d",
			c.NumActions)
	}
	return nil
}

// Type returns the type of the value function constructed by the Config
func (c Config) Type() agent.Type {
	return agent.QLearning
}

// Tabular implements the agent.Config interface
func (c Config) Tabular() bool {
	return true
}
