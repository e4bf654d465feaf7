// Package expreplay implements the experience replay buffer used by
// the function approximation learner
package expreplay

import (
	"fmt"

	"github.com/samuelfneumann/rlgov/timestep"
	"github.com/samuelfneumann/rlgov/utils/randutils"
)

// Config implements a specific configuration of an ExperienceReplayer
type Config struct {
	// MaxReplayCapacity is the number of transitions held before the
	// oldest transitions start being overwritten
	MaxReplayCapacity int `mapstructure:"capacity" yaml:"capacity"`

	// SampleSize is the number of transitions returned by Sample(). No
	// samples can be drawn until the buffer holds at least SampleSize
	// transitions.
	SampleSize int `mapstructure:"batchSize" yaml:"batchSize"`
}

// Validate checks that the Config describes a usable buffer
func (c Config) Validate() error {
	if c.MaxReplayCapacity < 1 {
		return fmt.Errorf("expreplay: capacity must be >= 1, got %d",
			c.MaxReplayCapacity)
	}
	if c.SampleSize < 1 {
		return fmt.Errorf("expreplay: batch size must be >= 1, got %d",
			c.SampleSize)
	}
	if c.SampleSize > c.MaxReplayCapacity {
		return fmt.Errorf("expreplay: cannot have batch size (%d) > max "+
			"buffer capacity (%d)", c.SampleSize, c.MaxReplayCapacity)
	}
	return nil
}

// Create creates and returns the ExperienceReplayer with the specified
// Config. Samples are drawn uniformly at random using rng.
func (c Config) Create(rng randutils.Source) (ExperienceReplayer, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	sampler := NewUniformSelector(c.SampleSize, rng)

	return newDefaultCache(sampler, c.MaxReplayCapacity), nil
}

// ExperienceReplayer implements an experience replay buffer
type ExperienceReplayer interface {
	// Add adds a transition to the buffer, overwriting the oldest
	// transition if the buffer is full
	Add(t timestep.Transition)

	// Sample samples a batch of transitions from the buffer
	Sample() ([]timestep.Transition, error)

	// Len returns the current number of transitions in the buffer
	Len() int

	// MaxCapacity returns the maximum number of transitions stored
	MaxCapacity() int

	// MinCapacity returns the number of transitions required to be in
	// the buffer before the buffer can be sampled
	MinCapacity() int

	// BatchSize returns the number of samples returned by Sample()
	BatchSize() int

	// Contents returns the stored transitions, oldest first
	Contents() []timestep.Transition
}
