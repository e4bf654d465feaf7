// Package agent defines the value function interface shared by every
// learning strategy a per-core controller can use
package agent

import (
	"encoding/gob"
	"errors"

	"github.com/samuelfneumann/rlgov/timestep"
	"github.com/samuelfneumann/rlgov/utils/randutils"
)

var (
	// ErrNonFinite reports that an update would have written a NaN or
	// infinite value into a table or weight. The update is discarded.
	ErrNonFinite = errors.New("agent: non-finite value in update")

	// ErrPartialUpdate reports that some, but not all, of the samples
	// of a batched update were applied. The value function did learn.
	ErrPartialUpdate = errors.New("agent: update partially applied")

	// ErrOutOfRange reports a state bin or action outside the bounds
	// of a value function
	ErrOutOfRange = errors.New("agent: state or action out of range")
)

// ValueFunction estimates the value of each action in a state and
// learns from observed transitions.
//
// A ValueFunction belongs to exactly one per-core controller and is not
// safe for concurrent use.
type ValueFunction interface {
	// Estimate returns the estimated value of each action in state s.
	// The returned slice is owned by the caller.
	Estimate(s timestep.State) []float64

	// Update learns from a single transition
	Update(t timestep.Transition) error

	// NumActions returns the number of actions the ValueFunction
	// estimates values for
	NumActions() int
}

// TargetRefresher is a ValueFunction which bootstraps off a lagging
// target copy of itself
type TargetRefresher interface {
	ValueFunction

	// RefreshTarget copies the live parameters into the target copy
	RefreshTarget()

	// TargetUpdateInterval returns the number of learned steps between
	// target refreshes
	TargetUpdateInterval() int
}

// Snapshotter is a ValueFunction whose learned parameters can be
// serialized and restored. Nothing in this module persists snapshots;
// the interface is the extension point for doing so.
type Snapshotter interface {
	ValueFunction
	gob.GobEncoder
	gob.GobDecoder
}

// Config represents a configuration for creating a ValueFunction
type Config interface {
	// CreateValueFunction creates the ValueFunction that the Config
	// describes. Any randomness (weight initialization, coin flips,
	// replay sampling) is drawn from rng.
	CreateValueFunction(rng randutils.Source) (ValueFunction, error)

	// Validate returns an error describing whether or not the
	// configuration is valid
	Validate() error

	// Type returns the type of ValueFunction created by the Config
	Type() Type

	// Tabular returns whether the ValueFunction indexes states by
	// their discretized bin rather than their features
	Tabular() bool
}
