// Package environment outlines the interfaces a per-core controller
// uses to observe and act on a processing core, and implements the
// reward schemes used to score each action
package environment

import (
	"context"
	"fmt"
)

// Relation determines how an Actuator rounds a requested frequency to
// one the hardware supports
type Relation int

const (
	// AtLeast selects the lowest supported frequency at or above the
	// target
	AtLeast Relation = iota

	// Nearest selects the supported frequency closest to the target
	Nearest
)

// String implements the fmt.Stringer interface
func (r Relation) String() string {
	switch r {
	case AtLeast:
		return "at-least"
	case Nearest:
		return "nearest"
	default:
		return fmt.Sprintf("Relation(%d)", int(r))
	}
}

// Sensor samples the normalized feature vector of a core. The returned
// slice has timestep.StateDim elements, each in [0, 1].
type Sensor interface {
	SampleState(ctx context.Context, core int) ([]float64, error)
}

// Actuator requests a new operating frequency (in kHz) for a core and
// returns the frequency the core actually achieved
type Actuator interface {
	ApplyFrequency(ctx context.Context, core, target int,
		rel Relation) (int, error)
}

// Step describes a single actuation as seen by a Task
type Step struct {
	Core int

	// ObservedUtilization is the utilization reported by the periodic
	// trigger, in [0, 1]
	ObservedUtilization float64

	Current  int // Frequency before actuation, kHz
	Achieved int // Frequency after actuation, kHz
	Max      int // Maximum frequency of the core, kHz
}

// Task implements the reward scheme for taking actions on a core. A
// Task may keep state between calls and belongs to a single core.
type Task interface {
	GetReward(s Step) float64
}

// Activator is implemented by a Sensor or Actuator that must prepare a
// core before it can be governed. A core whose activation fails is not
// governed at all.
type Activator interface {
	Activate(ctx context.Context, core int) error
}
