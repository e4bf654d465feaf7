package environment

import (
	"fmt"
	"math"
	"time"

	"k8s.io/utils/clock"
)

// TaskType names a reward scheme
type TaskType string

const (
	Utilization TaskType = "utilization"
	Energy      TaskType = "energy"
)

// DefaultEnergyThreshold is the smallest energy difference for which
// EnergyEfficiency computes a non-zero reward
const DefaultEnergyThreshold = 1e-6

// ParseTaskType returns the TaskType named by s
func ParseTaskType(s string) (TaskType, error) {
	switch TaskType(s) {
	case Utilization, Energy:
		return TaskType(s), nil
	default:
		return "", fmt.Errorf("environment: unknown reward %q, want %q or %q",
			s, Utilization, Energy)
	}
}

// TaskConfig describes how to create the Task of each core
type TaskConfig struct {
	Type TaskType

	// Threshold is the energy guard of the Energy task. Zero selects
	// DefaultEnergyThreshold.
	Threshold float64
}

// Create returns a new Task for a single core. Any time keeping is done
// with clk.
func (c TaskConfig) Create(clk clock.PassiveClock) (Task, error) {
	switch c.Type {
	case Utilization:
		return UtilizationTracking{}, nil
	case Energy:
		threshold := c.Threshold
		if threshold == 0 {
			threshold = DefaultEnergyThreshold
		}
		return NewEnergyEfficiency(clk, threshold), nil
	default:
		return nil, fmt.Errorf("environment: cannot create task of type %q",
			c.Type)
	}
}

// UtilizationTracking rewards frequencies whose fraction of the maximum
// matches the observed utilization:
//
//	r = -|u - achieved/max|
type UtilizationTracking struct{}

// GetReward implements the Task interface
func (UtilizationTracking) GetReward(s Step) float64 {
	if s.Max == 0 {
		return 0
	}
	return -math.Abs(s.ObservedUtilization -
		float64(s.Achieved)/float64(s.Max))
}

// EnergyEfficiency rewards performance per unit of energy. Energy is
// approximated as frequency × elapsed time and is accumulated across
// calls, so an EnergyEfficiency must only ever score a single core.
//
//	energy = accumulated - cur*elapsed
//	r      = 100 * (next/cur) / energy - 50
//
// with elapsed in milliseconds since the previous reward. The reward is
// zero when |energy| falls below the threshold or cur is zero.
type EnergyEfficiency struct {
	clock      clock.PassiveClock
	threshold  float64
	lastUpdate time.Time
	consumed   float64
}

// NewEnergyEfficiency returns a new EnergyEfficiency whose first
// elapsed interval starts now
func NewEnergyEfficiency(clk clock.PassiveClock,
	threshold float64) *EnergyEfficiency {
	return &EnergyEfficiency{
		clock:      clk,
		threshold:  threshold,
		lastUpdate: clk.Now(),
	}
}

// GetReward implements the Task interface
func (e *EnergyEfficiency) GetReward(s Step) float64 {
	now := e.clock.Now()
	elapsed := float64(now.Sub(e.lastUpdate).Nanoseconds())
	e.lastUpdate = now

	used := float64(s.Current) * elapsed / 1e6
	energy := e.consumed - used
	e.consumed += used

	if s.Current == 0 || math.Abs(energy) < e.threshold {
		return 0
	}
	performance := float64(s.Achieved) / float64(s.Current)
	return 100*performance/energy - 50
}

// Consumed returns the energy accumulated so far
func (e *EnergyEfficiency) Consumed() float64 {
	return e.consumed
}
