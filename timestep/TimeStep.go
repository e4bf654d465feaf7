// Package timestep implements the states and transitions observed by a
// per-core controller on each tick
package timestep

import (
	"fmt"
)

// Indices of the features in a State's feature vector
const (
	Utilization = iota
	Frequency
	Temperature
	MemoryPressure
	IOWait

	// StateDim is the length of a State's feature vector
	StateDim
)

// State is the state of a single core as seen by a learner. Features
// holds the normalized feature vector (each component in [0, 1]) used
// by function approximation, while Bin holds the discretized frequency
// bin used by tabular learners.
type State struct {
	Features []float64
	Bin      int
}

// NewState returns a new State. The features are copied.
func NewState(features []float64, bin int) State {
	f := make([]float64, len(features))
	copy(f, features)
	return State{Features: f, Bin: bin}
}

// Clone returns a deep copy of the State
func (s State) Clone() State {
	return NewState(s.Features, s.Bin)
}

func (s State) String() string {
	return fmt.Sprintf("State | Bin: %d  |  Features: %.3f", s.Bin,
		s.Features)
}

// Transition packages together a single (s, a, r, s') transition.
// Transitions are created once per tick and never mutated afterwards.
type Transition struct {
	State     State
	Action    int
	Reward    float64
	NextState State
	Terminal  bool
}

// NewTransition returns a new Transition which owns copies of both
// states
func NewTransition(state State, action int, reward float64,
	nextState State, terminal bool) Transition {
	return Transition{
		State:     state.Clone(),
		Action:    action,
		Reward:    reward,
		NextState: nextState.Clone(),
		Terminal:  terminal,
	}
}

func (t Transition) String() string {
	str := "Transition | Action: %d  |  Reward: %.4f  |  Terminal: %v  |  " +
		"%v -> %v"
	return fmt.Sprintf(str, t.Action, t.Reward, t.Terminal, t.State,
		t.NextState)
}
