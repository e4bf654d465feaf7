// Package policy implements ε-greedy action selection over any
// agent.ValueFunction, together with the schedules that drive ε
package policy

import (
	"fmt"

	"github.com/samuelfneumann/rlgov/agent"
	"github.com/samuelfneumann/rlgov/timestep"
	"github.com/samuelfneumann/rlgov/utils/floatutils"
	"github.com/samuelfneumann/rlgov/utils/randutils"
)

// EGreedy implements an ε-greedy policy. The only state it holds is ε
// itself, which is driven by its Schedule.
type EGreedy struct {
	epsilon  float64
	schedule Schedule
	rng      randutils.Source
}

// NewEGreedy constructs a new EGreedy policy whose ε starts at the
// schedule's initial value
func NewEGreedy(schedule Schedule, rng randutils.Source) (*EGreedy, error) {
	if schedule == nil {
		return nil, fmt.Errorf("policy: nil schedule")
	}
	if err := schedule.Validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		return nil, fmt.Errorf("policy: nil random source")
	}

	return &EGreedy{
		epsilon:  schedule.Initial(),
		schedule: schedule,
		rng:      rng,
	}, nil
}

// Epsilon returns the current ε
func (p *EGreedy) Epsilon() float64 {
	return p.epsilon
}

// Decay advances ε by one step of the schedule and returns the new ε
func (p *EGreedy) Decay() float64 {
	p.epsilon = p.schedule.Next(p.epsilon)
	return p.epsilon
}

// SelectAction selects an action from an ε-greedy policy. One uniform
// sample is drawn: below ε a uniformly random action is returned,
// otherwise the greedy action of vf in state s.
func (p *EGreedy) SelectAction(vf agent.ValueFunction,
	s timestep.State) int {
	if p.rng.Float64() < p.epsilon {
		return p.rng.Intn(vf.NumActions())
	}
	return Greedy(vf, s)
}

// Greedy returns the action with the largest estimated value in state
// s. Exact ties go to the lowest action index.
func Greedy(vf agent.ValueFunction, s timestep.State) int {
	return floatutils.Argmax(vf.Estimate(s))
}
