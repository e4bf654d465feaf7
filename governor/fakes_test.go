package governor

import (
	"context"
	"errors"
	"sync"

	"github.com/samuelfneumann/rlgov/agent"
	"github.com/samuelfneumann/rlgov/environment"
	"github.com/samuelfneumann/rlgov/timestep"
	"github.com/samuelfneumann/rlgov/utils/randutils"
)

var errUnavailable = errors.New("unavailable")

// fakeSensor returns fixed features. Calls listed in fail return
// errUnavailable, counting from 1.
type fakeSensor struct {
	mu       sync.Mutex
	features []float64
	calls    int
	fail     map[int]bool
	inactive map[int]bool
}

func newFakeSensor() *fakeSensor {
	return &fakeSensor{features: []float64{0.5, 0.5, 0.4, 0.3, 0.1}}
}

func (f *fakeSensor) SampleState(_ context.Context, _ int) ([]float64,
	error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	if f.fail[f.calls] {
		return nil, errUnavailable
	}
	out := make([]float64, timestep.StateDim)
	copy(out, f.features)
	return out, nil
}

func (f *fakeSensor) Activate(_ context.Context, core int) error {
	if f.inactive[core] {
		return errUnavailable
	}
	return nil
}

// fakeActuator achieves every requested target and records them
type fakeActuator struct {
	mu        sync.Mutex
	targets   []int
	relations []environment.Relation
	err       error
}

func (f *fakeActuator) ApplyFrequency(_ context.Context, _, target int,
	rel environment.Relation) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return 0, f.err
	}
	f.targets = append(f.targets, target)
	f.relations = append(f.relations, rel)
	return target, nil
}

func (f *fakeActuator) requested() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.targets...)
}

// stubConfig creates a stubValueFunction whose updates return err
type stubConfig struct {
	err error
}

func (c stubConfig) CreateValueFunction(randutils.Source) (agent.ValueFunction,
	error) {
	return &stubValueFunction{err: c.err}, nil
}

func (stubConfig) Validate() error  { return nil }
func (stubConfig) Type() agent.Type { return agent.QLearning }
func (stubConfig) Tabular() bool    { return true }

type stubValueFunction struct {
	err     error
	updates int
}

func (s *stubValueFunction) Estimate(timestep.State) []float64 {
	return make([]float64, 3)
}

func (s *stubValueFunction) Update(timestep.Transition) error {
	s.updates++
	return s.err
}

func (s *stubValueFunction) NumActions() int { return 3 }
