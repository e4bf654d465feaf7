package expreplay

import (
	"fmt"

	"github.com/samuelfneumann/rlgov/timestep"
)

// defaultCache implements a concrete ExperienceReplayer where elements
// are removed from the buffer in a FiFo manner, a single element at a
// time: once full, each Add overwrites the oldest slot of the ring.
//
// A defaultCache is owned by exactly one per-core learner and is not
// safe for concurrent use.
type defaultCache struct {
	slots           []timestep.Transition
	currentInUsePos int
	isFull          bool

	// Outlines how data is sampled
	sampler Selector
}

// newDefaultCache returns a new defaultCache holding at most
// maxCapacity transitions
func newDefaultCache(sampler Selector, maxCapacity int) *defaultCache {
	return &defaultCache{
		slots:           make([]timestep.Transition, maxCapacity),
		currentInUsePos: 0,
		isFull:          false,
		sampler:         sampler,
	}
}

// String returns the string representation of the defaultCache
func (d *defaultCache) String() string {
	return fmt.Sprintf("Replay | Len: %d  |  Max: %d  |  Next: %d", d.Len(),
		d.MaxCapacity(), d.currentInUsePos)
}

// BatchSize returns the number of samples sampled using Sample() -
// a.k.a the batch size
func (d *defaultCache) BatchSize() int {
	return d.sampler.BatchSize()
}

// Len returns the current number of elements in the defaultCache that
// are available for sampling
func (d *defaultCache) Len() int {
	if d.isFull {
		return d.MaxCapacity()
	}
	return d.currentInUsePos
}

// MaxCapacity returns the maximum number of elements that are allowed
// in the defaultCache
func (d *defaultCache) MaxCapacity() int {
	return len(d.slots)
}

// MinCapacity returns the minimum number of elements required in the
// defaultCache before sampling is allowed
func (d *defaultCache) MinCapacity() int {
	return d.BatchSize()
}

// Add adds a transition to the defaultCache. The transition's states
// are copied so that callers may reuse their feature slices.
func (d *defaultCache) Add(t timestep.Transition) {
	d.slots[d.currentInUsePos] = timestep.NewTransition(t.State, t.Action,
		t.Reward, t.NextState, t.Terminal)

	if !d.isFull && d.currentInUsePos+1 == d.MaxCapacity() {
		d.isFull = true
	}
	d.currentInUsePos = (d.currentInUsePos + 1) % d.MaxCapacity()
}

// Sample samples and returns a batch of transitions from the replay
// buffer
func (d *defaultCache) Sample() ([]timestep.Transition, error) {
	if d.Len() == 0 {
		return nil, &ExpReplayError{Op: "sample", Err: errEmptyCache}
	}
	if d.Len() < d.MinCapacity() {
		return nil, &ExpReplayError{Op: "sample", Err: errInsufficientSamples}
	}

	indices := d.sampler.choose(d.Len())
	batch := make([]timestep.Transition, len(indices))
	for i, index := range indices {
		batch[i] = d.slots[index]
	}
	return batch, nil
}

// Contents returns the transitions in the buffer in insertion order
func (d *defaultCache) Contents() []timestep.Transition {
	if !d.isFull {
		out := make([]timestep.Transition, d.currentInUsePos)
		copy(out, d.slots[:d.currentInUsePos])
		return out
	}

	out := make([]timestep.Transition, 0, d.MaxCapacity())
	out = append(out, d.slots[d.currentInUsePos:]...)
	out = append(out, d.slots[:d.currentInUsePos]...)
	return out
}
