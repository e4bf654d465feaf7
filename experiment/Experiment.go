// Package experiment implements functionality for driving the governor
// of a set of cores, either for a fixed number of ticks against a
// simulated plant or periodically against real hardware
package experiment

import (
	"context"
	"sync"

	"go.uber.org/multierr"

	"github.com/samuelfneumann/rlgov/experiment/tracker"
	"github.com/samuelfneumann/rlgov/governor"
)

// Interface Experiment outlines structs that can run experiments.
// Experiments tick every active core of a governor.Registry and send
// each governor.Result to their Trackers, which cache the data they
// need in RAM. The Save() function then saves all cached data to disk.
// This is usually performed after an experiment has been run.
type Experiment interface {
	// Run ticks every core until the experiment ends or ctx is done
	Run(ctx context.Context) error

	// Save all tracked data to disk
	Save() error

	// Adds a new tracker.Tracker to the (possibly already running)
	// experiment. Useful if you want to track data only after a
	// specified event.
	Register(t tracker.Tracker)
}

// DescriptorSource describes the current operating point of a core. It
// plays the role of the periodic trigger of a kernel governor.
type DescriptorSource interface {
	Descriptor(ctx context.Context, core int) (governor.Descriptor, error)
}

// Advancer is implemented by descriptor sources whose workload moves
// forward in discrete steps, such as a simulated plant. Advance is
// called once after every tick of core.
type Advancer interface {
	Advance(core int)
}

// Progress is notified after every tick of an Online experiment
type Progress interface {
	Increment()
	Display()
}

// trackerSet fans tick results out to a set of Trackers. Cores tick
// concurrently, so tracking is serialized.
type trackerSet struct {
	mu       sync.Mutex
	trackers []tracker.Tracker
}

// Register registers a Tracker so that data generated during the
// experiment can be tracked and saved
func (t *trackerSet) Register(tr tracker.Tracker) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.trackers = append(t.trackers, tr)
}

// track caches the data of a tick in each Tracker
func (t *trackerSet) track(res governor.Result) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, tr := range t.trackers {
		tr.Track(res)
	}
}

// Save saves the data cached by every Tracker, even if some of them
// fail
func (t *trackerSet) Save() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	var errs error
	for _, tr := range t.trackers {
		errs = multierr.Append(errs, tr.Save())
	}
	return errs
}
