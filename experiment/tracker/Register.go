package tracker

import (
	"github.com/samuelfneumann/rlgov/governor"
)

// registeredTracker registers a core with some Tracker so that the
// Tracker tracks data from the registered core only. registeredTracker
// itself is a Tracker.
//
// The Save() method of a register calls that of the embedded Tracker.
// The only difference is that registeredTracker drops the results of
// every other core before they reach the embedded Tracker.
//
// This may be useful if an experiment governs many cores but the data
// of a single core is needed, for example to save the learning curve
// of each core to its own file.
type registeredTracker struct {
	Tracker
	core int
}

// Register registers a new Tracker with a core, to track data from the
// registered core only.
//
// Note: the underlying concrete type of the registered Tracker is
// lost when registering a core with a Tracker.
func Register(t Tracker, core int) Tracker {
	return &registeredTracker{t, core}
}

// Track calls Track() on the embedded Tracker if res belongs to the
// registered core
func (r *registeredTracker) Track(res governor.Result) {
	if res.Core != r.core {
		return
	}
	r.Tracker.Track(res)
}
