package trackers

import (
	"github.com/samuelfneumann/rlgov/governor"
)

// Outcomes counts how the ticks of an experiment ended. The counts are
// saved as a map from governor.Outcome to the number of ticks.
type Outcomes struct {
	counts   map[governor.Outcome]int
	filename string
}

// NewOutcomes returns a new Outcomes Tracker which will save its data
// at the specified location filename
func NewOutcomes(filename string) *Outcomes {
	return &Outcomes{
		counts:   make(map[governor.Outcome]int),
		filename: filename,
	}
}

// Track counts the outcome of a tick
func (o *Outcomes) Track(res governor.Result) {
	o.counts[res.Outcome]++
}

// Count returns the number of ticks which ended with outcome
func (o *Outcomes) Count(outcome governor.Outcome) int {
	return o.counts[outcome]
}

// Counts returns a copy of the counts of every outcome seen
func (o *Outcomes) Counts() map[governor.Outcome]int {
	counts := make(map[governor.Outcome]int, len(o.counts))
	for outcome, n := range o.counts {
		counts[outcome] = n
	}
	return counts
}

// Save saves the data tracked by the Outcomes Tracker to disk
func (o *Outcomes) Save() error {
	return save(o.filename, o.counts)
}
