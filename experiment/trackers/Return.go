// Package trackers implements concrete tracker.Trackers
package trackers

import (
	"encoding/gob"
	"fmt"
	"os"
	"sort"

	"github.com/samuelfneumann/rlgov/governor"
)

// Return tracks and saves the return of the cores in an experiment.
// The governor's task is continuing, so the return is the cumulative
// reward of all ticks tracked so far. Ticks which did not learn carry
// no reward and are ignored.
//
// Note: Return keeps the total return after every tracked tick, which
// is the learning curve saved to disk.
type Return struct {
	returns  map[int]float64
	total    float64
	curve    []float64
	filename string
}

// NewReturn creates and returns a new *Return Tracker
func NewReturn(filename string) *Return {
	return &Return{
		returns:  make(map[int]float64),
		filename: filename,
	}
}

// Track adds the reward of a tick to the return of its core
func (r *Return) Track(res governor.Result) {
	if !res.Learned {
		return
	}
	r.returns[res.Core] += res.Reward
	r.total += res.Reward
	r.curve = append(r.curve, r.total)
}

// Return returns the return of core
func (r *Return) Return(core int) float64 {
	return r.returns[core]
}

// Filename returns the file the learning curve is saved to
func (r *Return) Filename() string {
	return r.filename
}

// Total returns the return summed over all cores
func (r *Return) Total() float64 {
	return r.total
}

// Cores returns the cores tracked so far in increasing order
func (r *Return) Cores() []int {
	cores := make([]int, 0, len(r.returns))
	for core := range r.returns {
		cores = append(cores, core)
	}
	sort.Ints(cores)
	return cores
}

// Save saves the data tracked by the Return Tracker to disk
func (r *Return) Save() error {
	return save(r.filename, r.curve)
}

// save gob-encodes data to filename
func save(filename string, data interface{}) error {
	// Open the file to save to
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("save: could not open save file: %w", err)
	}
	defer file.Close()

	// Encode and save the file
	en := gob.NewEncoder(file)
	if err = en.Encode(data); err != nil {
		return fmt.Errorf("save: could not encode data: %w", err)
	}
	return file.Close()
}
