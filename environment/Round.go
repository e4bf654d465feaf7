package environment

import (
	"sort"
)

// Round returns the frequency of available that satisfies rel for
// target. available must be non-empty and sorted in increasing order.
// A target above every available frequency yields the largest one.
func Round(available []int, target int, rel Relation) int {
	i := sort.SearchInts(available, target)
	if i == len(available) {
		return available[len(available)-1]
	}
	if available[i] == target || rel == AtLeast || i == 0 {
		return available[i]
	}

	below, above := available[i-1], available[i]
	if target-below <= above-target {
		return below
	}
	return above
}

// Steps returns the frequencies from min to max (inclusive) in
// increments of step. max is always included.
func Steps(min, max, step int) []int {
	if step <= 0 || max < min {
		return []int{min}
	}
	var out []int
	for f := min; f < max; f += step {
		out = append(out, f)
	}
	return append(out, max)
}
