// Package floatutils provides utilities for working with floats
package floatutils

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r1"
)

// Clip clips a floating point to within a minimum and maximum value.
// If the floating point exceeds max, then the function returns the max
// If min exceeds the floating point, then the function returns the min
func Clip(value, min, max float64) float64 {
	clipped := math.Min(value, max)
	return math.Max(clipped, min)
}

// ClipInterval is a wrapper to use Clip with an r1.Interval instead of
// a separate max and min value
func ClipInterval(value float64, interval r1.Interval) float64 {
	return Clip(value, interval.Min, interval.Max)
}

// Argmax returns the index of the largest value in values. Exact ties
// are broken in favour of the lowest index. Argmax panics if values is
// empty.
func Argmax(values []float64) int {
	return floats.MaxIdx(values)
}

// Max returns the largest value in values. Max panics if values is
// empty.
func Max(values []float64) float64 {
	return floats.Max(values)
}

// IsFinite returns whether x is neither NaN nor ±Inf
func IsFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

// AllFinite returns whether every element of values is finite
func AllFinite(values []float64) bool {
	for _, v := range values {
		if !IsFinite(v) {
			return false
		}
	}
	return true
}
