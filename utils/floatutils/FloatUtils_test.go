package floatutils

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/spatial/r1"
)

func TestClipInterval(t *testing.T) {
	interval := r1.Interval{Min: 800000, Max: 2000000}

	assert.Equal(t, 1500000.0, ClipInterval(1500000, interval))
	assert.Equal(t, 2000000.0, ClipInterval(2200000, interval))
	assert.Equal(t, 800000.0, ClipInterval(500000, interval))
}

func TestArgmaxTieBreak(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   int
	}{
		{"all equal", []float64{0, 0, 0}, 0},
		{"later tie", []float64{-1, 3, 3, 2}, 1},
		{"single", []float64{5}, 0},
		{"last max", []float64{-3, -2, -1}, 2},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.want, Argmax(test.values))
		})
	}
}

func TestAllFinite(t *testing.T) {
	assert.True(t, AllFinite([]float64{0, -1, 1e300}))
	assert.False(t, AllFinite([]float64{0, math.NaN()}))
	assert.False(t, AllFinite([]float64{math.Inf(-1)}))
}
