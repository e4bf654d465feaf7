package initwfn

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/samuelfneumann/rlgov/utils/randutils"
)

// GlorotUConfig implements a configuration of the Glorot Uniform
// initialization algorithm.
type GlorotUConfig struct {
	Gain float64
}

// NewGlorotU returns a new Glorot Uniform weight initializer
func NewGlorotU(gain float64) (*InitWFn, error) {
	config := GlorotUConfig{
		Gain: gain,
	}

	return newInitWFn(config)
}

// Type returns the type of initialization algorithm described by
// the configuration.
func (g GlorotUConfig) Type() Type {
	return GlorotU
}

// Create returns the weight initialization algorithm. Weights are drawn
// from U(-l, l) with l = gain * sqrt(6 / (fanIn + fanOut)).
func (g GlorotUConfig) Create() Fn {
	return func(rng randutils.Source, n, fanIn, fanOut int) []float64 {
		limit := g.Gain * math.Sqrt(6/float64(fanIn+fanOut))
		dist := distuv.Uniform{Min: -limit, Max: limit}
		return quantiles(dist)(rng, n, fanIn, fanOut)
	}
}
