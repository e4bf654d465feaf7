package initwfn

import (
	"fmt"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/samuelfneumann/rlgov/utils/randutils"
)

// UniformConfig implements a configuration of a weight initializer
// that draws weights from a uniform distribution
type UniformConfig struct {
	Low, High float64
}

// NewUniform returns a new uniform weight initializer
func NewUniform(low, high float64) (*InitWFn, error) {
	if low > high {
		return nil, fmt.Errorf("initwfn: uniform low (%v) > high (%v)", low,
			high)
	}
	config := UniformConfig{
		Low:  low,
		High: high,
	}

	return newInitWFn(config)
}

// Type returns the type of initialization algorithm described by
// the configuration.
func (u UniformConfig) Type() Type {
	return Uniform
}

// Create returns the weight initialization algorithm
func (u UniformConfig) Create() Fn {
	return quantiles(distuv.Uniform{Min: u.Low, Max: u.High})
}

// quantiler is a distribution with an inverse CDF
type quantiler interface {
	Quantile(p float64) float64
}

// quantiles returns an Fn which samples dist by inverse transform
// sampling of uniform draws from the random source
func quantiles(dist quantiler) Fn {
	return func(rng randutils.Source, n, _, _ int) []float64 {
		weights := make([]float64, n)
		for i := range weights {
			weights[i] = dist.Quantile(rng.Float64())
		}
		return weights
	}
}
