package initwfn

import (
	"github.com/samuelfneumann/rlgov/utils/randutils"
)

// ConstantConfig implements a configuration of a weight initializer
// that initializes all weights to a constant value.
type ConstantConfig struct {
	Value float64
}

// NewConstant returns a new constant weight intializer
func NewConstant(value float64) (*InitWFn, error) {
	config := ConstantConfig{value}

	return newInitWFn(config)
}

// NewZeroes returns a new zeroes weight intializer
func NewZeroes() (*InitWFn, error) {
	init, err := NewConstant(0)
	if err != nil {
		return nil, err
	}
	init.Type = Zeroes
	return init, nil
}

// Type returns the type of initialization algorithm described by
// the configuration.
func (c ConstantConfig) Type() Type {
	return Constant
}

// Create returns the weight initialization algorithm
func (c ConstantConfig) Create() Fn {
	return func(_ randutils.Source, n, _, _ int) []float64 {
		weights := make([]float64, n)
		for i := range weights {
			weights[i] = c.Value
		}
		return weights
	}
}
