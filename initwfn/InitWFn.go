// Package initwfn implements weight initializers for the layers of a
// network. Each initializer is described by a small Config so that it
// can be chosen by name from a configuration file.
package initwfn

import (
	"fmt"

	"github.com/samuelfneumann/rlgov/utils/randutils"
)

// Type describes different types of InitWFn that are available.
// Type is used to implement a basic type system of InitWFn's.
type Type string

// Available InitWFn types
const (
	Uniform  Type = "uniform"
	GlorotU  Type = "glorotU"
	Zeroes   Type = "zeroes"
	Constant Type = "constant"
)

// Fn fills n weights of a layer with fanIn inputs and fanOut units,
// drawing any randomness from rng
type Fn func(rng randutils.Source, n, fanIn, fanOut int) []float64

// InitWFn wraps an Fn together with the Config that created it
type InitWFn struct {
	initWFn Fn
	Type
	Config
}

// newInitWFn returns a new InitWFn
func newInitWFn(c Config) (*InitWFn, error) {
	init := InitWFn{Type: c.Type(), Config: c}
	init.initWFn = init.Config.Create()

	return &init, nil
}

// InitWFn returns the wrapped initialization function
func (i *InitWFn) InitWFn() Fn {
	return i.initWFn
}

// String implements the fmt.Stringer interface
func (i *InitWFn) String() string {
	return fmt.Sprintf("{%v InitWFn: %v}", i.Type, i.Config)
}

// Parse returns the InitWFn named by t with its default parameters:
// Uniform(-1, 1), GlorotU(1), Zeroes and Constant(0)
func Parse(t string) (*InitWFn, error) {
	switch Type(t) {
	case Uniform:
		return NewUniform(-1, 1)
	case GlorotU:
		return NewGlorotU(1)
	case Zeroes:
		return NewZeroes()
	case Constant:
		return NewConstant(0)
	default:
		return nil, fmt.Errorf("initwfn: unknown initializer %q", t)
	}
}

// Config implements an initialization function configuration and can
// be used to create the described Fn
type Config interface {
	// Create returns the Fn that the Config describes
	Create() Fn

	// Type returns the type of Fn that is returned
	Type() Type
}
