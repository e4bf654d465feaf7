package network

import (
	"fmt"
	"math"
)

type activationType string

const (
	relu     activationType = "relu"
	identity activationType = "identity"
)

// Activation represents an elementwise activation function
type Activation struct {
	activationType
	f func(x float64) float64
}

// fwd applies the Activation to x
func (a *Activation) fwd(x float64) float64 {
	return a.f(x)
}

// String implements the Stringer interface
func (a *Activation) String() string {
	return string(a.activationType)
}

// IsIdentity returns whether or not the Activation is the identity
// function.
func (a *Activation) IsIdentity() bool {
	return a.activationType == identity
}

// GobEncode implements the GobEncoder interface
func (a *Activation) GobEncode() ([]byte, error) {
	return []byte(a.activationType), nil
}

// GobDecode implements the GobDecoder interface
func (a *Activation) GobDecode(encoded []byte) error {
	switch activationType(encoded) {
	case relu:
		*a = *ReLU()
	case identity:
		*a = *Identity()
	default:
		return fmt.Errorf("gobdecode: no such activation %q", encoded)
	}
	return nil
}

// ReLU returns the rectified linear activation max(0, x)
func ReLU() *Activation {
	return &Activation{activationType: relu, f: Rectify}
}

// Identity returns the identity activation
func Identity() *Activation {
	return &Activation{activationType: identity, f: func(x float64) float64 {
		return x
	}}
}

// Rectify computes max(0, x)
func Rectify(x float64) float64 {
	return math.Max(0, x)
}
