// Package network implements the small feed forward networks used for
// function approximation. Networks are plain gonum matrices; there is
// no computational graph and no automatic differentiation.
package network

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/rlgov/initwfn"
	"github.com/samuelfneumann/rlgov/utils/randutils"
)

// MultiHeadMLP is a multi-layered perceptron with a single ReLU hidden
// layer and a linear output layer with one output node per head.
type MultiHeadMLP struct {
	hidden *FCLayer
	output *FCLayer
}

// NewMultiHeadMLP returns a new MultiHeadMLP with the given number of
// input features, hidden units and outputs. Every weight and bias is
// drawn from init.
func NewMultiHeadMLP(features, hiddenSize, outputs int,
	init *initwfn.InitWFn, rng randutils.Source) (*MultiHeadMLP, error) {
	hidden, err := NewFCLayer(features, hiddenSize, ReLU(), init, rng)
	if err != nil {
		return nil, fmt.Errorf("newMultiHeadMLP: hidden layer: %w", err)
	}

	output, err := NewFCLayer(hiddenSize, outputs, Identity(), init, rng)
	if err != nil {
		return nil, fmt.Errorf("newMultiHeadMLP: output layer: %w", err)
	}

	return &MultiHeadMLP{hidden: hidden, output: output}, nil
}

// Forward computes the output of the network for input. The returned
// slice has length Outputs() and is owned by the caller.
func (m *MultiHeadMLP) Forward(input []float64) ([]float64, error) {
	if len(input) != m.Features() {
		return nil, fmt.Errorf("forward: expected %d features but got %d",
			m.Features(), len(input))
	}
	h := m.hidden.Fwd(mat.NewVecDense(len(input), input))
	return m.output.Fwd(h).RawVector().Data, nil
}

// HiddenActivations returns relu(W·x + b) of the hidden layer for
// input
func (m *MultiHeadMLP) HiddenActivations(input []float64) ([]float64,
	error) {
	if len(input) != m.Features() {
		return nil, fmt.Errorf("hiddenActivations: expected %d features "+
			"but got %d", m.Features(), len(input))
	}
	return m.hidden.Fwd(mat.NewVecDense(len(input), input)).RawVector().Data,
		nil
}

// Hidden returns the hidden layer
func (m *MultiHeadMLP) Hidden() *FCLayer {
	return m.hidden
}

// Output returns the output layer
func (m *MultiHeadMLP) Output() *FCLayer {
	return m.output
}

// Features returns the number of input features
func (m *MultiHeadMLP) Features() int {
	return m.hidden.Inputs()
}

// HiddenSize returns the number of hidden units
func (m *MultiHeadMLP) HiddenSize() int {
	return m.hidden.Units()
}

// Outputs returns the number of outputs
func (m *MultiHeadMLP) Outputs() int {
	return m.output.Units()
}

// Clone returns a deep copy of the network
func (m *MultiHeadMLP) Clone() *MultiHeadMLP {
	return &MultiHeadMLP{hidden: m.hidden.Clone(), output: m.output.Clone()}
}

// Set sets the weights of the network to those of source. Both
// networks must have the same architecture.
func (m *MultiHeadMLP) Set(source *MultiHeadMLP) error {
	if m.Features() != source.Features() ||
		m.HiddenSize() != source.HiddenSize() ||
		m.Outputs() != source.Outputs() {
		return fmt.Errorf("set: cannot set weights of network with "+
			"architecture %v using network with architecture %v", m, source)
	}

	m.hidden.Set(source.hidden)
	m.output.Set(source.output)
	return nil
}

// IsFinite returns whether every weight and bias is finite
func (m *MultiHeadMLP) IsFinite() bool {
	return m.hidden.IsFinite() && m.output.IsFinite()
}

// String implements the fmt.Stringer interface
func (m *MultiHeadMLP) String() string {
	return fmt.Sprintf("MultiHeadMLP(%d → %d → %d)", m.Features(),
		m.HiddenSize(), m.Outputs())
}

// GobEncode implements the gob.GobEncoder interface
func (m *MultiHeadMLP) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	if err := enc.Encode(m.hidden); err != nil {
		return nil, fmt.Errorf("gobencode: could not encode hidden layer: %v",
			err)
	}
	if err := enc.Encode(m.output); err != nil {
		return nil, fmt.Errorf("gobencode: could not encode output layer: %v",
			err)
	}
	return buf.Bytes(), nil
}

// GobDecode implements the gob.GobDecoder interface
func (m *MultiHeadMLP) GobDecode(in []byte) error {
	dec := gob.NewDecoder(bytes.NewReader(in))

	hidden, output := &FCLayer{}, &FCLayer{}
	if err := dec.Decode(hidden); err != nil {
		return fmt.Errorf("gobdecode: could not decode hidden layer: %v", err)
	}
	if err := dec.Decode(output); err != nil {
		return fmt.Errorf("gobdecode: could not decode output layer: %v", err)
	}
	m.hidden, m.output = hidden, output
	return nil
}
