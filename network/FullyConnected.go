package network

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/rlgov/initwfn"
	"github.com/samuelfneumann/rlgov/utils/floatutils"
	"github.com/samuelfneumann/rlgov/utils/randutils"
)

// FCLayer implements a fully connected layer of a feed forward neural
// network. Row i of the weights together with element i of the bias
// make up unit i of the layer.
type FCLayer struct {
	weights *mat.Dense    // units x inputs
	bias    *mat.VecDense // units
	act     *Activation
}

// NewFCLayer returns a new fully connected layer with the given number
// of inputs and units. Weights and biases are both drawn from init.
func NewFCLayer(inputs, units int, act *Activation, init *initwfn.InitWFn,
	rng randutils.Source) (*FCLayer, error) {
	if inputs < 1 || units < 1 {
		return nil, fmt.Errorf("newFCLayer: need positive inputs (%d) and "+
			"units (%d)", inputs, units)
	}
	fn := init.InitWFn()

	return &FCLayer{
		weights: mat.NewDense(units, inputs, fn(rng, units*inputs, inputs,
			units)),
		bias: mat.NewVecDense(units, fn(rng, units, inputs, units)),
		act:  act,
	}, nil
}

// Fwd computes act(W·x + b)
func (f *FCLayer) Fwd(x mat.Vector) *mat.VecDense {
	out := mat.NewVecDense(f.Units(), nil)
	out.MulVec(f.weights, x)
	out.AddVec(out, f.bias)

	if !f.act.IsIdentity() {
		data := out.RawVector().Data
		for i := range data {
			data[i] = f.act.fwd(data[i])
		}
	}
	return out
}

// Units returns the number of units in the layer
func (f *FCLayer) Units() int {
	r, _ := f.weights.Dims()
	return r
}

// Inputs returns the input size of the layer
func (f *FCLayer) Inputs() int {
	_, c := f.weights.Dims()
	return c
}

// Weights returns the weight matrix of the layer. Changes to the
// returned matrix are reflected in the layer.
func (f *FCLayer) Weights() *mat.Dense {
	return f.weights
}

// Bias returns the bias vector of the layer. Changes to the returned
// vector are reflected in the layer.
func (f *FCLayer) Bias() *mat.VecDense {
	return f.bias
}

// Activation returns the activation of the layer
func (f *FCLayer) Activation() *Activation {
	return f.act
}

// Adjust adds step * g to every unit's weights and step to every
// unit's bias
func (f *FCLayer) Adjust(step float64, g mat.Vector) {
	ones := mat.NewVecDense(f.Units(), nil)
	for i := 0; i < f.Units(); i++ {
		ones.SetVec(i, 1)
	}
	f.weights.RankOne(f.weights, step, ones, g)
	floats.AddConst(step, f.bias.RawVector().Data)
}

// Clone returns a deep copy of the layer
func (f *FCLayer) Clone() *FCLayer {
	return &FCLayer{
		weights: mat.DenseCopyOf(f.weights),
		bias:    mat.VecDenseCopyOf(f.bias),
		act:     f.act,
	}
}

// Set copies the parameters of other into the layer. The layers must
// have the same shape.
func (f *FCLayer) Set(other *FCLayer) {
	f.weights.Copy(other.weights)
	f.bias.CopyVec(other.bias)
}

// IsFinite returns whether every parameter of the layer is finite
func (f *FCLayer) IsFinite() bool {
	return floatutils.AllFinite(f.weights.RawMatrix().Data) &&
		floatutils.AllFinite(f.bias.RawVector().Data)
}

// GobEncode implements the gob.GobEncoder interface
func (f *FCLayer) GobEncode() ([]byte, error) {
	weights, err := f.weights.MarshalBinary()
	if err != nil {
		return nil, err
	}
	bias, err := f.bias.MarshalBinary()
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	err = gob.NewEncoder(&buf).Encode(layerSnapshot{weights, bias, f.act})
	return buf.Bytes(), err
}

// GobDecode implements the gob.GobDecoder interface
func (f *FCLayer) GobDecode(data []byte) error {
	var s layerSnapshot
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return err
	}

	weights, bias := &mat.Dense{}, &mat.VecDense{}
	if err := weights.UnmarshalBinary(s.Weights); err != nil {
		return err
	}
	if err := bias.UnmarshalBinary(s.Bias); err != nil {
		return err
	}
	f.weights, f.bias, f.act = weights, bias, s.Activation
	return nil
}

type layerSnapshot struct {
	Weights    []byte
	Bias       []byte
	Activation *Activation
}
