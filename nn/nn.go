// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"math/rand"

	"github.com/born-ml/tapegrad/autodiff"
	"github.com/born-ml/tapegrad/internal/nn"
	"github.com/born-ml/tapegrad/tensor"
)

// Module is the contract of every layer: a fallible forward pass.
type Module[In, Out any] = nn.Module[In, Out]

// TensorModule maps a tensor to a tensor and exposes its parameters.
type TensorModule[T tensor.DType, B tensor.Backend] = nn.TensorModule[T, B]

// Parameter is a named trainable tensor.
type Parameter[T tensor.DType, B tensor.Backend] = nn.Parameter[T, B]

// NewParameter wraps t as a trainable parameter.
func NewParameter[T tensor.DType, B tensor.Backend](name string, t *autodiff.Tensor[T, B]) *Parameter[T, B] {
	return nn.NewParameter(name, t)
}

// Xavier draws a tensor from the Glorot uniform distribution.
func Xavier[T tensor.DType, B tensor.Backend](fanIn, fanOut int, shape tensor.Shape, rng *rand.Rand, backend B) (*autodiff.Tensor[T, B], error) {
	return nn.Xavier[T](fanIn, fanOut, shape, rng, backend)
}

// Layers

// Linear represents a fully connected layer.
type Linear[T tensor.DType, B tensor.Backend] = nn.Linear[T, B]

// NewLinear creates a linear layer with Xavier weights and zero bias.
//
// Example:
//
//	layer, err := nn.NewLinear[float32](784, 128, rng, backend)
func NewLinear[T tensor.DType, B tensor.Backend](inFeatures, outFeatures int, rng *rand.Rand, backend B) (*Linear[T, B], error) {
	return nn.NewLinear[T](inFeatures, outFeatures, rng, backend)
}

// NewLinearFrom builds a linear layer around existing [in, out] weight and [out] bias.
func NewLinearFrom[T tensor.DType, B tensor.Backend](weight, bias *Parameter[T, B]) (*Linear[T, B], error) {
	return nn.NewLinearFrom(weight, bias)
}

// LSTM is a single long short-term memory cell.
type LSTM[T tensor.DType, B tensor.Backend] = nn.LSTM[T, B]

// LSTMState is the cell and hidden state carried between steps.
type LSTMState[T tensor.DType, B tensor.Backend] = nn.LSTMState[T, B]

// LSTMInput bundles one step's input with the previous state.
type LSTMInput[T tensor.DType, B tensor.Backend] = nn.LSTMInput[T, B]

// NewLSTM creates an LSTM cell.
func NewLSTM[T tensor.DType, B tensor.Backend](inSize, hiddenSize int, rng *rand.Rand, backend B) (*LSTM[T, B], error) {
	return nn.NewLSTM[T](inSize, hiddenSize, rng, backend)
}

// Sequential chains tensor modules.
type Sequential[T tensor.DType, B tensor.Backend] = nn.Sequential[T, B]

// NewSequential creates a Sequential container.
func NewSequential[T tensor.DType, B tensor.Backend](modules ...TensorModule[T, B]) *Sequential[T, B] {
	return nn.NewSequential(modules...)
}

// Activations

// Ln applies the natural logarithm.
type Ln[T tensor.DType, B tensor.Backend] = nn.Ln[T, B]

// Tanh applies the hyperbolic tangent.
type Tanh[T tensor.DType, B tensor.Backend] = nn.Tanh[T, B]

// Sigmoid applies the logistic function.
type Sigmoid[T tensor.DType, B tensor.Backend] = nn.Sigmoid[T, B]

// ReLU applies max(x, 0).
type ReLU[T tensor.DType, B tensor.Backend] = nn.ReLU[T, B]
