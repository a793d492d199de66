// Package nn implements layer modules on top of the autodiff core.
//
// This package provides:
//   - Module: the TryForward contract every layer satisfies
//   - Parameter: a named trainable tensor
//   - Linear: fully connected layer
//   - LSTM: long short-term memory cell
//   - Activations: Ln, Tanh, Sigmoid, ReLU
//   - Sequential: a chain of tensor-to-tensor modules
//
// Modules are built only from the fallible Try* ops and never panic on a
// shape mismatch; errors are returned to the caller.
package nn

import (
	"github.com/born-ml/tapegrad/internal/autodiff"
	"github.com/born-ml/tapegrad/internal/tensor"
)

// Module is the contract of every layer: a fallible forward pass.
//
// In and Out are usually tensors, but stateful layers such as LSTM take
// and return a state bundle.
type Module[In, Out any] interface {
	TryForward(input In) (Out, error)
}

// TensorModule maps a tensor to a tensor and exposes its parameters.
type TensorModule[T tensor.DType, B tensor.Backend] interface {
	Module[*autodiff.Tensor[T, B], *autodiff.Tensor[T, B]]

	// Parameters returns all trainable parameters of this module, or nil
	// for modules without any.
	Parameters() []*Parameter[T, B]
}
