package nn

import (
	"github.com/born-ml/tapegrad/internal/autodiff"
	"github.com/born-ml/tapegrad/internal/tensor"
)

// Ln applies the natural logarithm element-wise.
type Ln[T tensor.DType, B tensor.Backend] struct{}

// TryForward returns ln(x).
func (Ln[T, B]) TryForward(x *autodiff.Tensor[T, B]) (*autodiff.Tensor[T, B], error) {
	return x.TryLn()
}

// Parameters returns nil.
func (Ln[T, B]) Parameters() []*Parameter[T, B] { return nil }

// Tanh applies the hyperbolic tangent element-wise.
type Tanh[T tensor.DType, B tensor.Backend] struct{}

// TryForward returns tanh(x).
func (Tanh[T, B]) TryForward(x *autodiff.Tensor[T, B]) (*autodiff.Tensor[T, B], error) {
	return x.TryTanh()
}

// Parameters returns nil.
func (Tanh[T, B]) Parameters() []*Parameter[T, B] { return nil }

// Sigmoid applies 1 / (1 + e^-x) element-wise.
type Sigmoid[T tensor.DType, B tensor.Backend] struct{}

// TryForward returns sigmoid(x).
func (Sigmoid[T, B]) TryForward(x *autodiff.Tensor[T, B]) (*autodiff.Tensor[T, B], error) {
	return x.TrySigmoid()
}

// Parameters returns nil.
func (Sigmoid[T, B]) Parameters() []*Parameter[T, B] { return nil }

// ReLU applies max(x, 0) element-wise.
type ReLU[T tensor.DType, B tensor.Backend] struct{}

// TryForward returns relu(x).
func (ReLU[T, B]) TryForward(x *autodiff.Tensor[T, B]) (*autodiff.Tensor[T, B], error) {
	return x.TryReLU()
}

// Parameters returns nil.
func (ReLU[T, B]) Parameters() []*Parameter[T, B] { return nil }
