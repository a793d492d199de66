package nn

import (
	"github.com/born-ml/tapegrad/internal/autodiff"
	"github.com/born-ml/tapegrad/internal/tensor"
)

// Parameter is a named trainable tensor.
//
// Its tensor is normally untracked: gradients reach it because every input
// of a recorded op receives one, keyed by the parameter's id. Optimizers
// update the storage in place; the id never changes.
//
// Example:
//
//	grads, _ := autodiff.Backward(loss)
//	dw, ok := autodiff.GradOf(grads, layer.Weight().Tensor())
type Parameter[T tensor.DType, B tensor.Backend] struct {
	name   string
	tensor *autodiff.Tensor[T, B]
}

// NewParameter wraps t as a trainable parameter.
func NewParameter[T tensor.DType, B tensor.Backend](name string, t *autodiff.Tensor[T, B]) *Parameter[T, B] {
	return &Parameter[T, B]{name: name, tensor: t}
}

// Name returns the parameter name.
func (p *Parameter[T, B]) Name() string {
	return p.name
}

// Tensor returns the parameter tensor.
func (p *Parameter[T, B]) Tensor() *autodiff.Tensor[T, B] {
	return p.tensor
}

// ID returns the id gradients for this parameter are stored under.
func (p *Parameter[T, B]) ID() tensor.UniqueID {
	return p.tensor.ID()
}

// prefixed returns params with prefix added to each name.
func prefixed[T tensor.DType, B tensor.Backend](prefix string, params []*Parameter[T, B]) []*Parameter[T, B] {
	out := make([]*Parameter[T, B], len(params))
	for i, p := range params {
		out[i] = NewParameter(prefix+"."+p.name, p.tensor)
	}
	return out
}
