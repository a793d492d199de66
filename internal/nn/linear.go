package nn

import (
	"math/rand"

	"github.com/born-ml/tapegrad/internal/autodiff"
	"github.com/born-ml/tapegrad/internal/tensor"
)

// Linear implements a fully connected layer: y = x @ W + b.
//
// Shapes:
//   - x: [in] or [batch, in]
//   - W: [in, out]
//   - b: [out], broadcast over the batch
//   - y: [out] or [batch, out]
//
// Example:
//
//	layer, err := nn.NewLinear[float32](784, 128, rng, backend)
//	y, err := layer.TryForward(x) // x: [32, 784] → y: [32, 128]
type Linear[T tensor.DType, B tensor.Backend] struct {
	inFeatures  int
	outFeatures int
	weight      *Parameter[T, B]
	bias        *Parameter[T, B]
}

// NewLinear creates a Linear layer with Xavier weights and zero bias.
func NewLinear[T tensor.DType, B tensor.Backend](inFeatures, outFeatures int, rng *rand.Rand, backend B) (*Linear[T, B], error) {
	w, err := Xavier[T](inFeatures, outFeatures, tensor.Shape{inFeatures, outFeatures}, rng, backend)
	if err != nil {
		return nil, err
	}
	bias, err := autodiff.Zeros[T](tensor.Shape{outFeatures}, backend)
	if err != nil {
		return nil, err
	}
	return NewLinearFrom(NewParameter("weight", w), NewParameter("bias", bias))
}

// NewLinearFrom builds a Linear layer around existing parameters.
// weight must be [in, out] and bias [out].
func NewLinearFrom[T tensor.DType, B tensor.Backend](weight, bias *Parameter[T, B]) (*Linear[T, B], error) {
	ws, bs := weight.Tensor().Shape(), bias.Tensor().Shape()
	if ws.Rank() != 2 || bs.Rank() != 1 || ws[1] != bs[0] {
		return nil, tensor.NewShapeMismatch("linear", ws, bs)
	}
	return &Linear[T, B]{
		inFeatures:  ws[0],
		outFeatures: ws[1],
		weight:      weight,
		bias:        bias,
	}, nil
}

// TryForward computes x @ W + b.
func (l *Linear[T, B]) TryForward(x *autodiff.Tensor[T, B]) (*autodiff.Tensor[T, B], error) {
	shape := x.Shape()
	vector := shape.Rank() == 1
	if vector {
		var err error
		if x, err = x.TryReshape(tensor.Shape{1, shape[0]}); err != nil {
			return nil, err
		}
	}

	y, err := x.TryMatMul(l.weight.Tensor())
	if err != nil {
		return nil, err
	}
	if y, err = y.TryAdd(l.bias.Tensor()); err != nil {
		return nil, err
	}
	if vector {
		return y.TryReshape(tensor.Shape{l.outFeatures})
	}
	return y, nil
}

// Weight returns the [in, out] weight parameter.
func (l *Linear[T, B]) Weight() *Parameter[T, B] {
	return l.weight
}

// Bias returns the [out] bias parameter.
func (l *Linear[T, B]) Bias() *Parameter[T, B] {
	return l.bias
}

// InFeatures returns the input width.
func (l *Linear[T, B]) InFeatures() int {
	return l.inFeatures
}

// OutFeatures returns the output width.
func (l *Linear[T, B]) OutFeatures() int {
	return l.outFeatures
}

// Parameters returns the weight and bias.
func (l *Linear[T, B]) Parameters() []*Parameter[T, B] {
	return []*Parameter[T, B]{l.weight, l.bias}
}
