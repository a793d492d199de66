package ops

import (
	"github.com/pkg/errors"

	"github.com/born-ml/tapegrad/internal/tensor"
)

// Expand materializes x broadcast to shape. Backends never broadcast, so
// the dispatch layer expands operands with this before calling a kernel.
// If x already has shape, it is returned as a shared clone.
//
// Example:
//
//	x: (3, 1) = [[1], [2], [3]], shape (2, 3, 4)
//	→ every x[i] repeated 4 times along the last axis, twice along the first
func Expand(b tensor.Backend, x *tensor.RawTensor, shape tensor.Shape) (*tensor.RawTensor, error) {
	if x.Shape().Equal(shape) {
		return x.Clone(), nil
	}
	got, _, err := tensor.BroadcastShapes(x.Shape(), shape)
	if err != nil || !got.Equal(shape) {
		return nil, tensor.NewShapeMismatch("expand", x.Shape(), shape)
	}

	out, err := b.Alloc(shape, x.DType())
	if err != nil {
		return nil, err
	}

	inStrides := broadcastStrides(x.Shape(), shape)
	outStrides := shape.ComputeStrides()
	switch x.DType() {
	case tensor.Float32:
		expand(tensor.Values[float32](x), tensor.Values[float32](out), outStrides, inStrides)
	case tensor.Float64:
		expand(tensor.Values[float64](x), tensor.Values[float64](out), outStrides, inStrides)
	default:
		return nil, errors.Errorf("expand: unsupported dtype %s", x.DType())
	}
	return out, nil
}

func expand[T tensor.DType](src, dst []T, outStrides, inStrides []int) {
	for i := range dst {
		dst[i] = src[flatIndex(i, outStrides, inStrides)]
	}
}

// broadcastStrides computes strides for reading inShape as if it had
// outShape. Padded and size-1 axes get stride 0.
func broadcastStrides(inShape, outShape tensor.Shape) []int {
	strides := make([]int, len(outShape))
	offset := len(outShape) - len(inShape)
	orig := inShape.ComputeStrides()

	for i := range outShape {
		j := i - offset
		if j < 0 || inShape[j] == 1 {
			continue
		}
		strides[i] = orig[j]
	}
	return strides
}

// flatIndex maps a flat output index to the flat input index.
func flatIndex(outIdx int, outStrides, inStrides []int) int {
	flat := 0
	for i := range outStrides {
		coord := outIdx / outStrides[i]
		outIdx %= outStrides[i]
		flat += coord * inStrides[i]
	}
	return flat
}

// ReduceTo sums grad over the axes broadcasting expanded so the result has
// shape target. This is the backward of Expand: the gradient of an input
// always has the input's shape, never the broadcast shape.
//
// Example:
//
//	Forward: a(3, 1) + b(3, 4) -> c(3, 4)
//	Backward: grad_c(3, 4) -> grad_a(3, 1), summed along axis 1
func ReduceTo(b tensor.Backend, grad *tensor.RawTensor, target tensor.Shape) (*tensor.RawTensor, error) {
	if grad.Shape().Equal(target) {
		return grad, nil
	}
	axes := tensor.BroadcastAxes(target, grad.Shape())
	out, err := b.Alloc(target, grad.DType())
	if err != nil {
		return nil, err
	}
	if err := b.SumAxes(grad, axes, out); err != nil {
		return nil, err
	}
	return out, nil
}
