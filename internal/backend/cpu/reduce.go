package cpu

import (
	"github.com/pkg/errors"

	"github.com/born-ml/tapegrad/internal/tensor"
)

// SumAxes sums x over axes into out.
//
// out must have x's shape with every reduced axis set to 1 (keepdims), or
// that shape with the reduced axes removed. Both layouts hold the same
// elements in the same row-major order.
//
// The reduction runs sequentially in input order so results are
// deterministic across runs.
//
// Example:
//
//	x: (2, 3, 4), axes [0, 2]
//	out: (1, 3, 1) or (3,)
func (cpu *CPUBackend) SumAxes(x *tensor.RawTensor, axes []int, out *tensor.RawTensor) error {
	if err := tensor.CheckDTypes("sum", x, out); err != nil {
		return err
	}

	inShape := x.Shape()
	kept, err := keepDimsShape(inShape, axes)
	if err != nil {
		return err
	}
	if out.NumElements() != kept.NumElements() {
		return tensor.NewShapeMismatch("sum", kept, out.Shape())
	}
	kernelLaunches.WithLabelValues("sum").Inc()

	switch x.DType() {
	case tensor.Float32:
		sumAxes(tensor.Values[float32](x), tensor.Values[float32](out), inShape, kept)
	case tensor.Float64:
		sumAxes(tensor.Values[float64](x), tensor.Values[float64](out), inShape, kept)
	default:
		return errors.Errorf("sum: unsupported dtype %s", x.DType())
	}
	return nil
}

// keepDimsShape returns in with every axis in axes set to 1.
func keepDimsShape(in tensor.Shape, axes []int) (tensor.Shape, error) {
	kept := in.Clone()
	for _, a := range axes {
		ax, err := in.NormalizeAxis(a)
		if err != nil {
			return nil, errors.Wrap(err, "sum")
		}
		kept[ax] = 1
	}
	return kept, nil
}

func sumAxes[T tensor.DType](src, dst []T, in, kept tensor.Shape) {
	for i := range dst {
		dst[i] = 0
	}
	if len(in) == 0 {
		dst[0] = src[0]
		return
	}

	outStrides := kept.ComputeStrides()
	rank := len(in)
	idx := make([]int, rank)

	for _, v := range src {
		o := 0
		for d := 0; d < rank; d++ {
			if kept[d] != 1 {
				o += idx[d] * outStrides[d]
			}
		}
		dst[o] += v

		// Advance the row-major multi-index.
		for d := rank - 1; d >= 0; d-- {
			idx[d]++
			if idx[d] < in[d] {
				break
			}
			idx[d] = 0
		}
	}
}
