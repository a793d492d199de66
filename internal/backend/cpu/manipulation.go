package cpu

import (
	"github.com/pkg/errors"

	"github.com/born-ml/tapegrad/internal/tensor"
)

// Concat joins inputs along axis into out.
//
// All inputs must share dtype, rank and every axis except axis. Supports
// negative axis indexing (-1 = last axis).
//
// Example:
//
//	inputs: (2, 3), (2, 5), axis 1
//	out:    (2, 8)
func (cpu *CPUBackend) Concat(inputs []*tensor.RawTensor, axis int, out *tensor.RawTensor) error {
	if len(inputs) == 0 {
		return errors.Wrap(tensor.ErrShapeMismatch, "concat: no inputs")
	}
	if err := tensor.CheckDTypes("concat", append([]*tensor.RawTensor{out}, inputs...)...); err != nil {
		return err
	}

	shapes := make([]tensor.Shape, len(inputs))
	for i, in := range inputs {
		shapes[i] = in.Shape()
	}
	want, err := tensor.ConcatShapes(axis, shapes...)
	if err != nil {
		return err
	}
	if !out.Shape().Equal(want) {
		return tensor.NewShapeMismatch("concat", want, out.Shape())
	}
	ax, _ := want.NormalizeAxis(axis)
	kernelLaunches.WithLabelValues("concat").Inc()

	outer, inner := blockSizes(want, ax, out.DType().Size())
	dst := out.Data()
	rowBytes := want[ax] * inner

	offset := 0
	for _, in := range inputs {
		src := in.Data()
		chunk := in.Shape()[ax] * inner
		for o := 0; o < outer; o++ {
			copy(dst[o*rowBytes+offset:], src[o*chunk:(o+1)*chunk])
		}
		offset += chunk
	}
	return nil
}

// Split is the inverse of Concat: it copies consecutive slices of x along
// axis into outs, whose sizes along axis must sum to x's.
func (cpu *CPUBackend) Split(x *tensor.RawTensor, axis int, outs []*tensor.RawTensor) error {
	if len(outs) == 0 {
		return errors.Wrap(tensor.ErrShapeMismatch, "split: no outputs")
	}
	if err := tensor.CheckDTypes("split", append([]*tensor.RawTensor{x}, outs...)...); err != nil {
		return err
	}

	shapes := make([]tensor.Shape, len(outs))
	for i, o := range outs {
		shapes[i] = o.Shape()
	}
	joined, err := tensor.ConcatShapes(axis, shapes...)
	if err != nil {
		return err
	}
	if !joined.Equal(x.Shape()) {
		return tensor.NewShapeMismatch("split", x.Shape(), joined)
	}
	ax, _ := joined.NormalizeAxis(axis)
	kernelLaunches.WithLabelValues("split").Inc()

	outer, inner := blockSizes(joined, ax, x.DType().Size())
	src := x.Data()
	rowBytes := joined[ax] * inner

	offset := 0
	for _, dstT := range outs {
		dst := dstT.Data()
		chunk := dstT.Shape()[ax] * inner
		for o := 0; o < outer; o++ {
			copy(dst[o*chunk:(o+1)*chunk], src[o*rowBytes+offset:])
		}
		offset += chunk
	}
	return nil
}

// blockSizes returns the number of outer blocks before axis and the byte
// size of one index step along axis.
func blockSizes(shape tensor.Shape, axis, elemSize int) (outer, inner int) {
	outer = 1
	for _, d := range shape[:axis] {
		outer *= d
	}
	inner = elemSize
	for _, d := range shape[axis+1:] {
		inner *= d
	}
	return outer, inner
}
