package ops

import (
	"github.com/pkg/errors"

	"github.com/born-ml/tapegrad/internal/tensor"
)

// Backward computes the gradient contribution of r to each of its inputs.
//
// gradOuts has one entry per output id; a nil entry means that output
// received no gradient and is treated as zero. The result has one entry per
// input, each with that input's original shape.
func Backward(b tensor.Backend, r *Record, gradOuts []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if len(gradOuts) != len(r.Outputs) {
		return nil, errors.Errorf("%s backward: got %d output gradients for %d outputs",
			r.Name(), len(gradOuts), len(r.Outputs))
	}

	switch r.Kind {
	case KindUnary:
		return unaryBackward(b, r, gradOuts[0])
	case KindBinary:
		return binaryBackward(b, r, gradOuts[0])
	case KindSum:
		return sumBackward(b, r, gradOuts[0])
	case KindMatMul:
		return matmulBackward(b, r, gradOuts[0])
	case KindReshape:
		return reshapeBackward(r, gradOuts[0])
	case KindBroadcast:
		g, err := ReduceTo(b, gradOuts[0], r.InputShapes[0])
		if err != nil {
			return nil, err
		}
		return []*tensor.RawTensor{g}, nil
	case KindConcat:
		return concatBackward(b, r, gradOuts[0])
	case KindSplit:
		return splitBackward(b, r, gradOuts)
	default:
		return nil, errors.Errorf("backward: unknown record kind %d", r.Kind)
	}
}

func unaryBackward(b tensor.Backend, r *Record, g *tensor.RawTensor) ([]*tensor.RawTensor, error) {
	x := r.Saved[0]
	gin, err := b.Alloc(x.Shape(), x.DType())
	if err != nil {
		return nil, err
	}
	if err := b.UnaryBackward(r.Unary, x, g, gin); err != nil {
		return nil, err
	}
	return []*tensor.RawTensor{gin}, nil
}

// binaryBackward computes both partials at the broadcast shape, then sums
// each back to its input's original shape.
func binaryBackward(b tensor.Backend, r *Record, g *tensor.RawTensor) ([]*tensor.RawTensor, error) {
	x, y := r.Saved[0], r.Saved[1]
	gx, err := b.Alloc(x.Shape(), x.DType())
	if err != nil {
		return nil, err
	}
	gy, err := b.Alloc(y.Shape(), y.DType())
	if err != nil {
		return nil, err
	}
	if err := b.BinaryBackward(r.Binary, x, y, g, gx, gy); err != nil {
		return nil, err
	}

	if gx, err = ReduceTo(b, gx, r.InputShapes[0]); err != nil {
		return nil, err
	}
	if gy, err = ReduceTo(b, gy, r.InputShapes[1]); err != nil {
		return nil, err
	}
	return []*tensor.RawTensor{gx, gy}, nil
}

// sumBackward broadcasts the reduced gradient back over the summed axes.
func sumBackward(b tensor.Backend, r *Record, g *tensor.RawTensor) ([]*tensor.RawTensor, error) {
	in := r.InputShapes[0]
	kept := in.Clone()
	for _, ax := range r.Axes {
		kept[ax] = 1
	}
	view, err := g.View(kept)
	if err != nil {
		return nil, err
	}
	defer view.Release()

	gin, err := Expand(b, view, in)
	if err != nil {
		return nil, err
	}
	return []*tensor.RawTensor{gin}, nil
}

func matmulBackward(b tensor.Backend, r *Record, g *tensor.RawTensor) ([]*tensor.RawTensor, error) {
	a, m := r.Saved[0], r.Saved[1]

	ga, err := b.Alloc(a.Shape(), a.DType())
	if err != nil {
		return nil, err
	}
	if err := b.MatMul(g, m, ga, false, true); err != nil {
		return nil, err
	}

	gm, err := b.Alloc(m.Shape(), m.DType())
	if err != nil {
		return nil, err
	}
	if err := b.MatMul(a, g, gm, true, false); err != nil {
		return nil, err
	}
	return []*tensor.RawTensor{ga, gm}, nil
}

func reshapeBackward(r *Record, g *tensor.RawTensor) ([]*tensor.RawTensor, error) {
	gin, err := g.View(r.InputShapes[0])
	if err != nil {
		return nil, err
	}
	return []*tensor.RawTensor{gin}, nil
}

func concatBackward(b tensor.Backend, r *Record, g *tensor.RawTensor) ([]*tensor.RawTensor, error) {
	grads := make([]*tensor.RawTensor, len(r.InputShapes))
	for i, s := range r.InputShapes {
		gi, err := b.Alloc(s, g.DType())
		if err != nil {
			return nil, err
		}
		grads[i] = gi
	}
	if err := b.Split(g, r.Axes[0], grads); err != nil {
		return nil, err
	}
	return grads, nil
}

// splitBackward joins the output gradients, substituting zeros for outputs
// that received none.
func splitBackward(b tensor.Backend, r *Record, gradOuts []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	var dtype tensor.DataType
	for _, g := range gradOuts {
		if g != nil {
			dtype = g.DType()
			break
		}
	}

	parts := make([]*tensor.RawTensor, len(gradOuts))
	for i, g := range gradOuts {
		if g != nil {
			parts[i] = g
			continue
		}
		zero, err := b.Alloc(r.OutputShapes[i], dtype)
		if err != nil {
			return nil, err
		}
		parts[i] = zero
	}

	gin, err := b.Alloc(r.InputShapes[0], dtype)
	if err != nil {
		return nil, err
	}
	if err := b.Concat(parts, r.Axes[0], gin); err != nil {
		return nil, err
	}
	return []*tensor.RawTensor{gin}, nil
}
