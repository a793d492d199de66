package autodiff

import (
	"slices"

	"github.com/pkg/errors"

	"github.com/born-ml/tapegrad/internal/autodiff/ops"
	"github.com/born-ml/tapegrad/internal/tensor"
)

// Every op follows the same steps:
//  0. resolve the tape shared by the inputs (TapeMisuse on conflict or
//     on a consumed tape)
//  1. validate shapes (ShapeMismatch names both shapes)
//  2. allocate the output and run the forward kernel
//  3. if a tape is active and the backend supports gradients, give the
//     output a fresh id and append one record
//
// Nothing is pushed unless every earlier step succeeded, so a failed op
// leaves the tape exactly as it was.

// resolveTape returns the tape shared by all non-nil tapes, or nil.
func resolveTape(op string, tapes ...*Tape) (*Tape, error) {
	var tape *Tape
	for _, t := range tapes {
		if t == nil {
			continue
		}
		if tape != nil && tape != t {
			tapeMisuse.Inc()
			return nil, errors.Wrapf(tensor.ErrTapeMisuse, "%s: operands recorded on different tapes", op)
		}
		tape = t
	}
	if tape != nil {
		if err := tape.checkOpen(op); err != nil {
			return nil, err
		}
	}
	return tape, nil
}

// recording reports whether an op on b should be pushed onto tape.
func recording(tape *Tape, b tensor.Backend) bool {
	return tape != nil && b.SupportsGradients()
}

// finish wraps out in a tensor and, when recording, pushes rec with the
// output's fresh id filled in. On failure out and rec's saved buffers are
// released.
func finish[T tensor.DType, B tensor.Backend](tape *Tape, b B, out *tensor.RawTensor, rec *ops.Record) (*Tensor[T, B], error) {
	if rec == nil {
		return newTensor[T](out, b, nil), nil
	}
	y := newTensor[T](out, b, tape)
	rec.Outputs = []tensor.UniqueID{y.id}
	rec.OutputShapes = []tensor.Shape{out.Shape().Clone()}
	if err := tape.push(*rec); err != nil {
		rec.Release()
		out.Release()
		return nil, err
	}
	return y, nil
}

func tryUnary[T tensor.DType, B tensor.Backend](x *Tensor[T, B], op tensor.UnaryOp) (*Tensor[T, B], error) {
	tape, err := resolveTape(op.String(), x.tape)
	if err != nil {
		return nil, err
	}
	b := x.backend
	out, err := b.Alloc(x.Shape(), x.DType())
	if err != nil {
		return nil, err
	}
	if err := b.Unary(op, x.raw, out); err != nil {
		out.Release()
		return nil, err
	}

	var rec *ops.Record
	if recording(tape, b) {
		rec = &ops.Record{
			Kind:        ops.KindUnary,
			Unary:       op,
			Inputs:      []tensor.UniqueID{x.id},
			InputShapes: []tensor.Shape{x.Shape().Clone()},
			Saved:       []*tensor.RawTensor{x.raw.Clone()},
		}
	}
	return finish[T](tape, b, out, rec)
}

func tryBinary[T tensor.DType, B tensor.Backend](x, y *Tensor[T, B], op tensor.BinaryOp) (*Tensor[T, B], error) {
	tape, err := resolveTape(op.String(), x.tape, y.tape)
	if err != nil {
		return nil, err
	}
	b := x.backend
	xe, ye, shape, err := broadcastOperands(op.String(), b, x.raw, y.raw)
	if err != nil {
		return nil, err
	}
	release := func() {
		xe.Release()
		ye.Release()
	}

	out, err := b.Alloc(shape, x.DType())
	if err != nil {
		release()
		return nil, err
	}
	if err := b.Binary(op, xe, ye, out); err != nil {
		release()
		out.Release()
		return nil, err
	}

	if !recording(tape, b) {
		release()
		return finish[T](tape, b, out, nil)
	}
	return finish[T](tape, b, out, &ops.Record{
		Kind:        ops.KindBinary,
		Binary:      op,
		Inputs:      []tensor.UniqueID{x.id, y.id},
		InputShapes: []tensor.Shape{x.Shape().Clone(), y.Shape().Clone()},
		Saved:       []*tensor.RawTensor{xe, ye},
	})
}

// TryAdd returns x + y with broadcasting.
func (t *Tensor[T, B]) TryAdd(other *Tensor[T, B]) (*Tensor[T, B], error) {
	return tryBinary(t, other, tensor.Add)
}

// TrySub returns x - y with broadcasting.
func (t *Tensor[T, B]) TrySub(other *Tensor[T, B]) (*Tensor[T, B], error) {
	return tryBinary(t, other, tensor.Sub)
}

// TryMul returns x * y with broadcasting.
func (t *Tensor[T, B]) TryMul(other *Tensor[T, B]) (*Tensor[T, B], error) {
	return tryBinary(t, other, tensor.Mul)
}

// TryDiv returns x / y with broadcasting.
func (t *Tensor[T, B]) TryDiv(other *Tensor[T, B]) (*Tensor[T, B], error) {
	return tryBinary(t, other, tensor.Div)
}

// TryMinimum returns the element-wise minimum. At ties each input receives
// half of the gradient.
func (t *Tensor[T, B]) TryMinimum(other *Tensor[T, B]) (*Tensor[T, B], error) {
	return tryBinary(t, other, tensor.Minimum)
}

// TryMaximum returns the element-wise maximum. At ties each input receives
// half of the gradient.
func (t *Tensor[T, B]) TryMaximum(other *Tensor[T, B]) (*Tensor[T, B], error) {
	return tryBinary(t, other, tensor.Maximum)
}

// TryNeg returns -x.
func (t *Tensor[T, B]) TryNeg() (*Tensor[T, B], error) {
	return tryUnary(t, tensor.UnaryOp{Kind: tensor.Neg})
}

// TryExp returns e^x.
func (t *Tensor[T, B]) TryExp() (*Tensor[T, B], error) {
	return tryUnary(t, tensor.UnaryOp{Kind: tensor.Exp})
}

// TryLn returns the natural logarithm. Non-positive inputs yield NaN or -Inf.
func (t *Tensor[T, B]) TryLn() (*Tensor[T, B], error) {
	return tryUnary(t, tensor.UnaryOp{Kind: tensor.Ln})
}

// TrySqrt returns the square root.
func (t *Tensor[T, B]) TrySqrt() (*Tensor[T, B], error) {
	return tryUnary(t, tensor.UnaryOp{Kind: tensor.Sqrt})
}

// TrySquare returns x².
func (t *Tensor[T, B]) TrySquare() (*Tensor[T, B], error) {
	return tryUnary(t, tensor.UnaryOp{Kind: tensor.Square})
}

// TryAbs returns |x|. The subgradient at 0 is 0.
func (t *Tensor[T, B]) TryAbs() (*Tensor[T, B], error) {
	return tryUnary(t, tensor.UnaryOp{Kind: tensor.Abs})
}

// TrySin returns sin(x).
func (t *Tensor[T, B]) TrySin() (*Tensor[T, B], error) {
	return tryUnary(t, tensor.UnaryOp{Kind: tensor.Sin})
}

// TryCos returns cos(x).
func (t *Tensor[T, B]) TryCos() (*Tensor[T, B], error) {
	return tryUnary(t, tensor.UnaryOp{Kind: tensor.Cos})
}

// TryTanh returns tanh(x).
func (t *Tensor[T, B]) TryTanh() (*Tensor[T, B], error) {
	return tryUnary(t, tensor.UnaryOp{Kind: tensor.Tanh})
}

// TrySigmoid returns 1 / (1 + e^-x).
func (t *Tensor[T, B]) TrySigmoid() (*Tensor[T, B], error) {
	return tryUnary(t, tensor.UnaryOp{Kind: tensor.Sigmoid})
}

// TryReLU returns max(x, 0).
func (t *Tensor[T, B]) TryReLU() (*Tensor[T, B], error) {
	return tryUnary(t, tensor.UnaryOp{Kind: tensor.ReLU})
}

// TryAddScalar returns x + s.
func (t *Tensor[T, B]) TryAddScalar(s T) (*Tensor[T, B], error) {
	return tryUnary(t, tensor.UnaryOp{Kind: tensor.AddScalar, Scalar: float64(s)})
}

// TryMulScalar returns x * s.
func (t *Tensor[T, B]) TryMulScalar(s T) (*Tensor[T, B], error) {
	return tryUnary(t, tensor.UnaryOp{Kind: tensor.MulScalar, Scalar: float64(s)})
}

// TryPowScalar returns x^p.
func (t *Tensor[T, B]) TryPowScalar(p T) (*Tensor[T, B], error) {
	return tryUnary(t, tensor.UnaryOp{Kind: tensor.PowScalar, Scalar: float64(p)})
}

// TrySumAxes sums over axes and removes them from the shape. Negative axes
// count from the end. With no axes every axis is reduced.
//
// Example:
//
//	x: (2, 3, 4)
//	x.TrySumAxes(0, -1) → (3,)
func (t *Tensor[T, B]) TrySumAxes(axes ...int) (*Tensor[T, B], error) {
	tape, err := resolveTape("sum", t.tape)
	if err != nil {
		return nil, err
	}
	in := t.Shape()
	norm, err := normalizeAxes(in, axes)
	if err != nil {
		return nil, err
	}

	outShape := make(tensor.Shape, 0, len(in))
	for i, d := range in {
		if !slices.Contains(norm, i) {
			outShape = append(outShape, d)
		}
	}

	b := t.backend
	out, err := b.Alloc(outShape, t.DType())
	if err != nil {
		return nil, err
	}
	if err := b.SumAxes(t.raw, norm, out); err != nil {
		out.Release()
		return nil, err
	}

	var rec *ops.Record
	if recording(tape, b) {
		rec = &ops.Record{
			Kind:        ops.KindSum,
			Inputs:      []tensor.UniqueID{t.id},
			InputShapes: []tensor.Shape{in.Clone()},
			Axes:        norm,
		}
	}
	return finish[T](tape, b, out, rec)
}

// normalizeAxes maps axes into [0, rank), sorted and deduplicated. No axes
// selects all of them.
func normalizeAxes(shape tensor.Shape, axes []int) ([]int, error) {
	if len(axes) == 0 {
		all := make([]int, len(shape))
		for i := range all {
			all[i] = i
		}
		return all, nil
	}
	norm := make([]int, 0, len(axes))
	for _, a := range axes {
		ax, err := shape.NormalizeAxis(a)
		if err != nil {
			return nil, errors.Wrap(err, "sum")
		}
		norm = append(norm, ax)
	}
	slices.Sort(norm)
	return slices.Compact(norm), nil
}

// TrySum reduces every axis to a scalar.
func (t *Tensor[T, B]) TrySum() (*Tensor[T, B], error) {
	return t.TrySumAxes()
}

// TryMean returns the mean over every axis as a scalar.
func (t *Tensor[T, B]) TryMean() (*Tensor[T, B], error) {
	s, err := t.TrySum()
	if err != nil {
		return nil, err
	}
	return s.TryMulScalar(T(1) / T(t.NumElements()))
}

// TryMatMul returns the 2-D matrix product (M, K) @ (K, N) → (M, N).
func (t *Tensor[T, B]) TryMatMul(other *Tensor[T, B]) (*Tensor[T, B], error) {
	tape, err := resolveTape("matmul", t.tape, other.tape)
	if err != nil {
		return nil, err
	}
	as, bs := t.Shape(), other.Shape()
	if len(as) != 2 || len(bs) != 2 || as[1] != bs[0] {
		return nil, tensor.NewShapeMismatch("matmul", as, bs)
	}

	b := t.backend
	out, err := b.Alloc(tensor.Shape{as[0], bs[1]}, t.DType())
	if err != nil {
		return nil, err
	}
	if err := b.MatMul(t.raw, other.raw, out, false, false); err != nil {
		out.Release()
		return nil, err
	}

	var rec *ops.Record
	if recording(tape, b) {
		rec = &ops.Record{
			Kind:        ops.KindMatMul,
			Inputs:      []tensor.UniqueID{t.id, other.id},
			InputShapes: []tensor.Shape{as.Clone(), bs.Clone()},
			Saved:       []*tensor.RawTensor{t.raw.Clone(), other.raw.Clone()},
		}
	}
	return finish[T](tape, b, out, rec)
}

// TryReshape returns the same elements viewed with shape. Storage is
// shared; the result has a fresh id.
func (t *Tensor[T, B]) TryReshape(shape tensor.Shape) (*Tensor[T, B], error) {
	tape, err := resolveTape("reshape", t.tape)
	if err != nil {
		return nil, err
	}
	out, err := t.raw.View(shape)
	if err != nil {
		return nil, err
	}

	var rec *ops.Record
	if recording(tape, t.backend) {
		rec = &ops.Record{
			Kind:        ops.KindReshape,
			Inputs:      []tensor.UniqueID{t.id},
			InputShapes: []tensor.Shape{t.Shape().Clone()},
		}
	}
	return finish[T](tape, t.backend, out, rec)
}

// TryBroadcastTo materializes t at shape under the broadcast rule.
func (t *Tensor[T, B]) TryBroadcastTo(shape tensor.Shape) (*Tensor[T, B], error) {
	tape, err := resolveTape("broadcast_to", t.tape)
	if err != nil {
		return nil, err
	}
	out, err := ops.Expand(t.backend, t.raw, shape)
	if err != nil {
		return nil, err
	}

	var rec *ops.Record
	if recording(tape, t.backend) {
		rec = &ops.Record{
			Kind:        ops.KindBroadcast,
			Inputs:      []tensor.UniqueID{t.id},
			InputShapes: []tensor.Shape{t.Shape().Clone()},
		}
	}
	return finish[T](tape, t.backend, out, rec)
}

// TryConcat joins t and others along axis. Every other axis must match.
func (t *Tensor[T, B]) TryConcat(axis int, others ...*Tensor[T, B]) (*Tensor[T, B], error) {
	all := append([]*Tensor[T, B]{t}, others...)
	tapes := make([]*Tape, len(all))
	raws := make([]*tensor.RawTensor, len(all))
	shapes := make([]tensor.Shape, len(all))
	for i, x := range all {
		tapes[i] = x.tape
		raws[i] = x.raw
		shapes[i] = x.Shape()
	}

	tape, err := resolveTape("concat", tapes...)
	if err != nil {
		return nil, err
	}
	outShape, err := tensor.ConcatShapes(axis, shapes...)
	if err != nil {
		return nil, err
	}
	ax, _ := outShape.NormalizeAxis(axis)

	b := t.backend
	out, err := b.Alloc(outShape, t.DType())
	if err != nil {
		return nil, err
	}
	if err := b.Concat(raws, ax, out); err != nil {
		out.Release()
		return nil, err
	}

	var rec *ops.Record
	if recording(tape, b) {
		rec = &ops.Record{
			Kind:        ops.KindConcat,
			Inputs:      make([]tensor.UniqueID, len(all)),
			InputShapes: make([]tensor.Shape, len(all)),
			Axes:        []int{ax},
		}
		for i, x := range all {
			rec.Inputs[i] = x.id
			rec.InputShapes[i] = shapes[i].Clone()
		}
	}
	return finish[T](tape, b, out, rec)
}

// TrySplit cuts t along axis into consecutive pieces of the given sizes,
// which must be positive and sum to the axis length. Each piece gets a fresh id.
//
// Example:
//
//	x: (2, 5)
//	x.TrySplit(1, 2, 3) → (2, 2), (2, 3)
func (t *Tensor[T, B]) TrySplit(axis int, sizes ...int) ([]*Tensor[T, B], error) {
	tape, err := resolveTape("split", t.tape)
	if err != nil {
		return nil, err
	}
	in := t.Shape()
	ax, err := in.NormalizeAxis(axis)
	if err != nil {
		return nil, errors.Wrap(err, "split")
	}

	total := 0
	shapes := make([]tensor.Shape, len(sizes))
	for i, s := range sizes {
		shapes[i] = in.Clone()
		shapes[i][ax] = s
		if s <= 0 {
			return nil, tensor.NewShapeMismatch("split", in, shapes[i])
		}
		total += s
	}
	if len(sizes) == 0 || total != in[ax] {
		got := in.Clone()
		got[ax] = total
		return nil, tensor.NewShapeMismatch("split", in, got)
	}

	b := t.backend
	outs := make([]*tensor.RawTensor, 0, len(sizes))
	release := func() {
		for _, o := range outs {
			o.Release()
		}
	}
	for _, s := range shapes {
		o, err := b.Alloc(s, t.DType())
		if err != nil {
			release()
			return nil, err
		}
		outs = append(outs, o)
	}
	if err := b.Split(t.raw, ax, outs); err != nil {
		release()
		return nil, err
	}

	rec := recording(tape, b)
	var resultTape *Tape
	if rec {
		resultTape = tape
	}
	results := make([]*Tensor[T, B], len(outs))
	ids := make([]tensor.UniqueID, len(outs))
	for i, o := range outs {
		results[i] = newTensor[T](o, b, resultTape)
		ids[i] = results[i].id
	}
	if !rec {
		return results, nil
	}

	err = tape.push(ops.Record{
		Kind:         ops.KindSplit,
		Inputs:       []tensor.UniqueID{t.id},
		InputShapes:  []tensor.Shape{in.Clone()},
		Outputs:      ids,
		OutputShapes: shapes,
		Axes:         []int{ax},
	})
	if err != nil {
		release()
		return nil, err
	}
	return results, nil
}
