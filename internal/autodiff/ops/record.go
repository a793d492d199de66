// Package ops defines the tape entry format and the derivative rule for
// every recorded operation.
//
// A tape entry is a Record: a tagged variant over a fixed set of kinds.
// Each Record carries only what its backward rule needs (input and output
// ids, the primitive input buffers, and the original input shapes), so the
// tape stays a homogeneous slice that is easy to replay and to dump.
//
// Supported kinds:
//   - KindUnary: element-wise f(x), derivative f'(x) evaluated at x
//   - KindBinary: element-wise f(x, y) after broadcasting, partials at (x, y)
//   - KindSum: reduction over axes (gradient is broadcast back)
//   - KindMatMul: 2-D matrix product (dA = g @ B^T, dB = A^T @ g)
//   - KindReshape: same elements, new shape (gradient is reshaped back)
//   - KindBroadcast: explicit expansion (gradient is summed back)
//   - KindConcat / KindSplit: join and its inverse
package ops

import "github.com/born-ml/tapegrad/internal/tensor"

// Kind tags a Record.
type Kind uint8

// Recorded operation kinds.
const (
	KindUnary Kind = iota
	KindBinary
	KindSum
	KindMatMul
	KindReshape
	KindBroadcast
	KindConcat
	KindSplit
)

var kindNames = [...]string{
	KindUnary:     "unary",
	KindBinary:    "binary",
	KindSum:       "sum",
	KindMatMul:    "matmul",
	KindReshape:   "reshape",
	KindBroadcast: "broadcast",
	KindConcat:    "concat",
	KindSplit:     "split",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Record is one tape entry.
type Record struct {
	Kind Kind

	// Unary is set for KindUnary, Binary for KindBinary.
	Unary  tensor.UnaryOp
	Binary tensor.BinaryOp

	// Inputs and InputShapes describe every operand, tracked or not.
	// Gradients are produced for all of them.
	Inputs      []tensor.UniqueID
	InputShapes []tensor.Shape

	// Saved holds the primitive buffers the backward rule reads. For
	// KindBinary these are the operands expanded to the output shape.
	Saved []*tensor.RawTensor

	Outputs      []tensor.UniqueID
	OutputShapes []tensor.Shape

	// Axes are the reduced axes for KindSum; KindConcat and KindSplit
	// store their single axis in Axes[0]. Always non-negative.
	Axes []int
}

// Name returns the kernel name for unary and binary records and the kind
// name otherwise.
func (r *Record) Name() string {
	switch r.Kind {
	case KindUnary:
		return r.Unary.String()
	case KindBinary:
		return r.Binary.String()
	default:
		return r.Kind.String()
	}
}

// Release drops the record's references to its saved buffers.
func (r *Record) Release() {
	for _, s := range r.Saved {
		if s != nil {
			s.Release()
		}
	}
	r.Saved = nil
}
