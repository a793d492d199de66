package tensor

import (
	"fmt"

	"github.com/pkg/errors"
)

// Error kinds reported by the core. Use errors.Is to classify a returned error.
var (
	ErrShapeMismatch   = errors.New("shape mismatch")
	ErrDtypeMismatch   = errors.New("dtype mismatch")
	ErrAllocation      = errors.New("allocation failure")
	ErrTapeMisuse      = errors.New("tape misuse")
	ErrMissingGradient = errors.New("missing gradient")
)

// ShapeMismatchError reports two incompatible shapes for an operation.
type ShapeMismatchError struct {
	Op   string
	A, B Shape
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("%s: shape mismatch %v vs %v", e.Op, e.A, e.B)
}

// Is reports whether target is ErrShapeMismatch.
func (e *ShapeMismatchError) Is(target error) bool {
	return target == ErrShapeMismatch
}

// NewShapeMismatch returns a ShapeMismatchError carrying a stack trace.
func NewShapeMismatch(op string, a, b Shape) error {
	return errors.WithStack(&ShapeMismatchError{Op: op, A: a.Clone(), B: b.Clone()})
}

// DtypeMismatchError reports two raw tensors with different element types.
type DtypeMismatchError struct {
	Op   string
	A, B DataType
}

func (e *DtypeMismatchError) Error() string {
	return fmt.Sprintf("%s: dtype mismatch %s vs %s", e.Op, e.A, e.B)
}

// Is reports whether target is ErrDtypeMismatch.
func (e *DtypeMismatchError) Is(target error) bool {
	return target == ErrDtypeMismatch
}

// CheckDTypes returns a DtypeMismatchError if any raw tensor differs from the first.
func CheckDTypes(op string, raws ...*RawTensor) error {
	if len(raws) == 0 {
		return nil
	}
	first := raws[0].DType()
	for _, r := range raws[1:] {
		if r == nil {
			continue
		}
		if r.DType() != first {
			return errors.WithStack(&DtypeMismatchError{Op: op, A: first, B: r.DType()})
		}
	}
	return nil
}

// CheckSameShape returns a ShapeMismatchError unless every non-nil raw tensor has the shape of the first.
func CheckSameShape(op string, raws ...*RawTensor) error {
	if len(raws) == 0 {
		return nil
	}
	first := raws[0].Shape()
	for _, r := range raws[1:] {
		if r == nil {
			continue
		}
		if !r.Shape().Equal(first) {
			return NewShapeMismatch(op, first, r.Shape())
		}
	}
	return nil
}
