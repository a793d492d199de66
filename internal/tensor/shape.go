package tensor

import (
	"math"
	"math/bits"
	"strconv"

	"github.com/pkg/errors"
)

// Shape represents the dimensions of a tensor.
type Shape []int

// NumElements returns the total number of elements in the tensor.
func (s Shape) NumElements() int {
	if len(s) == 0 {
		return 1 // Scalar has 1 element
	}
	n := 1
	for _, dim := range s {
		n *= dim
	}
	return n
}

// Rank returns the number of axes.
func (s Shape) Rank() int {
	return len(s)
}

// Dims returns a copy of the per-axis sizes.
func (s Shape) Dims() []int {
	return append([]int(nil), s...)
}

// Validate checks if the shape is valid: all dimensions > 0 and an element
// count that fits in an int.
func (s Shape) Validate() error {
	n := uint64(1)
	for i, dim := range s {
		if dim <= 0 {
			return errors.Errorf("invalid dimension at index %d: %d (must be > 0)", i, dim)
		}
		hi, lo := bits.Mul64(n, uint64(dim))
		if hi != 0 || lo > math.MaxInt {
			return errors.Errorf("shape %v: element count overflows int", s)
		}
		n = lo
	}
	return nil
}

// Equal checks if two shapes are equal.
func (s Shape) Equal(other Shape) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// Clone returns a copy of the shape.
func (s Shape) Clone() Shape {
	clone := make(Shape, len(s))
	copy(clone, s)
	return clone
}

// String formats the shape as (d0, d1, ...).
func (s Shape) String() string {
	out := "("
	for i, d := range s {
		if i > 0 {
			out += ", "
		}
		out += strconv.Itoa(d)
	}
	if len(s) == 1 {
		out += ","
	}
	return out + ")"
}

// ComputeStrides calculates row-major strides for the shape.
// Strides define memory layout: stride[i] = product of all dimensions after i.
func (s Shape) ComputeStrides() []int {
	strides := make([]int, len(s))
	if len(s) == 0 {
		return strides
	}

	strides[len(s)-1] = 1
	for i := len(s) - 2; i >= 0; i-- {
		strides[i] = strides[i+1] * s[i+1]
	}
	return strides
}

// NormalizeAxis maps a possibly negative axis into [0, rank).
func (s Shape) NormalizeAxis(axis int) (int, error) {
	rank := len(s)
	if axis < 0 {
		axis += rank
	}
	if axis < 0 || axis >= rank {
		return 0, errors.Wrapf(ErrShapeMismatch, "axis %d out of range for shape %v", axis, s)
	}
	return axis, nil
}

// BroadcastShapes implements NumPy-style broadcasting rules.
//
// Rules:
// 1. Compare shapes element-wise from right to left
// 2. Dimensions are compatible if:
//   - They are equal, OR
//   - One of them is 1
//
// 3. Missing dimensions are treated as 1
//
// Returns the broadcasted shape, a flag indicating if broadcasting is needed, and a
// ShapeMismatchError naming both shapes if they are incompatible.
//
// Examples:
//
//	(3, 1) + (3, 5) → (3, 5), true, nil
//	(3,)   + (1,)   → (3,),   true, nil
//	(3, 5) + (3, 5) → (3, 5), false, nil
//	(2, 3) + (3, 2) → nil, false, ShapeMismatch
func BroadcastShapes(a, b Shape) (Shape, bool, error) {
	maxLen := max(len(a), len(b))
	result := make(Shape, maxLen)
	needsBroadcast := len(a) != len(b)

	for i := 0; i < maxLen; i++ {
		aIdx := len(a) - 1 - i
		bIdx := len(b) - 1 - i

		aDim := 1
		if aIdx >= 0 {
			aDim = a[aIdx]
		}

		bDim := 1
		if bIdx >= 0 {
			bDim = b[bIdx]
		}

		switch {
		case aDim == bDim:
			result[maxLen-1-i] = aDim
		case aDim == 1:
			result[maxLen-1-i] = bDim
			needsBroadcast = true
		case bDim == 1:
			result[maxLen-1-i] = aDim
			needsBroadcast = true
		default:
			return nil, false, NewShapeMismatch("broadcast", a, b)
		}
	}

	return result, needsBroadcast, nil
}

// BroadcastAxes returns the axes of out that broadcasting expanded when
// stretching in to out. Leading axes missing from in are always included.
//
// Example:
//
//	BroadcastAxes((3, 1), (2, 3, 4)) → [0, 2]
func BroadcastAxes(in, out Shape) []int {
	offset := len(out) - len(in)
	var axes []int
	for i := range out {
		j := i - offset
		if j < 0 || (in[j] == 1 && out[i] != 1) {
			axes = append(axes, i)
		}
	}
	return axes
}

// ConcatShapes returns the shape of concatenating shapes along axis.
// All shapes must share rank and every axis except axis; the result's
// axis is the sum of the inputs'.
func ConcatShapes(axis int, shapes ...Shape) (Shape, error) {
	if len(shapes) == 0 {
		return nil, errors.Wrap(ErrShapeMismatch, "concat: no inputs")
	}
	first := shapes[0]
	ax, err := first.NormalizeAxis(axis)
	if err != nil {
		return nil, errors.Wrap(err, "concat")
	}

	result := first.Clone()
	for _, s := range shapes[1:] {
		if len(s) != len(first) {
			return nil, NewShapeMismatch("concat", first, s)
		}
		for i := range s {
			if i != ax && s[i] != first[i] {
				return nil, NewShapeMismatch("concat", first, s)
			}
		}
		result[ax] += s[ax]
	}
	return result, nil
}
