package tensor

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Dim describes one axis of a ShapeSpec: either a fixed size or a size
// supplied at tensor construction time.
type Dim struct {
	size    int
	dynamic bool
}

// Dyn is an axis whose size is only known at runtime.
var Dyn = Dim{dynamic: true}

// Const returns a fixed-size axis.
func Const(n int) Dim {
	return Dim{size: n}
}

// IsDynamic reports whether the axis size is supplied at runtime.
func (d Dim) IsDynamic() bool {
	return d.dynamic
}

// Size returns the fixed size, or 0 for a dynamic axis.
func (d Dim) Size() int {
	return d.size
}

func (d Dim) String() string {
	if d.dynamic {
		return "?"
	}
	return strconv.Itoa(d.size)
}

// ShapeSpec is a shape with mixed static and dynamic axes. Rank is always static.
//
// Example:
//
//	spec := tensor.ShapeSpec{tensor.Dyn, tensor.Const(3)}
//	shape, err := spec.Bind(8) // (8, 3)
type ShapeSpec []Dim

// Rank returns the number of axes.
func (s ShapeSpec) Rank() int {
	return len(s)
}

// NumDynamic returns how many axes are dynamic.
func (s ShapeSpec) NumDynamic() int {
	n := 0
	for _, d := range s {
		if d.dynamic {
			n++
		}
	}
	return n
}

// Bind resolves the spec into a concrete Shape, filling dynamic axes in order.
func (s ShapeSpec) Bind(dynamic ...int) (Shape, error) {
	if len(dynamic) != s.NumDynamic() {
		return nil, errors.Wrapf(ErrShapeMismatch, "spec %v has %d dynamic axes, got %d sizes",
			s, s.NumDynamic(), len(dynamic))
	}
	shape := make(Shape, len(s))
	next := 0
	for i, d := range s {
		if d.dynamic {
			shape[i] = dynamic[next]
			next++
		} else {
			shape[i] = d.size
		}
	}
	if err := shape.Validate(); err != nil {
		return nil, errors.Wrapf(ErrShapeMismatch, "spec %v: %v", s, err)
	}
	return shape, nil
}

// Match checks rank and every static axis of shape against the spec.
func (s ShapeSpec) Match(shape Shape) error {
	if len(shape) != len(s) {
		return errors.Wrapf(ErrShapeMismatch, "shape %v has rank %d, spec %v wants %d",
			shape, len(shape), s, len(s))
	}
	for i, d := range s {
		if !d.dynamic && shape[i] != d.size {
			return errors.Wrapf(ErrShapeMismatch, "shape %v axis %d is %d, spec %v wants %d",
				shape, i, shape[i], s, d.size)
		}
	}
	return nil
}

func (s ShapeSpec) String() string {
	parts := make([]string, len(s))
	for i, d := range s {
		parts[i] = d.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
