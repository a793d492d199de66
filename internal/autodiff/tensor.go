package autodiff

import (
	"math/rand"

	"github.com/pkg/errors"

	"github.com/born-ml/tapegrad/internal/tensor"
)

// Tensor is a typed, shape-checked handle to backend storage.
//
// Type Parameters:
//   - T: element type (float32 or float64); mixing element types is a compile error
//   - B: computation backend
//
// A Tensor carries an id used for gradient bookkeeping and an optional tape.
// Handles sharing an id denote the same logical value: gradients flowing into
// any of them are summed under that id.
type Tensor[T tensor.DType, B tensor.Backend] struct {
	raw     *tensor.RawTensor
	backend B
	id      tensor.UniqueID
	tape    *Tape
}

// newTensor wraps raw under a fresh id.
func newTensor[T tensor.DType, B tensor.Backend](raw *tensor.RawTensor, b B, tape *Tape) *Tensor[T, B] {
	return &Tensor[T, B]{
		raw:     raw,
		backend: b,
		id:      tensor.NewID(),
		tape:    tape,
	}
}

// Must unwraps a constructor result, panicking on error.
//
//	x := autodiff.Must(autodiff.FromSlice([]float32{1, 2}, tensor.Shape{2}, backend))
func Must[T tensor.DType, B tensor.Backend](t *Tensor[T, B], err error) *Tensor[T, B] {
	if err != nil {
		panic(err)
	}
	return t
}

// FromSlice creates an untracked tensor from a Go slice.
// The slice is copied into backend storage.
func FromSlice[T tensor.DType, B tensor.Backend](data []T, shape tensor.Shape, b B) (*Tensor[T, B], error) {
	if err := shape.Validate(); err != nil {
		return nil, errors.Wrapf(tensor.ErrShapeMismatch, "from slice: %v", err)
	}
	if shape.NumElements() != len(data) {
		return nil, tensor.NewShapeMismatch("from slice", shape, tensor.Shape{len(data)})
	}
	raw, err := b.Alloc(shape, tensor.DataTypeOf[T]())
	if err != nil {
		return nil, err
	}
	copy(tensor.Values[T](raw), data)
	return newTensor[T](raw, b, nil), nil
}

// FromSliceSpec creates a tensor whose shape is described by spec, binding
// its dynamic axes, in order, to dynamic. It fails fast with ErrShapeMismatch
// when the bound shape does not account for exactly len(data) elements.
//
// Example:
//
//	spec := tensor.ShapeSpec{tensor.Dyn, tensor.Const(3)}
//	x, err := autodiff.FromSliceSpec(data, spec, backend, batch) // (batch, 3)
func FromSliceSpec[T tensor.DType, B tensor.Backend](
	data []T, spec tensor.ShapeSpec, b B, dynamic ...int,
) (*Tensor[T, B], error) {
	shape, err := spec.Bind(dynamic...)
	if err != nil {
		return nil, err
	}
	return FromSlice(data, shape, b)
}

// Full creates an untracked tensor filled with value.
func Full[T tensor.DType, B tensor.Backend](shape tensor.Shape, value T, b B) (*Tensor[T, B], error) {
	raw, err := b.Alloc(shape, tensor.DataTypeOf[T]())
	if err != nil {
		return nil, err
	}
	if value != 0 {
		data := tensor.Values[T](raw)
		for i := range data {
			data[i] = value
		}
	}
	return newTensor[T](raw, b, nil), nil
}

// Zeros creates an untracked tensor filled with zeros.
func Zeros[T tensor.DType, B tensor.Backend](shape tensor.Shape, b B) (*Tensor[T, B], error) {
	return Full[T](shape, 0, b)
}

// Ones creates an untracked tensor filled with ones.
func Ones[T tensor.DType, B tensor.Backend](shape tensor.Shape, b B) (*Tensor[T, B], error) {
	return Full[T](shape, 1, b)
}

// Scalar creates a rank-0 tensor.
func Scalar[T tensor.DType, B tensor.Backend](value T, b B) (*Tensor[T, B], error) {
	return Full(tensor.Shape{}, value, b)
}

// Randn creates a tensor with standard normal samples drawn from rng.
// Passing the same seeded rng reproduces the same values.
func Randn[T tensor.DType, B tensor.Backend](shape tensor.Shape, rng *rand.Rand, b B) (*Tensor[T, B], error) {
	raw, err := b.Alloc(shape, tensor.DataTypeOf[T]())
	if err != nil {
		return nil, err
	}
	data := tensor.Values[T](raw)
	for i := range data {
		data[i] = T(rng.NormFloat64())
	}
	return newTensor[T](raw, b, nil), nil
}

// ID returns the gradient bookkeeping id.
func (t *Tensor[T, B]) ID() tensor.UniqueID {
	return t.id
}

// Shape returns the tensor's shape.
func (t *Tensor[T, B]) Shape() tensor.Shape {
	return t.raw.Shape()
}

// DType returns the tensor's data type.
func (t *Tensor[T, B]) DType() tensor.DataType {
	return t.raw.DType()
}

// NumElements returns the total number of elements.
func (t *Tensor[T, B]) NumElements() int {
	return t.raw.NumElements()
}

// Raw returns the underlying storage handle.
func (t *Tensor[T, B]) Raw() *tensor.RawTensor {
	return t.raw
}

// Backend returns the tensor's backend.
func (t *Tensor[T, B]) Backend() B {
	return t.backend
}

// Tape returns the attached tape, or nil if the tensor is untracked.
func (t *Tensor[T, B]) Tape() *Tape {
	return t.tape
}

// IsTracked reports whether ops on this tensor are recorded.
func (t *Tensor[T, B]) IsTracked() bool {
	return t.tape != nil
}

// Data returns a copy of the elements in row-major order.
func (t *Tensor[T, B]) Data() []T {
	return append([]T(nil), tensor.Values[T](t.raw)...)
}

// Item returns the single element of a one-element tensor.
func (t *Tensor[T, B]) Item() (T, error) {
	if t.NumElements() != 1 {
		return 0, tensor.NewShapeMismatch("item", t.Shape(), tensor.Shape{})
	}
	return tensor.Values[T](t.raw)[0], nil
}

// String returns a short description: id, shape and dtype.
func (t *Tensor[T, B]) String() string {
	s := "Tensor" + t.id.String() + t.Shape().String() + " " + t.DType().String()
	if t.tape != nil {
		s += " tracked"
	}
	return s
}

// Clone returns a second handle to the same value: storage is shared by
// reference count and the id and tape are kept. Gradients reaching either
// handle accumulate under the same id.
func (t *Tensor[T, B]) Clone() *Tensor[T, B] {
	return &Tensor[T, B]{
		raw:     t.raw.Clone(),
		backend: t.backend,
		id:      t.id,
		tape:    t.tape,
	}
}

// Retaped returns a clone that records on the same tape, for feeding one
// tracked value into several ops (fan-out). Both handles contribute
// gradients to the shared id.
func (t *Tensor[T, B]) Retaped() *Tensor[T, B] {
	return t.Clone()
}

// Track returns a handle to the same value that records onto tape.
func (t *Tensor[T, B]) Track(tape *Tape) *Tensor[T, B] {
	c := t.Clone()
	c.tape = tape
	return c
}

// Untracked returns a handle to the same value with no tape. Ops on it are
// not recorded.
func (t *Tensor[T, B]) Untracked() *Tensor[T, B] {
	return t.Track(nil)
}

// Release drops this handle's reference to the storage.
func (t *Tensor[T, B]) Release() {
	t.raw.Release()
}
