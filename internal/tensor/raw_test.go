package tensor

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRaw64(t *testing.T, shape Shape, data ...float64) *RawTensor {
	t.Helper()
	r, err := NewRaw(shape, Float64, CPU)
	require.NoError(t, err)
	copy(Values[float64](r), data)
	return r
}

func TestNewRaw(t *testing.T) {
	r, err := NewRaw(Shape{2, 3}, Float32, CPU)
	require.NoError(t, err)
	assert.Equal(t, 6, r.NumElements())
	assert.Equal(t, 24, len(r.Data()))
	assert.Equal(t, make([]float32, 6), Values[float32](r))

	_, err = NewRaw(Shape{2, -1}, Float32, CPU)
	assert.True(t, errors.Is(err, ErrShapeMismatch))

	_, err = NewRaw(Shape{1 << 61, 2}, Float64, CPU)
	assert.True(t, errors.Is(err, ErrAllocation))

	assert.Panics(t, func() { Values[float64](r) })
}

func TestRaw_CloneSharesUntilMutate(t *testing.T) {
	a := newRaw64(t, Shape{3}, 1, 2, 3)
	b := a.Clone()
	assert.True(t, a.SameStorage(b))
	assert.False(t, a.IsUnique())

	MutateValues(b, func(d []float64) { d[0] = 10 })

	assert.False(t, a.SameStorage(b))
	assert.Equal(t, []float64{1, 2, 3}, Values[float64](a))
	assert.Equal(t, []float64{10, 2, 3}, Values[float64](b))
	assert.True(t, a.IsUnique())
	assert.True(t, b.IsUnique())
}

func TestRaw_MutateUniqueInPlace(t *testing.T) {
	a := newRaw64(t, Shape{2}, 1, 2)
	before := &a.Data()[0]
	MutateValues(a, func(d []float64) { d[1] = 5 })
	assert.Same(t, before, &a.Data()[0])
	assert.Equal(t, []float64{1, 5}, Values[float64](a))
}

func TestRaw_View(t *testing.T) {
	a := newRaw64(t, Shape{2, 3}, 1, 2, 3, 4, 5, 6)
	v, err := a.View(Shape{3, 2})
	require.NoError(t, err)
	assert.True(t, a.SameStorage(v))
	assert.Equal(t, Shape{3, 2}, v.Shape())
	assert.Equal(t, Shape{2, 3}, a.Shape())

	_, err = a.View(Shape{4})
	assert.True(t, errors.Is(err, ErrShapeMismatch))
}

func TestRaw_Release(t *testing.T) {
	a := newRaw64(t, Shape{2}, 1, 2)
	b := a.Clone()
	b.Release()
	assert.True(t, a.IsUnique())
}

func TestCheckDTypesAndShapes(t *testing.T) {
	a := newRaw64(t, Shape{2}, 1, 2)
	b, err := NewRaw(Shape{2}, Float32, CPU)
	require.NoError(t, err)
	c := newRaw64(t, Shape{3}, 1, 2, 3)

	err = CheckDTypes("add", a, b)
	assert.True(t, errors.Is(err, ErrDtypeMismatch))
	var dm *DtypeMismatchError
	require.True(t, errors.As(err, &dm))
	assert.Equal(t, Float64, dm.A)
	assert.Equal(t, Float32, dm.B)

	assert.NoError(t, CheckDTypes("add", a, nil, c))
	assert.True(t, errors.Is(CheckSameShape("add", a, c), ErrShapeMismatch))
	assert.NoError(t, CheckSameShape("add", a, nil))
}

func TestNewID(t *testing.T) {
	a, b := NewID(), NewID()
	assert.NotEqual(t, a, b)
	assert.NotZero(t, a)
	assert.True(t, b > a)
	assert.Equal(t, "#7", UniqueID(7).String())
}

func TestDataTypeOf(t *testing.T) {
	assert.Equal(t, Float32, DataTypeOf[float32]())
	assert.Equal(t, Float64, DataTypeOf[float64]())
	assert.Equal(t, 8, Float64.Size())
	assert.Equal(t, "float32", Float32.String())
}

func TestOpNames(t *testing.T) {
	assert.Equal(t, "ln", UnaryOp{Kind: Ln}.String())
	assert.Equal(t, "pow_scalar", UnaryOp{Kind: PowScalar, Scalar: 2}.String())
	assert.Equal(t, "maximum", Maximum.String())
}
