package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/tapegrad/internal/tensor"
)

func TestCPUBackend_Concat(t *testing.T) {
	b := newTestBackend()

	x := raw64(t, tensor.Shape{2, 1}, 1, 2)
	y := raw64(t, tensor.Shape{2, 2}, 3, 4, 5, 6)

	out := alloc(t, b, tensor.Shape{2, 3}, tensor.Float64)
	require.NoError(t, b.Concat([]*tensor.RawTensor{x, y}, 1, out))
	assert.Equal(t, []float64{1, 3, 4, 2, 5, 6}, tensor.Values[float64](out))

	out = alloc(t, b, tensor.Shape{2, 3}, tensor.Float64)
	require.NoError(t, b.Concat([]*tensor.RawTensor{x, y}, -1, out))
	assert.Equal(t, []float64{1, 3, 4, 2, 5, 6}, tensor.Values[float64](out))
}

func TestCPUBackend_ConcatAxis0(t *testing.T) {
	b := newTestBackend()

	x := raw32(t, tensor.Shape{1, 2}, 1, 2)
	y := raw32(t, tensor.Shape{2, 2}, 3, 4, 5, 6)

	out := alloc(t, b, tensor.Shape{3, 2}, tensor.Float32)
	require.NoError(t, b.Concat([]*tensor.RawTensor{x, y}, 0, out))
	assert.Equal(t, []float32{1, 2, 3, 4, 5, 6}, tensor.Values[float32](out))
}

func TestCPUBackend_ConcatMismatch(t *testing.T) {
	b := newTestBackend()

	x := raw64(t, tensor.Shape{2, 1}, 1, 2)
	y := raw64(t, tensor.Shape{3, 1}, 3, 4, 5)
	out := alloc(t, b, tensor.Shape{5, 1}, tensor.Float64)

	assert.ErrorIs(t, b.Concat([]*tensor.RawTensor{x, y}, 1, out), tensor.ErrShapeMismatch)
}

func TestCPUBackend_SplitInvertsConcat(t *testing.T) {
	b := newTestBackend()

	x := raw64(t, tensor.Shape{2, 3}, 1, 3, 4, 2, 5, 6)
	left := alloc(t, b, tensor.Shape{2, 1}, tensor.Float64)
	right := alloc(t, b, tensor.Shape{2, 2}, tensor.Float64)

	require.NoError(t, b.Split(x, 1, []*tensor.RawTensor{left, right}))
	assert.Equal(t, []float64{1, 2}, tensor.Values[float64](left))
	assert.Equal(t, []float64{3, 4, 5, 6}, tensor.Values[float64](right))

	bad := alloc(t, b, tensor.Shape{2, 1}, tensor.Float64)
	assert.ErrorIs(t, b.Split(x, 1, []*tensor.RawTensor{left, bad}), tensor.ErrShapeMismatch)
}
