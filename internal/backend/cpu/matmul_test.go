package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/tapegrad/internal/tensor"
)

func TestCPUBackend_MatMul(t *testing.T) {
	b := newTestBackend()

	// (2, 3) @ (3, 2)
	a := raw64(t, tensor.Shape{2, 3}, 1, 2, 3, 4, 5, 6)
	m := raw64(t, tensor.Shape{3, 2}, 7, 8, 9, 10, 11, 12)
	out := alloc(t, b, tensor.Shape{2, 2}, tensor.Float64)

	require.NoError(t, b.MatMul(a, m, out, false, false))
	assert.Equal(t, []float64{58, 64, 139, 154}, tensor.Values[float64](out))
}

func TestCPUBackend_MatMulTransposed(t *testing.T) {
	b := newTestBackend()

	a := raw32(t, tensor.Shape{2, 3}, 1, 2, 3, 4, 5, 6)

	// a^T @ a: (3, 3)
	out := alloc(t, b, tensor.Shape{3, 3}, tensor.Float32)
	require.NoError(t, b.MatMul(a, a, out, true, false))
	assert.Equal(t, []float32{17, 22, 27, 22, 29, 36, 27, 36, 45}, tensor.Values[float32](out))

	// a @ a^T: (2, 2)
	out = alloc(t, b, tensor.Shape{2, 2}, tensor.Float32)
	require.NoError(t, b.MatMul(a, a, out, false, true))
	assert.Equal(t, []float32{14, 32, 32, 77}, tensor.Values[float32](out))
}

func TestCPUBackend_MatMulShapeMismatch(t *testing.T) {
	b := newTestBackend()

	a := raw64(t, tensor.Shape{2, 3}, 1, 2, 3, 4, 5, 6)
	out := alloc(t, b, tensor.Shape{2, 2}, tensor.Float64)

	err := b.MatMul(a, a, out, false, false)
	require.Error(t, err)
	assert.ErrorIs(t, err, tensor.ErrShapeMismatch)

	v := raw64(t, tensor.Shape{3}, 1, 2, 3)
	assert.ErrorIs(t, b.MatMul(a, v, out, false, false), tensor.ErrShapeMismatch)
}
