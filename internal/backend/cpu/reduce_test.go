package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/tapegrad/internal/tensor"
)

func TestCPUBackend_SumAxes(t *testing.T) {
	b := newTestBackend()

	// [[1, 2, 3], [4, 5, 6]]
	x := raw64(t, tensor.Shape{2, 3}, 1, 2, 3, 4, 5, 6)

	tests := []struct {
		name  string
		axes  []int
		shape tensor.Shape
		want  []float64
	}{
		{"axis0_keepdims", []int{0}, tensor.Shape{1, 3}, []float64{5, 7, 9}},
		{"axis1_squeezed", []int{1}, tensor.Shape{2}, []float64{6, 15}},
		{"negative_axis", []int{-1}, tensor.Shape{2, 1}, []float64{6, 15}},
		{"all", []int{0, 1}, tensor.Shape{}, []float64{21}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := alloc(t, b, tt.shape, tensor.Float64)
			require.NoError(t, b.SumAxes(x, tt.axes, out))
			assert.Equal(t, tt.want, tensor.Values[float64](out))
		})
	}
}

func TestCPUBackend_SumAxes3D(t *testing.T) {
	b := newTestBackend()

	data := make([]float32, 24)
	for i := range data {
		data[i] = float32(i)
	}
	x := raw32(t, tensor.Shape{2, 3, 4}, data...)

	out := alloc(t, b, tensor.Shape{1, 3, 1}, tensor.Float32)
	require.NoError(t, b.SumAxes(x, []int{0, 2}, out))

	// Row j sums i*12 + j*4 + k over i in [0,2), k in [0,4).
	assert.Equal(t, []float32{60, 92, 124}, tensor.Values[float32](out))
}

func TestCPUBackend_SumAxesBadOut(t *testing.T) {
	b := newTestBackend()

	x := raw64(t, tensor.Shape{2, 3}, 1, 2, 3, 4, 5, 6)
	out := alloc(t, b, tensor.Shape{3, 1}, tensor.Float64)
	assert.ErrorIs(t, b.SumAxes(x, []int{1}, out), tensor.ErrShapeMismatch)
	assert.ErrorIs(t, b.SumAxes(x, []int{2}, out), tensor.ErrShapeMismatch)
}
