package nn_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/tapegrad/internal/autodiff"
	"github.com/born-ml/tapegrad/internal/backend/cpu"
	"github.com/born-ml/tapegrad/internal/nn"
	"github.com/born-ml/tapegrad/internal/tensor"
)

func TestActivations(t *testing.T) {
	b := cpu.New()
	x := []float64{-1, 0.5, 2}

	tests := []struct {
		name   string
		module nn.TensorModule[float64, *cpu.CPUBackend]
		want   func(float64) float64
	}{
		{"tanh", nn.Tanh[float64, *cpu.CPUBackend]{}, math.Tanh},
		{"sigmoid", nn.Sigmoid[float64, *cpu.CPUBackend]{}, func(v float64) float64 { return 1 / (1 + math.Exp(-v)) }},
		{"relu", nn.ReLU[float64, *cpu.CPUBackend]{}, func(v float64) float64 { return math.Max(v, 0) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			y, err := tt.module.TryForward(fromSlice(t, b, tensor.Shape{3}, x...))
			require.NoError(t, err)
			for i, v := range y.Data() {
				assert.InDelta(t, tt.want(x[i]), v, 1e-12)
			}
			assert.Nil(t, tt.module.Parameters())
		})
	}
}

func TestLn_Gradient(t *testing.T) {
	b := cpu.New()
	tape := autodiff.NewTape()
	x := fromSlice(t, b, tensor.Shape{2}, 2, 4).Track(tape)

	y, err := nn.Ln[float64, *cpu.CPUBackend]{}.TryForward(x)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{math.Log(2), math.Log(4)}, y.Data(), 1e-12)

	grads, err := autodiff.Backward(y.Sum())
	require.NoError(t, err)
	dx, ok := autodiff.GradOf(grads, x)
	require.True(t, ok)
	assert.InDeltaSlice(t, []float64{0.5, 0.25}, dx.Data(), 1e-12)
}
