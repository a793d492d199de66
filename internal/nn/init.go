package nn

import (
	"math"
	"math/rand"

	"github.com/born-ml/tapegrad/internal/autodiff"
	"github.com/born-ml/tapegrad/internal/tensor"
)

// Xavier (Glorot) initialization for weights.
//
// Draws values from U(-sqrt(6/(fan_in + fan_out)), sqrt(6/(fan_in + fan_out))).
// The same seeded rng reproduces the same weights.
func Xavier[T tensor.DType, B tensor.Backend](
	fanIn, fanOut int, shape tensor.Shape, rng *rand.Rand, backend B,
) (*autodiff.Tensor[T, B], error) {
	bound := math.Sqrt(6.0 / float64(fanIn+fanOut))

	data := make([]T, shape.NumElements())
	for i := range data {
		data[i] = T((rng.Float64()*2.0 - 1.0) * bound)
	}
	return autodiff.FromSlice(data, shape, backend)
}
