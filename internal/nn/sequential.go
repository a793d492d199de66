package nn

import (
	"strconv"

	"github.com/pkg/errors"

	"github.com/born-ml/tapegrad/internal/autodiff"
	"github.com/born-ml/tapegrad/internal/tensor"
)

// Sequential chains modules: each module's output is the next one's input.
//
// Example:
//
//	model := nn.NewSequential[float32, *cpu.CPUBackend](
//	    linear1,
//	    nn.Tanh[float32, *cpu.CPUBackend]{},
//	    linear2,
//	)
//	y, err := model.TryForward(x)
type Sequential[T tensor.DType, B tensor.Backend] struct {
	modules []TensorModule[T, B]
}

// NewSequential creates a Sequential container.
func NewSequential[T tensor.DType, B tensor.Backend](modules ...TensorModule[T, B]) *Sequential[T, B] {
	return &Sequential[T, B]{modules: modules}
}

// TryForward applies all modules in order, stopping at the first error.
func (s *Sequential[T, B]) TryForward(x *autodiff.Tensor[T, B]) (*autodiff.Tensor[T, B], error) {
	out := x
	for i, m := range s.modules {
		var err error
		if out, err = m.TryForward(out); err != nil {
			return nil, errors.Wrapf(err, "sequential layer %d", i)
		}
	}
	return out, nil
}

// Parameters returns the parameters of every module, prefixed with the
// module's index.
func (s *Sequential[T, B]) Parameters() []*Parameter[T, B] {
	var params []*Parameter[T, B]
	for i, m := range s.modules {
		params = append(params, prefixed(strconv.Itoa(i), m.Parameters())...)
	}
	return params
}
