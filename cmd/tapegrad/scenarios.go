package main

import (
	"math/rand"

	"github.com/pkg/errors"

	"github.com/born-ml/tapegrad/autodiff"
	"github.com/born-ml/tapegrad/backend/cpu"
	"github.com/born-ml/tapegrad/nn"
	"github.com/born-ml/tapegrad/tensor"
)

type tensorOf[T tensor.DType] = autodiff.Tensor[T, *cpu.Backend]

// scenarioNames lists every value accepted by -scenario. "train" is handled
// by runTrain; the rest are built by buildScenario.
var scenarioNames = []string{"chain", "fanout", "broadcast", "minmax", "matmul", "lstm", "train"}

// input is one leaf of a scenario, stored as float64 so the finite
// difference check can perturb it independently of the element type.
type input struct {
	name  string
	shape tensor.Shape
	data  []float64
}

// scenario is a scalar function of its inputs.
type scenario[T tensor.DType] struct {
	inputs []input
	loss   func(xs []*tensorOf[T]) (*tensorOf[T], error)
}

// leaves builds the scenario's inputs, tracked on tape when it is non-nil.
// Element idx of input override is shifted by delta.
func (s scenario[T]) leaves(b *cpu.Backend, tape *autodiff.Tape, override, idx int, delta float64) ([]*tensorOf[T], error) {
	xs := make([]*tensorOf[T], len(s.inputs))
	for i, in := range s.inputs {
		data := make([]T, len(in.data))
		for j, v := range in.data {
			if i == override && j == idx {
				v += delta
			}
			data[j] = T(v)
		}
		x, err := autodiff.FromSlice(data, in.shape, b)
		if err != nil {
			return nil, errors.Wrapf(err, "input %s", in.name)
		}
		if tape != nil {
			x = x.Track(tape)
		}
		xs[i] = x
	}
	return xs, nil
}

func buildScenario[T tensor.DType](name string, b *cpu.Backend, rng *rand.Rand) (scenario[T], error) {
	switch name {
	case "chain":
		return scenario[T]{
			inputs: []input{{"x", tensor.Shape{3}, []float64{0.5, 1.0, 1.5}}},
			loss: func(xs []*tensorOf[T]) (*tensorOf[T], error) {
				x := xs[0]
				y, err := x.Retaped().TryLn()
				if err != nil {
					return nil, err
				}
				if y, err = y.TryTanh(); err != nil {
					return nil, err
				}
				if y, err = y.TryMul(x); err != nil {
					return nil, err
				}
				return y.TrySum()
			},
		}, nil

	case "fanout":
		return scenario[T]{
			inputs: []input{{"x", tensor.Shape{2, 2}, []float64{0.1, -0.4, 0.9, 1.3}}},
			loss: func(xs []*tensorOf[T]) (*tensorOf[T], error) {
				x := xs[0]
				sq, err := x.Retaped().TrySquare()
				if err != nil {
					return nil, err
				}
				sin, err := x.Retaped().TrySin()
				if err != nil {
					return nil, err
				}
				y, err := sq.TryAdd(sin)
				if err != nil {
					return nil, err
				}
				if y, err = y.TryAdd(x); err != nil {
					return nil, err
				}
				return y.TrySum()
			},
		}, nil

	case "broadcast":
		return scenario[T]{
			inputs: []input{
				{"a", tensor.Shape{2, 3}, []float64{0.1, 0.2, 0.3, -0.4, -0.5, -0.6}},
				{"b", tensor.Shape{3}, []float64{1, -1, 0.5}},
				{"c", tensor.Shape{2, 1}, []float64{2, -3}},
			},
			loss: func(xs []*tensorOf[T]) (*tensorOf[T], error) {
				y, err := xs[0].TryAdd(xs[1])
				if err != nil {
					return nil, err
				}
				if y, err = y.TryMul(xs[2]); err != nil {
					return nil, err
				}
				if y, err = y.TrySquare(); err != nil {
					return nil, err
				}
				return y.TryMean()
			},
		}, nil

	case "minmax":
		// Elements 1 and 3 tie, so each side receives half the gradient.
		return scenario[T]{
			inputs: []input{
				{"a", tensor.Shape{4}, []float64{1, 2, 3, 4}},
				{"b", tensor.Shape{4}, []float64{4, 2, 1, 4}},
			},
			loss: func(xs []*tensorOf[T]) (*tensorOf[T], error) {
				lo, err := xs[0].TryMinimum(xs[1])
				if err != nil {
					return nil, err
				}
				hi, err := xs[0].TryMaximum(xs[1])
				if err != nil {
					return nil, err
				}
				if lo, err = lo.TryMulScalar(2); err != nil {
					return nil, err
				}
				if hi, err = hi.TrySquare(); err != nil {
					return nil, err
				}
				y, err := lo.TryAdd(hi)
				if err != nil {
					return nil, err
				}
				return y.TrySum()
			},
		}, nil

	case "matmul":
		return scenario[T]{
			inputs: []input{
				{"x", tensor.Shape{2, 3}, []float64{0.2, -0.1, 0.4, 0.7, 0.3, -0.5}},
				{"w", tensor.Shape{3, 2}, []float64{0.5, -0.2, 0.1, 0.3, -0.4, 0.6}},
			},
			loss: func(xs []*tensorOf[T]) (*tensorOf[T], error) {
				h, err := xs[0].TryMatMul(xs[1])
				if err != nil {
					return nil, err
				}
				joined, err := h.TryConcat(1, xs[0])
				if err != nil {
					return nil, err
				}
				parts, err := joined.TrySplit(1, 2, 3)
				if err != nil {
					return nil, err
				}
				left, err := parts[0].TrySigmoid()
				if err != nil {
					return nil, err
				}
				right, err := parts[1].TrySquare()
				if err != nil {
					return nil, err
				}
				ls, err := left.TrySum()
				if err != nil {
					return nil, err
				}
				rs, err := right.TrySum()
				if err != nil {
					return nil, err
				}
				return ls.TryAdd(rs)
			},
		}, nil

	case "lstm":
		lstm, err := nn.NewLSTM[T](3, 4, rng, b)
		if err != nil {
			return scenario[T]{}, err
		}
		return scenario[T]{
			inputs: []input{
				{"x0", tensor.Shape{3}, []float64{0.5, -0.3, 0.8}},
				{"x1", tensor.Shape{3}, []float64{-0.1, 0.4, 0.2}},
				{"x2", tensor.Shape{3}, []float64{0.9, 0.1, -0.6}},
			},
			loss: func(xs []*tensorOf[T]) (*tensorOf[T], error) {
				state, err := lstm.InitialState(0)
				if err != nil {
					return nil, err
				}
				for i, x := range xs {
					state, err = lstm.TryForward(nn.LSTMInput[T, *cpu.Backend]{X: x, State: state})
					if err != nil {
						return nil, errors.Wrapf(err, "step %d", i)
					}
				}
				return state.Hidden.TrySum()
			},
		}, nil
	}
	return scenario[T]{}, errors.Errorf("unknown scenario %q", name)
}
