package nn

import (
	"math/rand"

	"github.com/pkg/errors"

	"github.com/born-ml/tapegrad/internal/autodiff"
	"github.com/born-ml/tapegrad/internal/tensor"
)

// LSTMState is the recurrent state carried between LSTM steps.
type LSTMState[T tensor.DType, B tensor.Backend] struct {
	Cell   *autodiff.Tensor[T, B]
	Hidden *autodiff.Tensor[T, B]
}

// LSTMInput bundles one step's input with the previous state.
type LSTMInput[T tensor.DType, B tensor.Backend] struct {
	X     *autodiff.Tensor[T, B]
	State LSTMState[T, B]
}

// LSTM is a single long short-term memory cell.
//
// Each step concatenates [hidden, x] along the last axis and feeds the
// result to four gate layers:
//
//	f = sigmoid(forget(hx))
//	u = sigmoid(update(hx))
//	o = sigmoid(output(hx))
//	c~ = tanh(candidate(hx))
//	cell'   = c~ * u + cell * f
//	hidden' = o * cell'
//
// Shapes: x is [in] or [batch, in]; cell and hidden are [hidden] or
// [batch, hidden] accordingly.
type LSTM[T tensor.DType, B tensor.Backend] struct {
	inSize     int
	hiddenSize int
	backend    B

	forget    *Linear[T, B]
	update    *Linear[T, B]
	output    *Linear[T, B]
	candidate *Linear[T, B]
}

// NewLSTM creates an LSTM cell with Xavier-initialized gates.
func NewLSTM[T tensor.DType, B tensor.Backend](inSize, hiddenSize int, rng *rand.Rand, backend B) (*LSTM[T, B], error) {
	gates := make([]*Linear[T, B], 4)
	for i := range gates {
		l, err := NewLinear[T](hiddenSize+inSize, hiddenSize, rng, backend)
		if err != nil {
			return nil, errors.Wrap(err, "lstm")
		}
		gates[i] = l
	}
	return &LSTM[T, B]{
		inSize:     inSize,
		hiddenSize: hiddenSize,
		backend:    backend,
		forget:     gates[0],
		update:     gates[1],
		output:     gates[2],
		candidate:  gates[3],
	}, nil
}

// InitialState returns a zero cell and hidden state. batch <= 0 gives 1-D
// state vectors.
func (l *LSTM[T, B]) InitialState(batch int) (LSTMState[T, B], error) {
	shape := tensor.Shape{l.hiddenSize}
	if batch > 0 {
		shape = tensor.Shape{batch, l.hiddenSize}
	}
	cell, err := autodiff.Zeros[T](shape, l.backend)
	if err != nil {
		return LSTMState[T, B]{}, err
	}
	hidden, err := autodiff.Zeros[T](shape, l.backend)
	if err != nil {
		return LSTMState[T, B]{}, err
	}
	return LSTMState[T, B]{Cell: cell, Hidden: hidden}, nil
}

// TryForward runs one step and returns the next state.
func (l *LSTM[T, B]) TryForward(in LSTMInput[T, B]) (LSTMState[T, B], error) {
	hx, err := in.State.Hidden.TryConcat(-1, in.X)
	if err != nil {
		return LSTMState[T, B]{}, errors.Wrap(err, "lstm concat")
	}

	gate := func(lin *Linear[T, B], act func(*autodiff.Tensor[T, B]) (*autodiff.Tensor[T, B], error)) (*autodiff.Tensor[T, B], error) {
		z, err := lin.TryForward(hx.Retaped())
		if err != nil {
			return nil, err
		}
		return act(z)
	}
	sigmoid := func(t *autodiff.Tensor[T, B]) (*autodiff.Tensor[T, B], error) { return t.TrySigmoid() }
	tanh := func(t *autodiff.Tensor[T, B]) (*autodiff.Tensor[T, B], error) { return t.TryTanh() }

	f, err := gate(l.forget, sigmoid)
	if err != nil {
		return LSTMState[T, B]{}, errors.Wrap(err, "lstm forget gate")
	}
	u, err := gate(l.update, sigmoid)
	if err != nil {
		return LSTMState[T, B]{}, errors.Wrap(err, "lstm update gate")
	}
	o, err := gate(l.output, sigmoid)
	if err != nil {
		return LSTMState[T, B]{}, errors.Wrap(err, "lstm output gate")
	}
	cand, err := gate(l.candidate, tanh)
	if err != nil {
		return LSTMState[T, B]{}, errors.Wrap(err, "lstm candidate")
	}

	kept, err := in.State.Cell.TryMul(f)
	if err != nil {
		return LSTMState[T, B]{}, errors.Wrap(err, "lstm cell")
	}
	written, err := cand.TryMul(u)
	if err != nil {
		return LSTMState[T, B]{}, errors.Wrap(err, "lstm cell")
	}
	cell, err := written.TryAdd(kept)
	if err != nil {
		return LSTMState[T, B]{}, errors.Wrap(err, "lstm cell")
	}
	hidden, err := o.TryMul(cell)
	if err != nil {
		return LSTMState[T, B]{}, errors.Wrap(err, "lstm hidden")
	}
	return LSTMState[T, B]{Cell: cell, Hidden: hidden}, nil
}

// HiddenSize returns the width of the cell and hidden state.
func (l *LSTM[T, B]) HiddenSize() int {
	return l.hiddenSize
}

// Parameters returns the parameters of all four gates.
func (l *LSTM[T, B]) Parameters() []*Parameter[T, B] {
	var params []*Parameter[T, B]
	params = append(params, prefixed("forget", l.forget.Parameters())...)
	params = append(params, prefixed("update", l.update.Parameters())...)
	params = append(params, prefixed("output", l.output.Parameters())...)
	params = append(params, prefixed("candidate", l.candidate.Parameters())...)
	return params
}
