// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package autodiff provides tape-based reverse-mode automatic differentiation.
//
// Tensors carry an optional tape. Ops on tracked tensors append one record
// each; Backward consumes the tape, replays it in reverse and returns a
// gradient for every input of every recorded op, keyed by tensor id.
//
// Example:
//
//	import (
//	    "github.com/born-ml/tapegrad/autodiff"
//	    "github.com/born-ml/tapegrad/backend/cpu"
//	    "github.com/born-ml/tapegrad/tensor"
//	)
//
//	func main() {
//	    backend := cpu.New()
//	    tape := autodiff.NewTape()
//
//	    x, _ := autodiff.FromSlice([]float64{1, 2}, tensor.Shape{2}, backend)
//	    x = x.Track(tape)
//	    y, _ := x.Retaped().TryMul(x)
//	    loss, _ := y.TrySum()
//
//	    grads, _ := autodiff.Backward(loss)
//	    dx, _ := autodiff.GradOf(grads, x) // [2, 4]
//	}
package autodiff

import (
	"context"
	"io"
	"math/rand"

	"github.com/born-ml/tapegrad/internal/autodiff"
	"github.com/born-ml/tapegrad/tensor"
)

// Tensor is a typed tensor that optionally records onto a tape.
type Tensor[T tensor.DType, B tensor.Backend] = autodiff.Tensor[T, B]

// Tape is an append-only record of differentiable ops.
type Tape = autodiff.Tape

// TapeState is the lifecycle state of a tape.
type TapeState = autodiff.TapeState

// Tape states.
const (
	TapeEmpty     = autodiff.TapeEmpty
	TapeRecording = autodiff.TapeRecording
	TapeConsumed  = autodiff.TapeConsumed
)

// TapeEntry is the serializable view of one tape record.
type TapeEntry = autodiff.TapeEntry

// Gradients maps tensor ids to accumulated gradients.
type Gradients = autodiff.Gradients

// NewTape returns an empty tape.
func NewTape() *Tape {
	return autodiff.NewTape()
}

// DecodeDump reads a tape dump written by Tape.Dump.
func DecodeDump(r io.Reader) (state string, entries []TapeEntry, err error) {
	return autodiff.DecodeDump(r)
}

// Creation

// FromSlice creates an untracked tensor from data.
func FromSlice[T tensor.DType, B tensor.Backend](data []T, shape tensor.Shape, b B) (*Tensor[T, B], error) {
	return autodiff.FromSlice(data, shape, b)
}

// FromSliceSpec creates a tensor whose shape is spec bound to dynamic.
func FromSliceSpec[T tensor.DType, B tensor.Backend](data []T, spec tensor.ShapeSpec, b B, dynamic ...int) (*Tensor[T, B], error) {
	return autodiff.FromSliceSpec(data, spec, b, dynamic...)
}

// Full creates a tensor filled with value.
func Full[T tensor.DType, B tensor.Backend](shape tensor.Shape, value T, b B) (*Tensor[T, B], error) {
	return autodiff.Full(shape, value, b)
}

// Zeros creates a tensor filled with zeros.
func Zeros[T tensor.DType, B tensor.Backend](shape tensor.Shape, b B) (*Tensor[T, B], error) {
	return autodiff.Zeros[T](shape, b)
}

// Ones creates a tensor filled with ones.
func Ones[T tensor.DType, B tensor.Backend](shape tensor.Shape, b B) (*Tensor[T, B], error) {
	return autodiff.Ones[T](shape, b)
}

// Scalar creates a rank-0 tensor.
func Scalar[T tensor.DType, B tensor.Backend](value T, b B) (*Tensor[T, B], error) {
	return autodiff.Scalar(value, b)
}

// Randn creates a tensor of standard normal samples drawn from rng.
func Randn[T tensor.DType, B tensor.Backend](shape tensor.Shape, rng *rand.Rand, b B) (*Tensor[T, B], error) {
	return autodiff.Randn[T](shape, rng, b)
}

// Must panics if err is non-nil and returns t otherwise.
func Must[T tensor.DType, B tensor.Backend](t *Tensor[T, B], err error) *Tensor[T, B] {
	return autodiff.Must(t, err)
}

// Backward

// Backward consumes loss's tape and returns gradients seeded with ones.
func Backward[T tensor.DType, B tensor.Backend](loss *Tensor[T, B]) (*Gradients, error) {
	return autodiff.Backward(loss)
}

// BackwardWithSeed is Backward with an explicit output gradient.
func BackwardWithSeed[T tensor.DType, B tensor.Backend](loss, seed *Tensor[T, B]) (*Gradients, error) {
	return autodiff.BackwardWithSeed(loss, seed)
}

// BackwardContext is BackwardWithSeed with a trace context. A nil seed means ones.
func BackwardContext[T tensor.DType, B tensor.Backend](ctx context.Context, loss, seed *Tensor[T, B]) (*Gradients, error) {
	return autodiff.BackwardContext(ctx, loss, seed)
}

// GradOf returns the gradient of t as a tensor, or ok == false when there is none.
func GradOf[T tensor.DType, B tensor.Backend](g *Gradients, t *Tensor[T, B]) (*Tensor[T, B], bool) {
	return autodiff.GradOf(g, t)
}
