// Package autodiff implements reverse-mode automatic differentiation with
// an explicit execution tape.
//
// Architecture:
//   - Tensor[T, B]: typed handle over backend storage with an id and an
//     optional *Tape
//   - Dispatch: every Try* op resolves the operands' tape, validates shapes,
//     broadcasts on this side of the kernel contract, runs the backend
//     kernel and appends one ops.Record
//   - Tape: Empty → Recording → Consumed; consumed exactly once by Backward
//   - Backward: replays records in reverse and sums contributions per id
//
// Usage:
//
//	backend := cpu.New()
//	tape := autodiff.NewTape()
//
//	x := autodiff.Must(autodiff.FromSlice([]float64{0.5, 2}, tensor.Shape{2}, backend)).Track(tape)
//	y := x.Ln().Tanh().Sum()
//
//	grads, err := autodiff.Backward(y)
//	dx, _ := autodiff.GradOf(grads, x)
//
// There is no ambient tape: a tensor is recorded only if it, or another
// operand of the same op, carries a tape. Operands on two different tapes
// are rejected with tensor.ErrTapeMisuse.
package autodiff
