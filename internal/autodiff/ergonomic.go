package autodiff

import "github.com/born-ml/tapegrad/internal/tensor"

// Ergonomic wrappers over the Try* ops. They panic on error and are meant
// for scripts and tests; composed code (layers, optimizers) uses Try*.

// Add is TryAdd that panics on error.
func (t *Tensor[T, B]) Add(other *Tensor[T, B]) *Tensor[T, B] {
	return Must(t.TryAdd(other))
}

// Sub is TrySub that panics on error.
func (t *Tensor[T, B]) Sub(other *Tensor[T, B]) *Tensor[T, B] {
	return Must(t.TrySub(other))
}

// Mul is TryMul that panics on error.
func (t *Tensor[T, B]) Mul(other *Tensor[T, B]) *Tensor[T, B] {
	return Must(t.TryMul(other))
}

// Div is TryDiv that panics on error.
func (t *Tensor[T, B]) Div(other *Tensor[T, B]) *Tensor[T, B] {
	return Must(t.TryDiv(other))
}

// Minimum is TryMinimum that panics on error.
func (t *Tensor[T, B]) Minimum(other *Tensor[T, B]) *Tensor[T, B] {
	return Must(t.TryMinimum(other))
}

// Maximum is TryMaximum that panics on error.
func (t *Tensor[T, B]) Maximum(other *Tensor[T, B]) *Tensor[T, B] {
	return Must(t.TryMaximum(other))
}

// MatMul is TryMatMul that panics on error.
func (t *Tensor[T, B]) MatMul(other *Tensor[T, B]) *Tensor[T, B] {
	return Must(t.TryMatMul(other))
}

// Neg is TryNeg that panics on error.
func (t *Tensor[T, B]) Neg() *Tensor[T, B] {
	return Must(t.TryNeg())
}

// Exp is TryExp that panics on error.
func (t *Tensor[T, B]) Exp() *Tensor[T, B] {
	return Must(t.TryExp())
}

// Ln is TryLn that panics on error.
func (t *Tensor[T, B]) Ln() *Tensor[T, B] {
	return Must(t.TryLn())
}

// Sqrt is TrySqrt that panics on error.
func (t *Tensor[T, B]) Sqrt() *Tensor[T, B] {
	return Must(t.TrySqrt())
}

// Square is TrySquare that panics on error.
func (t *Tensor[T, B]) Square() *Tensor[T, B] {
	return Must(t.TrySquare())
}

// Abs is TryAbs that panics on error.
func (t *Tensor[T, B]) Abs() *Tensor[T, B] {
	return Must(t.TryAbs())
}

// Sin is TrySin that panics on error.
func (t *Tensor[T, B]) Sin() *Tensor[T, B] {
	return Must(t.TrySin())
}

// Cos is TryCos that panics on error.
func (t *Tensor[T, B]) Cos() *Tensor[T, B] {
	return Must(t.TryCos())
}

// Tanh is TryTanh that panics on error.
func (t *Tensor[T, B]) Tanh() *Tensor[T, B] {
	return Must(t.TryTanh())
}

// Sigmoid is TrySigmoid that panics on error.
func (t *Tensor[T, B]) Sigmoid() *Tensor[T, B] {
	return Must(t.TrySigmoid())
}

// ReLU is TryReLU that panics on error.
func (t *Tensor[T, B]) ReLU() *Tensor[T, B] {
	return Must(t.TryReLU())
}

// Sum is TrySum that panics on error.
func (t *Tensor[T, B]) Sum() *Tensor[T, B] {
	return Must(t.TrySum())
}

// Mean is TryMean that panics on error.
func (t *Tensor[T, B]) Mean() *Tensor[T, B] {
	return Must(t.TryMean())
}

// AddScalar is TryAddScalar that panics on error.
func (t *Tensor[T, B]) AddScalar(s T) *Tensor[T, B] {
	return Must(t.TryAddScalar(s))
}

// MulScalar is TryMulScalar that panics on error.
func (t *Tensor[T, B]) MulScalar(s T) *Tensor[T, B] {
	return Must(t.TryMulScalar(s))
}

// PowScalar is TryPowScalar that panics on error.
func (t *Tensor[T, B]) PowScalar(s T) *Tensor[T, B] {
	return Must(t.TryPowScalar(s))
}

// SumAxes is TrySumAxes that panics on error.
func (t *Tensor[T, B]) SumAxes(axes ...int) *Tensor[T, B] {
	return Must(t.TrySumAxes(axes...))
}

// Reshape is TryReshape that panics on error.
func (t *Tensor[T, B]) Reshape(shape tensor.Shape) *Tensor[T, B] {
	return Must(t.TryReshape(shape))
}

// BroadcastTo is TryBroadcastTo that panics on error.
func (t *Tensor[T, B]) BroadcastTo(shape tensor.Shape) *Tensor[T, B] {
	return Must(t.TryBroadcastTo(shape))
}

// Concat is TryConcat that panics on error.
func (t *Tensor[T, B]) Concat(axis int, others ...*Tensor[T, B]) *Tensor[T, B] {
	return Must(t.TryConcat(axis, others...))
}

// Split is TrySplit that panics on error.
func (t *Tensor[T, B]) Split(axis int, sizes ...int) []*Tensor[T, B] {
	parts, err := t.TrySplit(axis, sizes...)
	if err != nil {
		panic(err)
	}
	return parts
}
