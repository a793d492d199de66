package cpu

import (
	"math"

	"github.com/pkg/errors"

	"github.com/born-ml/tapegrad/internal/tensor"
)

// unaryKernel pairs a forward function with its derivative, both evaluated at x.
type unaryKernel[T tensor.DType] struct {
	f  func(x T) T
	df func(x T) T
}

// binaryKernel pairs a forward function with both partial derivatives,
// all evaluated at the inputs (x, y).
type binaryKernel[T tensor.DType] struct {
	f    func(x, y T) T
	dfdx func(x, y T) T
	dfdy func(x, y T) T
}

func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

// unaryKernelFor returns the kernel for op instantiated at T.
//
//nolint:gocyclo,cyclop // one case per kernel
func unaryKernelFor[T tensor.DType](op tensor.UnaryOp) (unaryKernel[T], error) {
	s := T(op.Scalar)
	switch op.Kind {
	case tensor.Neg:
		return unaryKernel[T]{
			f:  func(x T) T { return -x },
			df: func(T) T { return -1 },
		}, nil
	case tensor.Exp:
		return unaryKernel[T]{
			f:  func(x T) T { return T(math.Exp(float64(x))) },
			df: func(x T) T { return T(math.Exp(float64(x))) },
		}, nil
	case tensor.Ln:
		return unaryKernel[T]{
			f:  func(x T) T { return T(math.Log(float64(x))) },
			df: func(x T) T { return 1 / x },
		}, nil
	case tensor.Sqrt:
		return unaryKernel[T]{
			f:  func(x T) T { return T(math.Sqrt(float64(x))) },
			df: func(x T) T { return T(0.5 / math.Sqrt(float64(x))) },
		}, nil
	case tensor.Square:
		return unaryKernel[T]{
			f:  func(x T) T { return x * x },
			df: func(x T) T { return 2 * x },
		}, nil
	case tensor.Abs:
		return unaryKernel[T]{
			f: func(x T) T { return T(math.Abs(float64(x))) },
			df: func(x T) T {
				switch {
				case x > 0:
					return 1
				case x < 0:
					return -1
				default:
					return 0
				}
			},
		}, nil
	case tensor.Sin:
		return unaryKernel[T]{
			f:  func(x T) T { return T(math.Sin(float64(x))) },
			df: func(x T) T { return T(math.Cos(float64(x))) },
		}, nil
	case tensor.Cos:
		return unaryKernel[T]{
			f:  func(x T) T { return T(math.Cos(float64(x))) },
			df: func(x T) T { return T(-math.Sin(float64(x))) },
		}, nil
	case tensor.Tanh:
		return unaryKernel[T]{
			f: func(x T) T { return T(math.Tanh(float64(x))) },
			df: func(x T) T {
				t := math.Tanh(float64(x))
				return T(1 - t*t)
			},
		}, nil
	case tensor.Sigmoid:
		return unaryKernel[T]{
			f: func(x T) T { return T(sigmoid(float64(x))) },
			df: func(x T) T {
				sv := sigmoid(float64(x))
				return T(sv * (1 - sv))
			},
		}, nil
	case tensor.ReLU:
		return unaryKernel[T]{
			f: func(x T) T {
				if x > 0 {
					return x
				}
				return 0
			},
			df: func(x T) T {
				if x > 0 {
					return 1
				}
				return 0
			},
		}, nil
	case tensor.AddScalar:
		return unaryKernel[T]{
			f:  func(x T) T { return x + s },
			df: func(T) T { return 1 },
		}, nil
	case tensor.MulScalar:
		return unaryKernel[T]{
			f:  func(x T) T { return x * s },
			df: func(T) T { return s },
		}, nil
	case tensor.PowScalar:
		p := op.Scalar
		return unaryKernel[T]{
			f:  func(x T) T { return T(math.Pow(float64(x), p)) },
			df: func(x T) T { return T(p * math.Pow(float64(x), p-1)) },
		}, nil
	default:
		return unaryKernel[T]{}, errors.Errorf("cpu: unknown unary kernel %d", op.Kind)
	}
}

// binaryKernelFor returns the kernel for op instantiated at T.
func binaryKernelFor[T tensor.DType](op tensor.BinaryOp) (binaryKernel[T], error) {
	switch op {
	case tensor.Add:
		return binaryKernel[T]{
			f:    func(x, y T) T { return x + y },
			dfdx: func(_, _ T) T { return 1 },
			dfdy: func(_, _ T) T { return 1 },
		}, nil
	case tensor.Sub:
		return binaryKernel[T]{
			f:    func(x, y T) T { return x - y },
			dfdx: func(_, _ T) T { return 1 },
			dfdy: func(_, _ T) T { return -1 },
		}, nil
	case tensor.Mul:
		return binaryKernel[T]{
			f:    func(x, y T) T { return x * y },
			dfdx: func(_, y T) T { return y },
			dfdy: func(x, _ T) T { return x },
		}, nil
	case tensor.Div:
		return binaryKernel[T]{
			f:    func(x, y T) T { return x / y },
			dfdx: func(_, y T) T { return 1 / y },
			dfdy: func(x, y T) T { return -x / (y * y) },
		}, nil
	case tensor.Minimum:
		return binaryKernel[T]{
			f: func(x, y T) T {
				if x < y {
					return x
				}
				return y
			},
			dfdx: func(x, y T) T { return tieWeight[T](x < y, x > y) },
			dfdy: func(x, y T) T { return tieWeight[T](y < x, y > x) },
		}, nil
	case tensor.Maximum:
		return binaryKernel[T]{
			f: func(x, y T) T {
				if x > y {
					return x
				}
				return y
			},
			dfdx: func(x, y T) T { return tieWeight[T](x > y, x < y) },
			dfdy: func(x, y T) T { return tieWeight[T](y > x, y < x) },
		}, nil
	default:
		return binaryKernel[T]{}, errors.Errorf("cpu: unknown binary kernel %d", op)
	}
}

// tieWeight is 1 when this side wins, 0 when it loses, and 0.5 on a tie.
func tieWeight[T tensor.DType](wins, loses bool) T {
	switch {
	case wins:
		return 1
	case loses:
		return 0
	default:
		return 0.5
	}
}
