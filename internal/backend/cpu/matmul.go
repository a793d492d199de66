package cpu

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"
	"gonum.org/v1/gonum/blas/blas64"

	"github.com/born-ml/tapegrad/internal/tensor"
)

// MatMul computes out = op(a) @ op(b) for 2-D tensors through gonum BLAS
// GEMM, where op transposes its argument when the matching flag is set.
//
// Shapes, with transposition applied:
//
//	op(a): (M, K)  op(b): (K, N)  out: (M, N)
//
// The transposed variants let the backward pass compute
// dA = dOut @ B^T and dB = A^T @ dOut without materializing transposes.
func (cpu *CPUBackend) MatMul(a, b, out *tensor.RawTensor, transA, transB bool) error {
	if err := tensor.CheckDTypes("matmul", a, b, out); err != nil {
		return err
	}
	aShape, bShape := a.Shape(), b.Shape()
	if len(aShape) != 2 || len(bShape) != 2 {
		return tensor.NewShapeMismatch("matmul", aShape, bShape)
	}

	m, k := aShape[0], aShape[1]
	if transA {
		m, k = k, m
	}
	kb, n := bShape[0], bShape[1]
	if transB {
		kb, n = n, kb
	}
	if k != kb {
		return tensor.NewShapeMismatch("matmul", aShape, bShape)
	}
	if want := (tensor.Shape{m, n}); !out.Shape().Equal(want) {
		return tensor.NewShapeMismatch("matmul", want, out.Shape())
	}
	kernelLaunches.WithLabelValues("matmul").Inc()

	ta, tb := blasTrans(transA), blasTrans(transB)
	switch a.DType() {
	case tensor.Float32:
		blas32.Gemm(ta, tb, 1,
			general32(a), general32(b),
			0, blas32.General{Rows: m, Cols: n, Stride: n, Data: tensor.Values[float32](out)})
	case tensor.Float64:
		blas64.Gemm(ta, tb, 1,
			general64(a), general64(b),
			0, blas64.General{Rows: m, Cols: n, Stride: n, Data: tensor.Values[float64](out)})
	default:
		return errors.Errorf("matmul: unsupported dtype %s", a.DType())
	}
	return nil
}

func blasTrans(t bool) blas.Transpose {
	if t {
		return blas.Trans
	}
	return blas.NoTrans
}

// general32 wraps a row-major 2-D tensor as it is stored, untransposed.
func general32(r *tensor.RawTensor) blas32.General {
	s := r.Shape()
	return blas32.General{Rows: s[0], Cols: s[1], Stride: s[1], Data: tensor.Values[float32](r)}
}

func general64(r *tensor.RawTensor) blas64.General {
	s := r.Shape()
	return blas64.General{Rows: s[0], Cols: s[1], Stride: s[1], Data: tensor.Values[float64](r)}
}
