package cpu

import (
	"github.com/pkg/errors"

	"github.com/born-ml/tapegrad/internal/parallel"
	"github.com/born-ml/tapegrad/internal/tensor"
)

// Unary computes out = f(x) element-wise.
func (cpu *CPUBackend) Unary(op tensor.UnaryOp, x, out *tensor.RawTensor) error {
	if err := checkOperands(op.String(), x, out); err != nil {
		return err
	}
	kernelLaunches.WithLabelValues(op.String()).Inc()

	switch x.DType() {
	case tensor.Float32:
		return unaryForward[float32](op, x, out, cpu.cfg.Parallel)
	case tensor.Float64:
		return unaryForward[float64](op, x, out, cpu.cfg.Parallel)
	default:
		return errors.Errorf("%s: unsupported dtype %s", op, x.DType())
	}
}

// UnaryBackward computes gradIn = f'(x) * gradOut element-wise.
func (cpu *CPUBackend) UnaryBackward(op tensor.UnaryOp, x, gradOut, gradIn *tensor.RawTensor) error {
	name := op.String() + "_backward"
	if err := checkOperands(name, x, gradOut, gradIn); err != nil {
		return err
	}
	kernelLaunches.WithLabelValues(name).Inc()

	switch x.DType() {
	case tensor.Float32:
		return unaryBackward[float32](op, x, gradOut, gradIn, cpu.cfg.Parallel)
	case tensor.Float64:
		return unaryBackward[float64](op, x, gradOut, gradIn, cpu.cfg.Parallel)
	default:
		return errors.Errorf("%s: unsupported dtype %s", name, x.DType())
	}
}

// Binary computes out = f(x, y) element-wise. x, y and out must share a shape.
func (cpu *CPUBackend) Binary(op tensor.BinaryOp, x, y, out *tensor.RawTensor) error {
	if err := checkOperands(op.String(), x, y, out); err != nil {
		return err
	}
	kernelLaunches.WithLabelValues(op.String()).Inc()

	switch x.DType() {
	case tensor.Float32:
		return binaryForward[float32](op, x, y, out, cpu.cfg.Parallel)
	case tensor.Float64:
		return binaryForward[float64](op, x, y, out, cpu.cfg.Parallel)
	default:
		return errors.Errorf("%s: unsupported dtype %s", op, x.DType())
	}
}

// BinaryBackward computes gradX = dfdx(x, y) * gradOut and
// gradY = dfdy(x, y) * gradOut. Either target may be nil.
func (cpu *CPUBackend) BinaryBackward(op tensor.BinaryOp, x, y, gradOut, gradX, gradY *tensor.RawTensor) error {
	name := op.String() + "_backward"
	if err := checkOperands(name, x, y, gradOut, gradX, gradY); err != nil {
		return err
	}
	kernelLaunches.WithLabelValues(name).Inc()

	switch x.DType() {
	case tensor.Float32:
		return binaryBackward[float32](op, x, y, gradOut, gradX, gradY, cpu.cfg.Parallel)
	case tensor.Float64:
		return binaryBackward[float64](op, x, y, gradOut, gradX, gradY, cpu.cfg.Parallel)
	default:
		return errors.Errorf("%s: unsupported dtype %s", name, x.DType())
	}
}

// Accumulate adds src into dst. A shared dst is detached onto its own
// buffer first, so other handles never see the write.
func (cpu *CPUBackend) Accumulate(dst, src *tensor.RawTensor) error {
	if err := checkOperands("accumulate", dst, src); err != nil {
		return err
	}
	kernelLaunches.WithLabelValues("accumulate").Inc()

	switch dst.DType() {
	case tensor.Float32:
		accumulate[float32](dst, src, cpu.cfg.Parallel)
	case tensor.Float64:
		accumulate[float64](dst, src, cpu.cfg.Parallel)
	default:
		return errors.Errorf("accumulate: unsupported dtype %s", dst.DType())
	}
	return nil
}

// checkOperands validates that all non-nil operands agree on dtype and shape.
func checkOperands(op string, raws ...*tensor.RawTensor) error {
	if err := tensor.CheckDTypes(op, raws...); err != nil {
		return err
	}
	return tensor.CheckSameShape(op, raws...)
}

func unaryForward[T tensor.DType](op tensor.UnaryOp, x, out *tensor.RawTensor, cfg parallel.Config) error {
	k, err := unaryKernelFor[T](op)
	if err != nil {
		return err
	}
	src := tensor.Values[T](x)
	dst := tensor.Values[T](out)
	parallel.For(len(src), func(i int) {
		dst[i] = k.f(src[i])
	}, cfg)
	return nil
}

func unaryBackward[T tensor.DType](op tensor.UnaryOp, x, gradOut, gradIn *tensor.RawTensor, cfg parallel.Config) error {
	k, err := unaryKernelFor[T](op)
	if err != nil {
		return err
	}
	src := tensor.Values[T](x)
	g := tensor.Values[T](gradOut)
	dst := tensor.Values[T](gradIn)
	parallel.For(len(src), func(i int) {
		dst[i] = k.df(src[i]) * g[i]
	}, cfg)
	return nil
}

func binaryForward[T tensor.DType](op tensor.BinaryOp, x, y, out *tensor.RawTensor, cfg parallel.Config) error {
	k, err := binaryKernelFor[T](op)
	if err != nil {
		return err
	}
	xs := tensor.Values[T](x)
	ys := tensor.Values[T](y)
	dst := tensor.Values[T](out)
	parallel.For(len(xs), func(i int) {
		dst[i] = k.f(xs[i], ys[i])
	}, cfg)
	return nil
}

func binaryBackward[T tensor.DType](
	op tensor.BinaryOp,
	x, y, gradOut, gradX, gradY *tensor.RawTensor,
	cfg parallel.Config,
) error {
	k, err := binaryKernelFor[T](op)
	if err != nil {
		return err
	}
	xs := tensor.Values[T](x)
	ys := tensor.Values[T](y)
	g := tensor.Values[T](gradOut)

	if gradX != nil {
		gx := tensor.Values[T](gradX)
		parallel.For(len(xs), func(i int) {
			gx[i] = k.dfdx(xs[i], ys[i]) * g[i]
		}, cfg)
	}
	if gradY != nil {
		gy := tensor.Values[T](gradY)
		parallel.For(len(xs), func(i int) {
			gy[i] = k.dfdy(xs[i], ys[i]) * g[i]
		}, cfg)
	}
	return nil
}

func accumulate[T tensor.DType](dst, src *tensor.RawTensor, cfg parallel.Config) {
	s := tensor.Values[T](src)
	tensor.MutateValues(dst, func(d []T) {
		parallel.ForChunks(len(d), func(start, end int) {
			for i := start; i < end; i++ {
				d[i] += s[i]
			}
		}, cfg)
	})
}
