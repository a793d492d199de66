package tensor

// Backend is the kernel contract every device implementation satisfies.
//
// Element-wise kernels never broadcast: the dispatch layer resolves
// broadcasting and hands the backend operands of identical shape. Output
// and gradient buffers are allocated by the caller through Alloc and are
// exclusively owned by the kernel for the duration of the call.
//
// Derivative kernels are evaluated at the forward inputs, never at the
// forward output, so ops like Minimum/Maximum can decide ties by comparing
// inputs. At x == y both Minimum and Maximum give each side 0.5.
//
// Implementations:
//   - CPU: pure Go with data-parallel loops and gonum BLAS matmul
//   - GPU backends: opaque, same contract
type Backend interface {
	// Metadata
	Name() string
	Device() Device

	// SupportsGradients reports whether the dispatch layer should record
	// tape entries for ops executed on this backend.
	SupportsGradients() bool

	// Alloc returns a zero-filled buffer or an ErrAllocation-classified error.
	Alloc(shape Shape, dtype DataType) (*RawTensor, error)

	// Element-wise unary: out = f(x); gradIn = f'(x) * gradOut.
	Unary(op UnaryOp, x, out *RawTensor) error
	UnaryBackward(op UnaryOp, x, gradOut, gradIn *RawTensor) error

	// Element-wise binary: out = f(x, y);
	// gradX = dfdx(x, y) * gradOut, gradY = dfdy(x, y) * gradOut.
	// A nil gradX or gradY is skipped.
	Binary(op BinaryOp, x, y, out *RawTensor) error
	BinaryBackward(op BinaryOp, x, y, gradOut, gradX, gradY *RawTensor) error

	// SumAxes reduces x over axes into out, keeping reduced axes as size 1
	// unless out has lower rank, in which case out holds the squeezed result.
	SumAxes(x *RawTensor, axes []int, out *RawTensor) error

	// MatMul computes out = op(a) @ op(b) for 2-D operands, where op
	// transposes when the matching flag is set.
	MatMul(a, b, out *RawTensor, transA, transB bool) error

	// Concat joins inputs along axis into out; Split is its inverse.
	Concat(inputs []*RawTensor, axis int, out *RawTensor) error
	Split(x *RawTensor, axis int, outs []*RawTensor) error

	// Accumulate adds src into dst in place. A dst sharing its buffer with
	// other handles is detached first, so those handles never see the write.
	Accumulate(dst, src *RawTensor) error
}
