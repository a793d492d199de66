package tensor

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/pkg/errors"
)

// Device represents the compute device for tensor operations.
type Device int

// Supported compute devices.
const (
	CPU Device = iota
	CUDA
	Vulkan
	Metal
	WebGPU
)

// String returns a human-readable device name.
func (d Device) String() string {
	switch d {
	case CPU:
		return "CPU"
	case CUDA:
		return "CUDA"
	case Vulkan:
		return "Vulkan"
	case Metal:
		return "Metal"
	case WebGPU:
		return "WebGPU"
	default:
		return "Unknown"
	}
}

// tensorBuffer is a reference-counted shared buffer for Copy-on-Write semantics.
// Readers may share it freely; writers must hold the only reference and the lock.
type tensorBuffer struct {
	data     []byte
	refCount atomic.Int32
	mu       sync.Mutex
}

// newTensorBuffer creates a new reference-counted buffer with refCount = 1.
func newTensorBuffer(size int) *tensorBuffer {
	buf := &tensorBuffer{
		data: make([]byte, size),
	}
	buf.refCount.Store(1)
	return buf
}

// addRef increments the reference count (for Clone operations).
func (tb *tensorBuffer) addRef() {
	tb.refCount.Add(1)
}

// release decrements the reference count and drops the data if it reaches 0.
func (tb *tensorBuffer) release() {
	if tb.refCount.Add(-1) == 0 {
		tb.mu.Lock()
		defer tb.mu.Unlock()
		tb.data = nil
	}
}

// isUnique returns true if this buffer has only one reference.
func (tb *tensorBuffer) isUnique() bool {
	return tb.refCount.Load() == 1
}

// RawTensor is the dtype-erased storage handle: a shape over a
// reference-counted, contiguous, row-major buffer.
type RawTensor struct {
	buffer *tensorBuffer
	shape  Shape
	dtype  DataType
	device Device
}

// NewRaw creates a new zero-filled RawTensor with the given shape and type.
func NewRaw(shape Shape, dtype DataType, device Device) (*RawTensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, errors.Wrapf(ErrShapeMismatch, "invalid shape %v: %v", shape, err)
	}

	n := shape.NumElements()
	if n > math.MaxInt/dtype.Size() {
		return nil, errors.Wrapf(ErrAllocation, "shape %v of %s: byte size overflows int", shape, dtype)
	}
	byteSize := n * dtype.Size()

	return &RawTensor{
		buffer: newTensorBuffer(byteSize),
		shape:  shape.Clone(),
		dtype:  dtype,
		device: device,
	}, nil
}

// Shape returns the tensor's shape. Callers must not modify it.
func (r *RawTensor) Shape() Shape {
	return r.shape
}

// DType returns the tensor's data type.
func (r *RawTensor) DType() DataType {
	return r.dtype
}

// Device returns the tensor's compute device.
func (r *RawTensor) Device() Device {
	return r.device
}

// NumElements returns the total number of elements.
func (r *RawTensor) NumElements() int {
	return r.shape.NumElements()
}

// Data returns the raw byte slice for reading.
func (r *RawTensor) Data() []byte {
	return r.buffer.data
}

// Clone creates a shallow copy of the RawTensor that shares the buffer.
// The shared buffer is copied only when one side asks to mutate it.
func (r *RawTensor) Clone() *RawTensor {
	r.buffer.addRef()
	return &RawTensor{
		buffer: r.buffer,
		shape:  r.shape.Clone(),
		dtype:  r.dtype,
		device: r.device,
	}
}

// View returns a handle over the same buffer with a different shape.
// The element count must match.
func (r *RawTensor) View(shape Shape) (*RawTensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, NewShapeMismatch("view", r.shape, shape)
	}
	if shape.NumElements() != r.NumElements() {
		return nil, NewShapeMismatch("view", r.shape, shape)
	}
	v := r.Clone()
	v.shape = shape.Clone()
	return v, nil
}

// Release decrements the reference count and drops the data when it reaches 0.
func (r *RawTensor) Release() {
	r.buffer.release()
}

// IsUnique returns true if this tensor is the only reference to the buffer.
func (r *RawTensor) IsUnique() bool {
	return r.buffer.isUnique()
}

// Mutate runs fn with exclusive write access to the buffer.
// If the buffer is shared, r is first detached onto a private copy, so
// other handles never observe the write.
func (r *RawTensor) Mutate(fn func(data []byte)) {
	if !r.buffer.isUnique() {
		old := r.buffer
		buf := newTensorBuffer(len(old.data))
		copy(buf.data, old.data)
		r.buffer = buf
		old.release()
	}
	r.buffer.mu.Lock()
	defer r.buffer.mu.Unlock()
	fn(r.buffer.data)
}

// SameStorage reports whether both handles share one buffer.
func (r *RawTensor) SameStorage(other *RawTensor) bool {
	return r.buffer == other.buffer
}

// Values returns a typed zero-copy view of the buffer for reading or for
// writing into a freshly allocated tensor. T must match the tensor's dtype.
func Values[T DType](r *RawTensor) []T {
	if dt := DataTypeOf[T](); dt != r.dtype {
		panic(fmt.Sprintf("tensor dtype is %s, not %s", r.dtype, dt))
	}
	data := r.buffer.data
	//nolint:gosec // unsafe.Slice for zero-copy performance, bounds checked by NumElements()
	return unsafe.Slice((*T)(unsafe.Pointer(&data[0])), r.NumElements())
}

// MutateValues is Mutate with a typed view of the buffer.
func MutateValues[T DType](r *RawTensor, fn func(data []T)) {
	r.Mutate(func(_ []byte) {
		fn(Values[T](r))
	})
}
