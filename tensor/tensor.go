// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import (
	"github.com/born-ml/tapegrad/internal/tensor"
)

// Type aliases for public API

// DType is a constraint for tensor element types: float32 or float64.
type DType = tensor.DType

// DataType represents the underlying data type of a tensor.
type DataType = tensor.DataType

// Data type constants.
const (
	Float32 DataType = tensor.Float32
	Float64 DataType = tensor.Float64
)

// DataTypeOf returns the runtime tag for T.
func DataTypeOf[T DType]() DataType {
	return tensor.DataTypeOf[T]()
}

// Device represents the device where tensor data resides.
type Device = tensor.Device

// Device constants.
const (
	CPU    Device = tensor.CPU
	CUDA   Device = tensor.CUDA
	Vulkan Device = tensor.Vulkan
	Metal  Device = tensor.Metal
	WebGPU Device = tensor.WebGPU
)

// Shape represents tensor dimensions.
type Shape = tensor.Shape

// Dim is one dimension of a ShapeSpec, either fixed or dynamic.
type Dim = tensor.Dim

// ShapeSpec is a shape whose dimensions may be bound at runtime.
type ShapeSpec = tensor.ShapeSpec

// Dyn marks a dimension known only at runtime.
var Dyn = tensor.Dyn

// Const returns a fixed dimension of size n.
func Const(n int) Dim {
	return tensor.Const(n)
}

// BroadcastShapes returns the broadcast of a and b.
func BroadcastShapes(a, b Shape) (Shape, bool, error) {
	return tensor.BroadcastShapes(a, b)
}

// RawTensor is the untyped, reference-counted storage behind every tensor.
type RawTensor = tensor.RawTensor

// NewRaw allocates a zero-filled raw tensor.
func NewRaw(shape Shape, dtype DataType, device Device) (*RawTensor, error) {
	return tensor.NewRaw(shape, dtype, device)
}

// Values returns r's buffer reinterpreted as []T. The slice must not be written.
func Values[T DType](r *RawTensor) []T {
	return tensor.Values[T](r)
}

// MutateValues runs fn on r's elements, detaching r from shared storage first.
func MutateValues[T DType](r *RawTensor, fn func(data []T)) {
	tensor.MutateValues(r, fn)
}

// UniqueID identifies a tensor value for gradient lookup.
type UniqueID = tensor.UniqueID

// Backend is the kernel contract every device implementation satisfies.
type Backend = tensor.Backend

// UnaryKind enumerates element-wise single-input kernels.
type UnaryKind = tensor.UnaryKind

// UnaryOp is a unary kernel selector, with a scalar for the Scalar kinds.
type UnaryOp = tensor.UnaryOp

// BinaryOp enumerates element-wise two-input kernels.
type BinaryOp = tensor.BinaryOp

// Error kinds. Use errors.Is to classify a returned error.
var (
	ErrShapeMismatch   = tensor.ErrShapeMismatch
	ErrDtypeMismatch   = tensor.ErrDtypeMismatch
	ErrAllocation      = tensor.ErrAllocation
	ErrTapeMisuse      = tensor.ErrTapeMisuse
	ErrMissingGradient = tensor.ErrMissingGradient
)

// ShapeMismatchError reports two incompatible shapes for an operation.
type ShapeMismatchError = tensor.ShapeMismatchError

// DtypeMismatchError reports two raw tensors with different element types.
type DtypeMismatchError = tensor.DtypeMismatchError
