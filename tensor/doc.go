// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the shape, dtype and storage types shared by every
// tapegrad package.
//
// # Overview
//
// This package holds the value-level vocabulary of the library:
//   - Shape and ShapeSpec: concrete and partly dynamic shapes
//   - DType / DataType: the float32 and float64 element types
//   - RawTensor: reference-counted, copy-on-write storage
//   - Backend: the kernel contract every device implements
//   - UniqueID: the identity gradients are keyed by
//
// Differentiable tensors live in the autodiff package; this package never
// records anything.
//
// # Shapes
//
//	spec := tensor.ShapeSpec{tensor.Dyn, tensor.Const(3)}
//	shape, err := spec.Bind(8) // (8, 3)
//
// # Errors
//
// Every fallible operation returns an error classifiable with errors.Is:
//   - ErrShapeMismatch: incompatible shapes, carrying both shapes
//   - ErrDtypeMismatch: mixed element types at runtime
//   - ErrAllocation: the backend could not provide a buffer
//   - ErrTapeMisuse: recording on a consumed or foreign tape
//   - ErrMissingGradient: a required gradient is absent
package tensor
