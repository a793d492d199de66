// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cpu provides the pure Go CPU backend.
//
// # Overview
//
// This package implements the tensor.Backend contract with:
//   - Generic float32 and float64 kernels
//   - Data-parallel element-wise loops
//   - gonum BLAS matrix multiplication (OpenBLAS via the netlib build tag)
//   - Byte-level concat and split
//   - Copy-on-write gradient accumulation
//
// # Basic Usage
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
//	    x, _ := autodiff.FromSlice([]float32{1, 2, 3}, tensor.Shape{3}, backend)
//	    y := x.Track(tape).Square().Sum()
//	    grads, _ := autodiff.Backward(y)
//	}
//
// # Configuration
//
// NewWithConfig caps allocation size, tunes parallelism, or disables
// gradient recording:
//
//	cfg := cpu.DefaultConfig()
//	cfg.MaxAllocBytes = 1 << 30
//	backend := cpu.NewWithConfig(cfg)
//
// Kernel launches are counted in the tapegrad_cpu_kernel_launches_total
// Prometheus counter, labelled by kernel name.
package cpu
