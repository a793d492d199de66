// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package cpu

import (
	internalcpu "github.com/born-ml/tapegrad/internal/backend/cpu"
	"github.com/born-ml/tapegrad/tensor"
)

// Backend represents the CPU backend implementation.
//
// Element-wise kernels run as data-parallel loops; matmul goes through
// gonum BLAS (netlib when built with the netlib tag).
type Backend = internalcpu.CPUBackend

// Config controls allocation limits, parallelism and gradient recording.
type Config = internalcpu.Config

// Compile-time check that Backend implements tensor.Backend.
var _ tensor.Backend = (*Backend)(nil)

// New creates a new CPU backend.
//
// Example:
//
//	backend := cpu.New()
//	x, err := autodiff.Zeros[float32](tensor.Shape{2, 3}, backend)
func New() *Backend {
	return internalcpu.New()
}

// NewWithConfig creates a CPU backend from cfg.
func NewWithConfig(cfg Config) *Backend {
	return internalcpu.NewWithConfig(cfg)
}

// DefaultConfig returns the configuration New uses.
func DefaultConfig() Config {
	return internalcpu.DefaultConfig()
}
