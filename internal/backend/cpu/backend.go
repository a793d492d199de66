// Package cpu implements the CPU backend: generic float kernels with
// data-parallel loops and gonum BLAS for matrix multiplication.
package cpu

import (
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/born-ml/tapegrad/internal/parallel"
	"github.com/born-ml/tapegrad/internal/tensor"
)

// Config controls the CPU backend.
type Config struct {
	// Parallel controls how element-wise kernels are split across goroutines.
	Parallel parallel.Config

	// MaxAllocBytes caps a single allocation. Zero means unlimited.
	MaxAllocBytes int

	// DisableGradients makes SupportsGradients report false, turning the
	// dispatch layer into a pure forward evaluator.
	DisableGradients bool
}

// maxHostBytes bounds any single buffer below what the Go runtime can allocate.
const maxHostBytes int64 = 1 << 46

// DefaultConfig returns the configuration used by New.
func DefaultConfig() Config {
	return Config{
		Parallel: parallel.DefaultConfig(),
	}
}

// CPUBackend implements tensor.Backend on the host.
type CPUBackend struct {
	device tensor.Device
	cfg    Config
}

var _ tensor.Backend = (*CPUBackend)(nil)

// New creates a new CPU backend with DefaultConfig.
func New() *CPUBackend {
	return NewWithConfig(DefaultConfig())
}

// NewWithConfig creates a CPU backend with an explicit configuration.
func NewWithConfig(cfg Config) *CPUBackend {
	return &CPUBackend{
		device: tensor.CPU,
		cfg:    cfg,
	}
}

// Name returns the backend name.
func (cpu *CPUBackend) Name() string {
	return "CPU"
}

// Device returns the compute device.
func (cpu *CPUBackend) Device() tensor.Device {
	return cpu.device
}

// Config returns the backend configuration.
func (cpu *CPUBackend) Config() Config {
	return cpu.cfg
}

// SupportsGradients reports whether ops on this backend are recorded.
func (cpu *CPUBackend) SupportsGradients() bool {
	return !cpu.cfg.DisableGradients
}

// Alloc returns a zero-filled host buffer.
func (cpu *CPUBackend) Alloc(shape tensor.Shape, dtype tensor.DataType) (*tensor.RawTensor, error) {
	if err := shape.Validate(); err != nil {
		allocFailures.Inc()
		return nil, errors.Wrapf(tensor.ErrAllocation, "alloc %v: %v", shape, err)
	}

	n := shape.NumElements()
	if int64(n) > maxHostBytes/int64(dtype.Size()) {
		allocFailures.Inc()
		return nil, errors.Wrapf(tensor.ErrAllocation, "alloc %v %s: %d elements exceed host buffer limit",
			shape, dtype, n)
	}
	size := n * dtype.Size()
	if cpu.cfg.MaxAllocBytes > 0 && size > cpu.cfg.MaxAllocBytes {
		allocFailures.Inc()
		log.Warn().
			Int("bytes", size).
			Int("limit", cpu.cfg.MaxAllocBytes).
			Str("shape", shape.String()).
			Msg("cpu: allocation refused")
		return nil, errors.Wrapf(tensor.ErrAllocation, "alloc %v %s: %d bytes exceeds limit %d",
			shape, dtype, size, cpu.cfg.MaxAllocBytes)
	}

	raw, err := tensor.NewRaw(shape, dtype, cpu.device)
	if err != nil {
		allocFailures.Inc()
		return nil, errors.Wrap(tensor.ErrAllocation, err.Error())
	}
	allocBytes.Add(float64(size))
	return raw, nil
}
