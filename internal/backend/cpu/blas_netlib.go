//go:build cgo && netlib

package cpu

// Registers the netlib BLAS implementation (OpenBLAS on Linux, Accelerate
// on macOS) for matmul. Without the netlib tag gonum's pure Go BLAS is used.

import (
	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/blas/blas32"
	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/netlib/blas/netlib"
)

func init() {
	blas32.Use(netlib.Implementation{})
	blas64.Use(netlib.Implementation{})
	log.Debug().Msg("cpu: netlib BLAS enabled")
}
