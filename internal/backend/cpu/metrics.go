package cpu

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	allocBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tapegrad_cpu_alloc_bytes_total",
		Help: "Total bytes allocated by the CPU backend",
	})

	allocFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tapegrad_cpu_alloc_failures_total",
		Help: "Total number of refused CPU allocations",
	})

	kernelLaunches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tapegrad_cpu_kernel_launches_total",
		Help: "Total number of CPU kernel invocations by kernel name",
	}, []string{"kernel"})
)
