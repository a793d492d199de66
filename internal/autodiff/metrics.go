package autodiff

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	tapeRecords = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tapegrad_tape_records_total",
		Help: "Total number of tape entries recorded by kind",
	}, []string{"kind"})

	tapeMisuse = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tapegrad_tape_misuse_total",
		Help: "Total number of operations rejected on a consumed or mismatched tape",
	})

	backwardDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tapegrad_backward_duration_seconds",
		Help:    "Time spent replaying a tape",
		Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
	})
)
