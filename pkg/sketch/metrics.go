package sketch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// solveTotal counts solves by result ("converged", "failed", "uninitialized").
	solveTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sketch_solve_total",
		Help: "Total sketch solves by result",
	}, []string{"result"})

	// solveDuration tracks solve latency; interactive drags need well under a frame.
	solveDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sketch_solve_duration_seconds",
		Help:    "Sketch solve duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.00005, 2, 12), // 50µs to ~100ms
	})

	solveIterations = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sketch_solve_iterations",
		Help:    "Newton iterations per sketch solve",
		Buckets: []float64{0, 1, 2, 3, 5, 8, 13, 21, 50},
	})

	// systemRebuilds counts residual system assemblies; drags of an already
	// driving point should not add to it.
	systemRebuilds = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sketch_system_rebuilds_total",
		Help: "Total residual system assemblies",
	})
)
