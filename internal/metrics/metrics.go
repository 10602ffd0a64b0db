package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SnapshotsProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gradekeeper",
			Subsystem: "sync",
			Name:      "snapshots_processed_total",
			Help:      "Snapshot imports processed, by outcome.",
		},
		[]string{"status"},
	)

	EntitiesWritten = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gradekeeper",
			Subsystem: "sync",
			Name:      "entities_written_total",
			Help:      "Entities written during imports, by type and action.",
		},
		[]string{"entity", "action"},
	)

	GradesPreserved = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "gradekeeper",
			Subsystem: "sync",
			Name:      "grades_preserved_total",
			Help:      "Grades left untouched by conflict resolution.",
		},
	)

	ImportDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "gradekeeper",
			Subsystem: "sync",
			Name:      "import_duration_seconds",
			Help:      "End-to-end snapshot import duration.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)
)

func init() {
	prometheus.MustRegister(
		SnapshotsProcessed,
		EntitiesWritten,
		GradesPreserved,
		ImportDuration,
	)
}

// Handler exposes the default registry for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
