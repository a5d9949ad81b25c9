// Package metrics exposes prometheus counters for batch generation runs.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RowsRendered = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "docmerge",
		Name:      "rows_rendered_total",
		Help:      "Rows successfully rendered and exported.",
	})
	RowsFailed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "docmerge",
		Name:      "rows_failed_total",
		Help:      "Rows that failed instantiation or export.",
	})
	RowsSkipped = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "docmerge",
		Name:      "rows_skipped_total",
		Help:      "Rows skipped because every mapped cell was empty.",
	})
	BatchesFinished = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "docmerge",
		Name:      "batches_finished_total",
		Help:      "Batch runs by terminal state.",
	}, []string{"state"})
)

// Init registers the collectors; call once from main.
func Init() {
	prometheus.MustRegister(RowsRendered, RowsFailed, RowsSkipped, BatchesFinished)
}

// Serve starts a /metrics server on addr. Blocking; run in a goroutine.
func Serve(addr string) error {
	http.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(addr, nil)
}
