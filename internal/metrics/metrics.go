// Package metrics exposes the process counters served on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	fetchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vaultrun_provider_fetch_total",
		Help: "Provider fetches by provider and outcome.",
	}, []string{"provider", "outcome"})

	cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vaultrun_snapshot_cache_lookups_total",
		Help: "Snapshot cache lookups by outcome.",
	}, []string{"outcome"})

	evaluationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "vaultrun_cluster_evaluation_seconds",
		Help:    "Wall time of a full cluster evaluation pass.",
		Buckets: prometheus.DefBuckets,
	})

	gridCellsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vaultrun_grid_cells_total",
		Help: "Sensitivity grid cells computed.",
	})
)

// RecordFetch counts one provider round trip.
func RecordFetch(provider string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	fetchTotal.WithLabelValues(provider, outcome).Inc()
}

// RecordCacheLookup counts one snapshot cache lookup.
func RecordCacheLookup(hit bool) {
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	cacheLookups.WithLabelValues(outcome).Inc()
}

// ObserveEvaluation records one cluster evaluation pass.
func ObserveEvaluation(d time.Duration) {
	evaluationDuration.Observe(d.Seconds())
}

// AddGridCells counts computed heatmap cells.
func AddGridCells(n int) {
	gridCellsTotal.Add(float64(n))
}
