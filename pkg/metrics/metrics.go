// Package metrics exposes prometheus counters for the subsystems whose
// outcomes spec.md treats as observable-but-non-fatal: catalog refresh
// results, solver search effort, and search-index degraded-mode events.
// Grounded on the teacher's pkg/metrics map-of-CounterVec-by-name style.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	catalogRefreshTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pkgclient",
		Subsystem: "catalog",
		Name:      "refresh_total",
		Help:      "Catalog refreshes by publisher and outcome (full, incremental, unchanged, empty, error).",
	}, []string{"publisher", "outcome"})

	solverNodeExpansions = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "pkgclient",
		Subsystem: "solver",
		Name:      "node_expansions",
		Help:      "Number of search nodes expanded per Solve call.",
		Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
	})

	searchDegradedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pkgclient",
		Subsystem: "search",
		Name:      "degraded_total",
		Help:      "Search operations served in degraded mode, by reason.",
	}, []string{"reason"})

	searchRebuildTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "pkgclient",
		Subsystem: "search",
		Name:      "rebuild_total",
		Help:      "Full search-index rebuilds triggered.",
	})
)

func init() {
	prometheus.MustRegister(catalogRefreshTotal, solverNodeExpansions, searchDegradedTotal, searchRebuildTotal)
}

// EmitCatalogRefresh records a catalog refresh outcome for a publisher.
// outcome is one of "full", "incremental", "unchanged", "empty", "error".
func EmitCatalogRefresh(publisher, outcome string) {
	catalogRefreshTotal.WithLabelValues(publisher, outcome).Inc()
}

// ObserveSolverNodeExpansions records how many search nodes one Solve
// call expanded.
func ObserveSolverNodeExpansions(n int) {
	solverNodeExpansions.Observe(float64(n))
}

// EmitSearchDegraded records a degraded-mode search, tagged with the
// triggering IndexError kind (e.g. "IncorrectIndexFileHash",
// "InconsistentIndexException", "SlowSearchUsed").
func EmitSearchDegraded(reason string) {
	searchDegradedTotal.WithLabelValues(reason).Inc()
}

// EmitSearchRebuild records a full index rebuild.
func EmitSearchRebuild() {
	searchRebuildTotal.Inc()
}
