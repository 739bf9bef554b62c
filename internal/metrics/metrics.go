// Package metrics holds the Prometheus collectors of the pantry service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	LineItems = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pantry_line_items_total",
			Help: "Cooked-recipe line items processed, by outcome",
		},
		[]string{"outcome"}, // decremented, skipped, not_found, invalid, failed
	)

	Conversions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pantry_unit_conversions_total",
			Help: "Unit conversions, by the path that produced the result",
		},
		[]string{"path"}, // identity, direct, density, unresolvable
	)

	LedgerRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pantry_ledger_version_conflicts_total",
			Help: "Optimistic lock conflicts retried by the inventory ledger",
		},
	)

	DensityCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pantry_density_cache_lookups_total",
			Help: "Density cache lookups, by result",
		},
		[]string{"result"}, // hit, miss, error
	)

	CookedRecipes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pantry_cooked_recipes_total",
			Help: "Cooked-recipe events accepted",
		},
	)
)

func RecordLineItem(outcome string) {
	LineItems.WithLabelValues(outcome).Inc()
}

func RecordConversion(path string) {
	Conversions.WithLabelValues(path).Inc()
}
