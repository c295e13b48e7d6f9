package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// cartOperations counts cart operations by name and outcome.
	cartOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cart_operations_total",
			Help: "Total number of cart operations by outcome",
		},
		[]string{"operation", "outcome"},
	)

	// persistenceFailures counts snapshot loads and saves that failed.
	persistenceFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cart_persistence_failures_total",
			Help: "Total number of cart snapshot load or save failures",
		},
		[]string{"op"},
	)

	// activeCarts tracks the number of carts held in memory.
	activeCarts = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cart_active_sessions",
			Help: "Number of cart sessions currently held in memory",
		},
	)
)

const (
	outcomeOK       = "ok"
	outcomeError    = "error"
	outcomeDeclined = "declined"
	outcomeStale    = "stale"
)
