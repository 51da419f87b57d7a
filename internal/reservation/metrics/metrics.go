package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics for the reservation allocator.
type Metrics struct {
	ReservationsCommitted prometheus.Counter
	ReservationRollbacks  prometheus.Counter
	NoCarAvailable        prometheus.Counter
	TrialsExhausted       prometheus.Counter
	IdempotencyCacheHits  prometheus.Counter
}

// New creates and registers all reservation metrics.
func New() *Metrics {
	return &Metrics{
		ReservationsCommitted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "rescar_reservations_committed_total",
			Help: "Total number of reservations committed with an idempotency token",
		}),
		ReservationRollbacks: promauto.NewCounter(prometheus.CounterOpts{
			Name: "rescar_reservation_rollbacks_total",
			Help: "Total number of tentative reservations rolled back after losing a race",
		}),
		NoCarAvailable: promauto.NewCounter(prometheus.CounterOpts{
			Name: "rescar_reservations_no_car_total",
			Help: "Total number of allocation attempts that found zero candidate cars",
		}),
		TrialsExhausted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "rescar_reservations_exhausted_total",
			Help: "Total number of allocation attempts that exhausted every trial",
		}),
		IdempotencyCacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "rescar_idempotency_cache_hits_total",
			Help: "Total number of reservation lookups served from the idempotency cache",
		}),
	}
}
