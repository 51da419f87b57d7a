package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics for the catalog registry.
type Metrics struct {
	MakesCreated  prometheus.Counter
	ModelsCreated prometheus.Counter
	CarsCreated   prometheus.Counter
	CarsDeleted   prometheus.Counter
}

// New creates and registers all catalog metrics.
func New() *Metrics {
	return &Metrics{
		MakesCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "rescar_makes_created_total",
			Help: "Total number of car makes created in the catalog",
		}),
		ModelsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "rescar_models_created_total",
			Help: "Total number of car models created in the catalog",
		}),
		CarsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "rescar_cars_created_total",
			Help: "Total number of cars created in the catalog",
		}),
		CarsDeleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "rescar_cars_deleted_total",
			Help: "Total number of cars deleted from the catalog",
		}),
	}
}
