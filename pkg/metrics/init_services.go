package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initServiceMetrics() {
	r.ServicesRegistered = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "cluster_services_registered",
			Help: "Number of service registrations in the federated registry",
		},
	)

	r.ServiceCleanupsTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "cluster_service_cleanups_total",
			Help: "Total number of service registrations removed by node cleanup",
		},
	)

	r.ServiceLookupsTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "cluster_service_lookups_total",
			Help: "Total number of service lookups",
		},
	)
}
