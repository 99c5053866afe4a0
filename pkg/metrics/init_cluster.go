package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initClusterMetrics() {
	r.ClusterNodesTotal = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "cluster_nodes_total",
			Help: "Total number of nodes known to this coordinator",
		},
	)

	r.ClusterHealthyNodesTotal = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "cluster_healthy_nodes_total",
			Help: "Number of nodes with a fresh heartbeat",
		},
	)

	r.ClusterElectionsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "cluster_elections_total",
			Help: "Total number of leader elections",
		},
		[]string{"result"}, // won, adopted
	)

	r.ClusterTerm = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "cluster_term",
			Help: "Current election term",
		},
	)

	r.ClusterRole = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cluster_role",
			Help: "Node role in cluster (1 for current role, 0 otherwise)",
		},
		[]string{"role"}, // leader, follower, candidate, observer
	)

	r.ClusterHeartbeatsTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "cluster_heartbeats_total",
			Help: "Total number of heartbeats emitted by this node",
		},
	)

	r.ClusterNodesLostTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "cluster_nodes_lost_total",
			Help: "Total number of nodes marked offline by the failure detector",
		},
	)
}
