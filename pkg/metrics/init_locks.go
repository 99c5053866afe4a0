package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initLockMetrics() {
	r.LockAcquisitionsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "cluster_lock_acquisitions_total",
			Help: "Total number of lock acquisition attempts",
		},
		[]string{"result"}, // acquired, reclaimed, contended
	)

	r.LockReleasesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "cluster_lock_releases_total",
			Help: "Total number of lock release attempts",
		},
		[]string{"result"}, // released, denied
	)

	r.LocksHeld = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "cluster_locks_held",
			Help: "Number of locks currently held (lease not yet expired)",
		},
	)

	r.LocksExpiredReported = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "cluster_locks_expired_reported_total",
			Help: "Expired-but-unreleased locks observed by the report-only sweep",
		},
	)
}
