package metrics

import (
	"runtime"
	"time"
)

// UpdateClusterMetrics updates cluster-related metrics
func (r *Registry) UpdateClusterMetrics(totalNodes, healthyNodes int, term uint64) {
	r.ClusterNodesTotal.Set(float64(totalNodes))
	r.ClusterHealthyNodesTotal.Set(float64(healthyNodes))
	r.ClusterTerm.Set(float64(term))
}

// SetClusterRole sets the current cluster role
func (r *Registry) SetClusterRole(role string) {
	// Reset all roles
	r.ClusterRole.WithLabelValues("leader").Set(0)
	r.ClusterRole.WithLabelValues("follower").Set(0)
	r.ClusterRole.WithLabelValues("candidate").Set(0)
	r.ClusterRole.WithLabelValues("observer").Set(0)

	// Set current role
	r.ClusterRole.WithLabelValues(role).Set(1)
}

// RecordDispatchTick records the duration of a dispatch tick and the
// assignments it made
func (r *Registry) RecordDispatchTick(duration time.Duration, assigned int) {
	r.TaskDispatchDuration.Observe(duration.Seconds())
	if assigned > 0 {
		r.TasksAssignedTotal.Add(float64(assigned))
	}
}

// UpdateTaskCounts updates the per-status task gauges
func (r *Registry) UpdateTaskCounts(counts map[string]int) {
	for _, status := range []string{"pending", "assigned", "running", "completed", "failed"} {
		r.TasksByStatus.WithLabelValues(status).Set(float64(counts[status]))
	}
}

// RecordLockAcquisition records a lock acquisition attempt
func (r *Registry) RecordLockAcquisition(result string) {
	r.LockAcquisitionsTotal.WithLabelValues(result).Inc()
}

// RecordLockRelease records a lock release attempt
func (r *Registry) RecordLockRelease(result string) {
	r.LockReleasesTotal.WithLabelValues(result).Inc()
}

// UpdateSystemMetrics updates uptime and runtime gauges
func (r *Registry) UpdateSystemMetrics(startTime time.Time) {
	r.UptimeSeconds.Set(time.Since(startTime).Seconds())
	r.GoRoutines.Set(float64(runtime.NumGoroutine()))
}
