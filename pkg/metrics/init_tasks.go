package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initTaskMetrics() {
	r.TasksSubmittedTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "cluster_tasks_submitted_total",
			Help: "Total number of tasks submitted",
		},
	)

	r.TasksAssignedTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "cluster_tasks_assigned_total",
			Help: "Total number of task assignments made by the dispatcher",
		},
	)

	r.TasksByStatus = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cluster_tasks_by_status",
			Help: "Number of tasks per status",
		},
		[]string{"status"}, // pending, assigned, running, completed, failed
	)

	r.TaskDispatchDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cluster_task_dispatch_duration_seconds",
			Help:    "Duration of a single dispatch tick in seconds",
			Buckets: []float64{0.0001, 0.001, 0.01, 0.1, 0.5, 1.0},
		},
	)
}
