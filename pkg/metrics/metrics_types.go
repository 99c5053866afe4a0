package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds all metrics for the coordinator
type Registry struct {
	// Cluster Metrics
	ClusterNodesTotal        prometheus.Gauge
	ClusterHealthyNodesTotal prometheus.Gauge
	ClusterElectionsTotal    *prometheus.CounterVec
	ClusterTerm              prometheus.Gauge
	ClusterRole              *prometheus.GaugeVec
	ClusterHeartbeatsTotal   prometheus.Counter
	ClusterNodesLostTotal    prometheus.Counter

	// Task Metrics
	TasksSubmittedTotal  prometheus.Counter
	TasksAssignedTotal   prometheus.Counter
	TasksByStatus        *prometheus.GaugeVec
	TaskDispatchDuration prometheus.Histogram

	// Lock Metrics
	LockAcquisitionsTotal *prometheus.CounterVec
	LockReleasesTotal     *prometheus.CounterVec
	LocksHeld             prometheus.Gauge
	LocksExpiredReported  prometheus.Counter

	// Service Registry Metrics
	ServicesRegistered    prometheus.Gauge
	ServiceCleanupsTotal  prometheus.Counter
	ServiceLookupsTotal   prometheus.Counter

	// System Metrics
	UptimeSeconds prometheus.Gauge
	GoRoutines    prometheus.Gauge

	registry *prometheus.Registry
	mu       sync.RWMutex
}

var (
	// Global registry instance
	defaultRegistry *Registry
	once            sync.Once
)

// DefaultRegistry returns the global metrics registry
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates a new metrics registry with all metrics initialized
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		registry: reg,
	}

	// Initialize all metrics
	r.initClusterMetrics()
	r.initTaskMetrics()
	r.initLockMetrics()
	r.initServiceMetrics()
	r.initSystemMetrics()

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}
