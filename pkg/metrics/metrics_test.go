package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

// TestNewRegistry tests that a registry initializes all collectors
func TestNewRegistry(t *testing.T) {
	r := NewRegistry()

	if r.ClusterNodesTotal == nil {
		t.Fatal("Expected cluster metrics to be initialized")
	}
	if r.TasksByStatus == nil {
		t.Fatal("Expected task metrics to be initialized")
	}
	if r.LockAcquisitionsTotal == nil {
		t.Fatal("Expected lock metrics to be initialized")
	}
	if r.GetPrometheusRegistry() == nil {
		t.Fatal("Expected underlying prometheus registry")
	}
}

// TestSetClusterRole tests that exactly one role gauge is set at a time
func TestSetClusterRole(t *testing.T) {
	r := NewRegistry()

	r.SetClusterRole("candidate")
	r.SetClusterRole("leader")

	if got := testutil.ToFloat64(r.ClusterRole.WithLabelValues("leader")); got != 1 {
		t.Errorf("Expected leader gauge 1, got %v", got)
	}
	if got := testutil.ToFloat64(r.ClusterRole.WithLabelValues("candidate")); got != 0 {
		t.Errorf("Expected candidate gauge 0 after transition, got %v", got)
	}
	if got := testutil.ToFloat64(r.ClusterRole.WithLabelValues("follower")); got != 0 {
		t.Errorf("Expected follower gauge 0, got %v", got)
	}
}

// TestUpdateClusterMetrics tests the aggregate cluster update helper
func TestUpdateClusterMetrics(t *testing.T) {
	r := NewRegistry()

	r.UpdateClusterMetrics(3, 2, 7)

	if got := testutil.ToFloat64(r.ClusterNodesTotal); got != 3 {
		t.Errorf("Expected 3 total nodes, got %v", got)
	}
	if got := testutil.ToFloat64(r.ClusterHealthyNodesTotal); got != 2 {
		t.Errorf("Expected 2 healthy nodes, got %v", got)
	}
	if got := testutil.ToFloat64(r.ClusterTerm); got != 7 {
		t.Errorf("Expected term 7, got %v", got)
	}
}

// TestUpdateTaskCounts tests that absent statuses reset to zero
func TestUpdateTaskCounts(t *testing.T) {
	r := NewRegistry()

	r.UpdateTaskCounts(map[string]int{"pending": 2, "completed": 1})
	r.UpdateTaskCounts(map[string]int{"completed": 3})

	if got := testutil.ToFloat64(r.TasksByStatus.WithLabelValues("pending")); got != 0 {
		t.Errorf("Expected pending gauge reset to 0, got %v", got)
	}
	if got := testutil.ToFloat64(r.TasksByStatus.WithLabelValues("completed")); got != 3 {
		t.Errorf("Expected completed gauge 3, got %v", got)
	}
}

// TestDefaultRegistrySingleton tests the process-wide registry accessor
func TestDefaultRegistrySingleton(t *testing.T) {
	a := DefaultRegistry()
	b := DefaultRegistry()

	if a != b {
		t.Error("Expected DefaultRegistry to return the same instance")
	}
}
