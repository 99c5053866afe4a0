package cluster

import (
	"testing"
	"time"

	"github.com/dd0wney/cluso-cluster/pkg/eventbus"
)

func newTestQueue(capabilities ...string) (*TaskQueue, *Membership, *eventbus.Bus) {
	m := NewMembership(NodeInfo{
		ID:           "node-1",
		State:        StateReady,
		Role:         RoleFollower,
		Capabilities: capabilities,
	})
	bus := eventbus.New(nil)
	return NewTaskQueue(m, bus, nil), m, bus
}

// TestSubmitAndGet tests task submission and lookup
func TestSubmitAndGet(t *testing.T) {
	tq, _, _ := newTestQueue()

	taskID := tq.Submit("echo", map[string]any{"msg": "hello"})
	if taskID == "" {
		t.Fatal("Expected a generated task ID")
	}

	task := tq.Get(taskID)
	if task == nil {
		t.Fatal("Expected task to be retrievable")
	}
	if task.Status != TaskPending {
		t.Errorf("Expected pending status, got %s", task.Status)
	}
	if task.Type != "echo" {
		t.Errorf("Expected type echo, got %s", task.Type)
	}
	if task.AssignedNode != "" {
		t.Error("Expected no assignment before dispatch")
	}

	if tq.Get("nonexistent") != nil {
		t.Error("Expected nil for unknown task")
	}
}

// TestGetReturnsPayloadCopy tests that callers cannot mutate the queued task
// through the returned payload
func TestGetReturnsPayloadCopy(t *testing.T) {
	tq, _, _ := newTestQueue()

	taskID := tq.Submit("echo", map[string]any{"msg": "hello"})

	task := tq.Get(taskID)
	task.Payload["msg"] = "mutated"
	task.Status = TaskFailed

	fresh := tq.Get(taskID)
	if fresh.Payload["msg"] != "hello" {
		t.Error("Expected payload unchanged in queue")
	}
	if fresh.Status != TaskPending {
		t.Error("Expected status unchanged in queue")
	}
}

// TestDispatchNoCapableNode tests that tasks stay pending and are retried
func TestDispatchNoCapableNode(t *testing.T) {
	tq, m, _ := newTestQueue() // node-1 advertises nothing

	taskID := tq.Submit("echo", nil)

	if got := tq.DispatchTick(); got != 0 {
		t.Fatalf("Expected 0 assignments, got %d", got)
	}
	if tq.Get(taskID).Status != TaskPending {
		t.Error("Expected task to remain pending")
	}

	// Capability appears; the next tick picks the task up
	m.AddLocalCapability("echo")
	if got := tq.DispatchTick(); got != 1 {
		t.Fatalf("Expected 1 assignment after capability added, got %d", got)
	}

	task := tq.Get(taskID)
	if task.Status != TaskAssigned {
		t.Errorf("Expected assigned status, got %s", task.Status)
	}
	if task.AssignedNode != "node-1" {
		t.Errorf("Expected assignment to node-1, got %s", task.AssignedNode)
	}
}

// TestDispatchCapabilityMatch tests that only matching nodes receive tasks
func TestDispatchCapabilityMatch(t *testing.T) {
	tq, m, _ := newTestQueue("echo")
	m.Upsert(NodeInfo{ID: "node-2", State: StateReady, Capabilities: []string{"backup"}})

	echoID := tq.Submit("echo", nil)
	backupID := tq.Submit("backup", nil)

	if got := tq.DispatchTick(); got != 2 {
		t.Fatalf("Expected 2 assignments, got %d", got)
	}
	if tq.Get(echoID).AssignedNode != "node-1" {
		t.Errorf("Expected echo on node-1, got %s", tq.Get(echoID).AssignedNode)
	}
	if tq.Get(backupID).AssignedNode != "node-2" {
		t.Errorf("Expected backup on node-2, got %s", tq.Get(backupID).AssignedNode)
	}
}

// TestDispatchSkipsIneligibleNodes tests that offline and degraded nodes
// never receive work
func TestDispatchSkipsIneligibleNodes(t *testing.T) {
	tq, m, _ := newTestQueue()
	m.Upsert(NodeInfo{ID: "node-2", State: StateReady, Capabilities: []string{"echo"}})
	m.Upsert(NodeInfo{ID: "node-3", State: StateDegraded, Capabilities: []string{"echo"}})
	m.MarkOffline("node-2")

	taskID := tq.Submit("echo", nil)
	if got := tq.DispatchTick(); got != 0 {
		t.Fatalf("Expected 0 assignments, got %d", got)
	}
	if tq.Get(taskID).Status != TaskPending {
		t.Error("Expected task pending with no eligible capable node")
	}
}

// TestDispatchRoundRobin tests rotation across capable nodes
func TestDispatchRoundRobin(t *testing.T) {
	tq, m, _ := newTestQueue("echo")
	m.Upsert(NodeInfo{ID: "node-2", State: StateReady, Capabilities: []string{"echo"}})

	seen := make(map[string]int)
	for i := 0; i < 4; i++ {
		taskID := tq.Submit("echo", nil)
		tq.DispatchTick()
		seen[tq.Get(taskID).AssignedNode]++
	}

	if seen["node-1"] != 2 || seen["node-2"] != 2 {
		t.Errorf("Expected even rotation, got %v", seen)
	}
}

// TestDispatchEmitsEvent tests the task_assigned notification payload
func TestDispatchEmitsEvent(t *testing.T) {
	tq, _, bus := newTestQueue("echo")

	var events []eventbus.Event
	bus.Subscribe(eventbus.EventTaskAssigned, func(e eventbus.Event) {
		events = append(events, e)
	})

	taskID := tq.Submit("echo", nil)
	tq.DispatchTick()

	if len(events) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(events))
	}
	if events[0].Payload["task_id"] != taskID {
		t.Errorf("Expected task_id %s in payload, got %v", taskID, events[0].Payload["task_id"])
	}
	if events[0].Payload["node_id"] != "node-1" {
		t.Errorf("Expected node_id node-1, got %v", events[0].Payload["node_id"])
	}
}

// TestTaskLifecycle tests assigned -> running -> completed transitions
func TestTaskLifecycle(t *testing.T) {
	tq, _, _ := newTestQueue("echo")
	taskID := tq.Submit("echo", nil)

	if tq.MarkRunning(taskID) {
		t.Error("Expected MarkRunning to fail on a pending task")
	}

	tq.DispatchTick()
	if !tq.MarkRunning(taskID) {
		t.Fatal("Expected MarkRunning to succeed on an assigned task")
	}
	if tq.Get(taskID).StartedAt == nil {
		t.Error("Expected StartedAt recorded")
	}

	if !tq.Complete(taskID, "done") {
		t.Fatal("Expected Complete to succeed on a running task")
	}

	task := tq.Get(taskID)
	if task.Status != TaskCompleted {
		t.Errorf("Expected completed, got %s", task.Status)
	}
	if task.Result != "done" {
		t.Errorf("Expected result recorded, got %v", task.Result)
	}
	if task.CompletedAt == nil {
		t.Error("Expected CompletedAt recorded")
	}

	// Terminal tasks reject further transitions
	if tq.Complete(taskID, "again") {
		t.Error("Expected Complete to fail on a terminal task")
	}
	if tq.Fail(taskID, "late error") {
		t.Error("Expected Fail to fail on a terminal task")
	}
}

// TestTaskFail tests the failure path
func TestTaskFail(t *testing.T) {
	tq, _, _ := newTestQueue("echo")
	taskID := tq.Submit("echo", nil)
	tq.DispatchTick()

	if !tq.Fail(taskID, "boom") {
		t.Fatal("Expected Fail to succeed on an assigned task")
	}

	task := tq.Get(taskID)
	if task.Status != TaskFailed {
		t.Errorf("Expected failed status, got %s", task.Status)
	}
	if task.Error != "boom" {
		t.Errorf("Expected error recorded, got %q", task.Error)
	}
}

// TestPurge tests terminal-only retention cleanup
func TestPurge(t *testing.T) {
	tq, _, _ := newTestQueue("echo")

	doneID := tq.Submit("echo", nil)
	pendingID := tq.Submit("other", nil)
	tq.DispatchTick()
	tq.Complete(doneID, nil)

	if removed := tq.Purge(time.Now().Add(time.Minute)); removed != 1 {
		t.Fatalf("Expected 1 task purged, got %d", removed)
	}
	if tq.Get(doneID) != nil {
		t.Error("Expected completed task gone")
	}
	if tq.Get(pendingID) == nil {
		t.Error("Expected pending task retained")
	}

	// Cutoff in the past removes nothing
	tq.Fail(pendingID, "x")
	if removed := tq.Purge(time.Now().Add(-time.Hour)); removed != 0 {
		t.Errorf("Expected 0 tasks purged with past cutoff, got %d", removed)
	}
}

// TestStatusCounts tests the per-status census
func TestStatusCounts(t *testing.T) {
	tq, _, _ := newTestQueue("echo")
	tq.Submit("echo", nil)
	tq.Submit("unknown-type", nil)
	tq.DispatchTick()

	counts := tq.StatusCounts()
	if counts["assigned"] != 1 || counts["pending"] != 1 {
		t.Errorf("Expected 1 assigned and 1 pending, got %v", counts)
	}
	if tq.Count() != 2 {
		t.Errorf("Expected 2 tasks, got %d", tq.Count())
	}
}
