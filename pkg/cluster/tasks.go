package cluster

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dd0wney/cluso-cluster/pkg/eventbus"
	"github.com/dd0wney/cluso-cluster/pkg/logging"
	"github.com/dd0wney/cluso-cluster/pkg/metrics"
)

// TaskStatus is the lifecycle state of a cluster task
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskAssigned  TaskStatus = "assigned"
	TaskRunning   TaskStatus = "running"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
)

// Task is a unit of dispatchable work. AssignedNode is non-empty exactly when
// the status has left pending.
type Task struct {
	ID           string         `json:"task_id"`
	Type         string         `json:"task_type"`
	Payload      map[string]any `json:"payload,omitempty"`
	Status       TaskStatus     `json:"status"`
	AssignedNode string         `json:"assigned_node,omitempty"`
	Result       any            `json:"result,omitempty"`
	Error        string         `json:"error,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	StartedAt    *time.Time     `json:"started_at,omitempty"`
	CompletedAt  *time.Time     `json:"completed_at,omitempty"`
}

// Terminal reports whether the task has reached a final state
func (t *Task) Terminal() bool {
	return t.Status == TaskCompleted || t.Status == TaskFailed
}

// TaskQueue tracks submitted tasks and assigns pending ones to capable nodes.
// Tasks are retained after completion until explicitly purged; there is no
// automatic garbage collection.
type TaskQueue struct {
	tasks      map[string]*Task
	order      []string // submission order, drives FIFO dispatch
	rr         uint64   // round-robin cursor across dispatch ticks
	mu         sync.Mutex
	membership *Membership
	bus        *eventbus.Bus
	logger     logging.Logger
	metricsReg *metrics.Registry
}

// NewTaskQueue creates an empty task queue backed by the membership table
func NewTaskQueue(membership *Membership, bus *eventbus.Bus, logger logging.Logger) *TaskQueue {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &TaskQueue{
		tasks:      make(map[string]*Task),
		membership: membership,
		bus:        bus,
		logger:     logger.With(logging.Component("tasks")),
		metricsReg: metrics.DefaultRegistry(),
	}
}

// Submit enqueues a task and returns its generated ID
func (tq *TaskQueue) Submit(taskType string, payload map[string]any) string {
	task := &Task{
		ID:        uuid.NewString(),
		Type:      taskType,
		Payload:   payload,
		Status:    TaskPending,
		CreatedAt: time.Now(),
	}

	tq.mu.Lock()
	tq.tasks[task.ID] = task
	tq.order = append(tq.order, task.ID)
	tq.mu.Unlock()

	if tq.metricsReg != nil {
		tq.metricsReg.TasksSubmittedTotal.Inc()
	}
	tq.logger.Info("task submitted",
		logging.TaskID(task.ID),
		logging.String("task_type", taskType))

	return task.ID
}

// Get returns a copy of a task, or nil if unknown. The payload map is copied
// too, so callers cannot mutate the queued task through it. Result stays
// shared: it is opaque caller-owned data recorded at completion.
func (tq *TaskQueue) Get(taskID string) *Task {
	tq.mu.Lock()
	defer tq.mu.Unlock()

	task, ok := tq.tasks[taskID]
	if !ok {
		return nil
	}
	cp := *task
	if task.Payload != nil {
		cp.Payload = make(map[string]any, len(task.Payload))
		for k, v := range task.Payload {
			cp.Payload[k] = v
		}
	}
	return &cp
}

// DispatchTick assigns pending tasks to eligible capable nodes and returns
// the number of assignments made. Tasks with no capable node stay pending and
// are retried on the next tick; that is the only retry policy.
func (tq *TaskQueue) DispatchTick() int {
	start := time.Now()
	eligible := tq.membership.Eligible()

	type assignment struct {
		taskID   string
		taskType string
		nodeID   string
	}
	var assigned []assignment

	tq.mu.Lock()
	for _, taskID := range tq.order {
		task := tq.tasks[taskID]
		if task == nil || task.Status != TaskPending {
			continue
		}

		capable := make([]NodeInfo, 0, len(eligible))
		for _, node := range eligible {
			if node.HasCapability(task.Type) {
				capable = append(capable, node)
			}
		}
		if len(capable) == 0 {
			continue
		}

		// Rotate across ticks so repeated ties do not starve a node
		node := capable[tq.rr%uint64(len(capable))]
		tq.rr++

		task.Status = TaskAssigned
		task.AssignedNode = node.ID
		assigned = append(assigned, assignment{task.ID, task.Type, node.ID})
	}
	tq.mu.Unlock()

	// Events fire outside the table lock so handlers may query the queue
	for _, a := range assigned {
		tq.logger.Info("task assigned",
			logging.TaskID(a.taskID),
			logging.NodeID(a.nodeID),
			logging.String("task_type", a.taskType))
		if tq.bus != nil {
			tq.bus.Trigger(eventbus.EventTaskAssigned, map[string]any{
				"task_id":   a.taskID,
				"task_type": a.taskType,
				"node_id":   a.nodeID,
			})
		}
	}

	if tq.metricsReg != nil {
		tq.metricsReg.RecordDispatchTick(time.Since(start), len(assigned))
		tq.metricsReg.UpdateTaskCounts(tq.StatusCounts())
	}

	return len(assigned)
}

// MarkRunning records that the assigned node began executing the task
func (tq *TaskQueue) MarkRunning(taskID string) bool {
	tq.mu.Lock()
	defer tq.mu.Unlock()

	task, ok := tq.tasks[taskID]
	if !ok || task.Status != TaskAssigned {
		return false
	}

	now := time.Now()
	task.Status = TaskRunning
	task.StartedAt = &now
	return true
}

// Complete records a successful execution result
func (tq *TaskQueue) Complete(taskID string, result any) bool {
	return tq.finish(taskID, TaskCompleted, result, "")
}

// Fail records a failed execution
func (tq *TaskQueue) Fail(taskID string, errMsg string) bool {
	return tq.finish(taskID, TaskFailed, nil, errMsg)
}

func (tq *TaskQueue) finish(taskID string, status TaskStatus, result any, errMsg string) bool {
	tq.mu.Lock()
	defer tq.mu.Unlock()

	task, ok := tq.tasks[taskID]
	if !ok || (task.Status != TaskAssigned && task.Status != TaskRunning) {
		return false
	}

	now := time.Now()
	task.Status = status
	task.Result = result
	task.Error = errMsg
	task.CompletedAt = &now
	return true
}

// Purge removes terminal tasks created before the cutoff and returns the
// number removed
func (tq *TaskQueue) Purge(before time.Time) int {
	tq.mu.Lock()
	defer tq.mu.Unlock()

	removed := 0
	kept := tq.order[:0]
	for _, taskID := range tq.order {
		task := tq.tasks[taskID]
		if task != nil && task.Terminal() && task.CreatedAt.Before(before) {
			delete(tq.tasks, taskID)
			removed++
			continue
		}
		kept = append(kept, taskID)
	}
	tq.order = kept

	if removed > 0 {
		tq.logger.Info("purged tasks", logging.Count(removed))
	}
	return removed
}

// StatusCounts returns the number of tasks per status
func (tq *TaskQueue) StatusCounts() map[string]int {
	tq.mu.Lock()
	defer tq.mu.Unlock()

	counts := make(map[string]int)
	for _, task := range tq.tasks {
		counts[string(task.Status)]++
	}
	return counts
}

// Count returns the total number of retained tasks
func (tq *TaskQueue) Count() int {
	tq.mu.Lock()
	defer tq.mu.Unlock()

	return len(tq.tasks)
}
