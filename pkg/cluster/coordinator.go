package cluster

import (
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dd0wney/cluso-cluster/pkg/eventbus"
	"github.com/dd0wney/cluso-cluster/pkg/logging"
	"github.com/dd0wney/cluso-cluster/pkg/metrics"
	"github.com/dd0wney/cluso-cluster/pkg/registry"
)

// ClusterStatus is a point-in-time summary of this coordinator's view
type ClusterStatus struct {
	NodeID       string `json:"node_id"`
	State        string `json:"state"`
	Role         string `json:"role"`
	LeaderID     string `json:"leader_id,omitempty"`
	Term         uint64 `json:"term"`
	TotalNodes   int    `json:"total_nodes"`
	ActiveNodes  int    `json:"active_nodes"`
	TotalLocks   int    `json:"total_locks"`
	TotalTasks   int    `json:"total_tasks"`
	PendingTasks int    `json:"pending_tasks"`
}

// Coordinator owns the cluster tables and runs the background loops. It is
// the single public surface an embedding application uses.
//
// Concurrent Safety:
// 1. Lifecycle state (running, stopCh) is guarded by mu
// 2. Each table guards itself; API calls and background loops share them
// 3. Stop is safe concurrently with any in-flight API call
type Coordinator struct {
	cfg Config

	membership *Membership
	locks      *LockTable
	tasks      *TaskQueue
	services   *registry.FederatedRegistry
	bus        *eventbus.Bus
	detector   *FailureDetector
	election   *ElectionManager

	running   bool
	startTime time.Time
	stopCh    chan struct{}
	wg        sync.WaitGroup
	mu        sync.Mutex

	logger     logging.Logger
	metricsReg *metrics.Registry
}

// Option configures a Coordinator
type Option func(*Coordinator)

// WithLogger sets the coordinator's logger
func WithLogger(logger logging.Logger) Option {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

// New creates a coordinator from the config. Configuration problems surface
// here, before anything starts.
func New(cfg Config, opts ...Option) (*Coordinator, error) {
	defaults := DefaultConfig()
	if cfg.BindAddress == "" {
		cfg.BindAddress = defaults.BindAddress
	}
	if cfg.BindPort == 0 {
		cfg.BindPort = defaults.BindPort
	}
	if cfg.HeartbeatInterval == 0 {
		cfg.HeartbeatInterval = defaults.HeartbeatInterval
	}
	if cfg.NodeTimeout == 0 {
		cfg.NodeTimeout = defaults.NodeTimeout
	}
	if cfg.ElectionTimeout == 0 {
		cfg.ElectionTimeout = defaults.ElectionTimeout
	}
	if cfg.LockTimeout == 0 {
		cfg.LockTimeout = defaults.LockTimeout
	}
	if cfg.NodeID == "" {
		cfg.NodeID = uuid.NewString()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Coordinator{
		cfg:        cfg,
		logger:     logging.DefaultLogger(),
		metricsReg: metrics.DefaultRegistry(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(logging.NodeID(cfg.NodeID))

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "localhost"
	}
	ip := cfg.BindAddress
	if ip == "" || ip == "0.0.0.0" {
		ip = "127.0.0.1"
	}

	role := RoleFollower
	if cfg.Observer {
		role = RoleObserver
	}

	c.membership = NewMembership(NodeInfo{
		ID:        cfg.NodeID,
		Hostname:  hostname,
		IPAddress: ip,
		Port:      cfg.BindPort,
		State:     StateInitializing,
		Role:      role,
	})
	c.bus = eventbus.New(c.logger)
	c.services = registry.New()
	c.locks = NewLockTable(cfg.LockTimeout, c.logger)
	c.tasks = NewTaskQueue(c.membership, c.bus, c.logger)
	c.detector = NewFailureDetector(c.membership, c.services, c.locks, c.bus, cfg.NodeTimeout, c.logger)
	c.election = NewElectionManager(c.membership, c.bus, cfg.ElectionTimeout, c.logger)

	return c, nil
}

// NodeID returns the local node identifier
func (c *Coordinator) NodeID() string {
	return c.cfg.NodeID
}

// Start registers the local node, emits the first heartbeat, and spins up
// the background loops. A second call while running returns
// ErrAlreadyRunning and has no side effects.
func (c *Coordinator) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return ErrAlreadyRunning
	}

	c.logger.Info("starting coordinator",
		logging.String("bind_address", c.cfg.BindAddress),
		logging.Int("bind_port", c.cfg.BindPort),
		logging.Duration("heartbeat_interval", c.cfg.HeartbeatInterval),
		logging.Duration("node_timeout", c.cfg.NodeTimeout))

	c.running = true
	c.startTime = time.Now()
	c.stopCh = make(chan struct{})

	c.membership.SetLocalState(StateReady)
	if !c.cfg.Observer {
		c.membership.SetLocalRole(RoleCandidate)
	}
	c.membership.Heartbeat(c.cfg.NodeID)

	c.wg.Add(2)
	go c.heartbeatLoop(c.stopCh)
	go c.monitorLoop(c.stopCh)

	c.logger.Info("coordinator started", logging.State(StateReady.String()))
	return nil
}

// Stop signals the background loops, joins them with a bounded timeout, and
// transitions the local node offline. Safe to call before Start or twice.
func (c *Coordinator) Stop() error {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return nil
	}
	c.running = false
	close(c.stopCh)
	c.mu.Unlock()

	joinTimeout := 2 * c.cfg.HeartbeatInterval
	if joinTimeout < time.Second {
		joinTimeout = time.Second
	}
	if !waitTimeout(&c.wg, joinTimeout) {
		c.logger.Warn("background loops did not exit in time",
			logging.Duration("timeout", joinTimeout))
	}

	c.services.CleanupNode(c.cfg.NodeID)
	c.membership.SetLocalState(StateOffline)

	c.logger.Info("coordinator stopped")
	return nil
}

// IsRunning reports whether the coordinator is between Start and Stop
func (c *Coordinator) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.running
}

// AddCapability advertises a capability on the local node. Returns false if
// already advertised.
func (c *Coordinator) AddCapability(capability string) bool {
	added := c.membership.AddLocalCapability(capability)
	if added {
		c.logger.Info("capability added", logging.String("capability", capability))
	}
	return added
}

// RemoveCapability withdraws a capability from the local node. Returns false
// if it was not advertised.
func (c *Coordinator) RemoveCapability(capability string) bool {
	removed := c.membership.RemoveLocalCapability(capability)
	if removed {
		c.logger.Info("capability removed", logging.String("capability", capability))
	}
	return removed
}

// AcquireLock attempts to take a named lock for this node. Non-blocking.
func (c *Coordinator) AcquireLock(name string) bool {
	return c.locks.Acquire(name, c.cfg.NodeID)
}

// ReleaseLock releases a named lock held by this node
func (c *Coordinator) ReleaseLock(name string) bool {
	return c.locks.Release(name, c.cfg.NodeID)
}

// HoldsLock reports whether this node holds a live lease on the named lock
func (c *Coordinator) HoldsLock(name string) bool {
	return c.locks.IsHeldBy(name, c.cfg.NodeID)
}

// SubmitTask enqueues a task for dispatch and returns its ID. When this node
// leads, a dispatch attempt happens immediately instead of waiting for the
// next tick.
func (c *Coordinator) SubmitTask(taskType string, payload map[string]any) (string, error) {
	c.mu.Lock()
	running := c.running
	c.mu.Unlock()
	if !running {
		return "", ErrNotRunning
	}

	taskID := c.tasks.Submit(taskType, payload)
	if c.election.IsLeader() {
		c.tasks.DispatchTick()
	}
	return taskID, nil
}

// GetTaskStatus returns a snapshot of a task, or nil if unknown
func (c *Coordinator) GetTaskStatus(taskID string) *Task {
	return c.tasks.Get(taskID)
}

// RegisterService advertises a service provided by the local node
func (c *Coordinator) RegisterService(service string, metadata map[string]string) bool {
	ok := c.services.RegisterService(c.cfg.NodeID, service, metadata)
	if ok {
		c.bus.Trigger(eventbus.EventServiceRegistered, map[string]any{
			"node_id": c.cfg.NodeID,
			"service": service,
		})
	}
	return ok
}

// UnregisterService withdraws a local service advertisement
func (c *Coordinator) UnregisterService(service string) bool {
	return c.services.UnregisterService(c.cfg.NodeID, service)
}

// FindService returns all providers of a service
func (c *Coordinator) FindService(service string) []registry.Registration {
	return c.services.FindService(service)
}

// OnEvent registers a handler for coordinator events. eventbus.All receives
// every event.
func (c *Coordinator) OnEvent(eventType string, handler eventbus.Handler) {
	c.bus.Subscribe(eventType, handler)
}

// Status returns a summary of the cluster as this node sees it
func (c *Coordinator) Status() ClusterStatus {
	local := c.membership.Local()
	counts := c.tasks.StatusCounts()

	return ClusterStatus{
		NodeID:       local.ID,
		State:        local.State.String(),
		Role:         local.Role.String(),
		LeaderID:     c.election.LeaderID(),
		Term:         c.election.Term(),
		TotalNodes:   c.membership.Count(),
		ActiveNodes:  c.membership.ActiveCount(),
		TotalLocks:   c.locks.Count(),
		TotalTasks:   c.tasks.Count(),
		PendingTasks: counts[string(TaskPending)],
	}
}

// Membership exposes the node table for embedding applications and the
// gossip transport wiring
func (c *Coordinator) Membership() *Membership {
	return c.membership
}

// Tasks exposes the task queue for execution report-back
func (c *Coordinator) Tasks() *TaskQueue {
	return c.tasks
}

// LocalSnapshot returns the local node record and its service registrations,
// the payload a gossip announcement carries
func (c *Coordinator) LocalSnapshot() (NodeInfo, []registry.Registration) {
	local := c.membership.Local()

	regs := make([]registry.Registration, 0)
	for _, service := range c.services.NodeServices(c.cfg.NodeID) {
		for _, reg := range c.services.FindService(service) {
			if reg.NodeID == c.cfg.NodeID {
				regs = append(regs, reg)
			}
		}
	}
	return local, regs
}

// MergePeer applies a peer announcement to the local tables: the peer is
// upserted (an offline peer with a fresh announcement re-enters as ready) and
// its advertised services replace whatever this node previously knew for it.
func (c *Coordinator) MergePeer(node NodeInfo, services []registry.Registration) {
	if node.ID == "" || node.ID == c.cfg.NodeID {
		return
	}

	isNew := c.membership.Upsert(node)

	announced := make(map[string]bool, len(services))
	for _, reg := range services {
		if reg.NodeID != node.ID {
			continue
		}
		announced[reg.Service] = true
		c.services.RegisterService(node.ID, reg.Service, reg.Metadata)
	}
	for _, service := range c.services.NodeServices(node.ID) {
		if !announced[service] {
			c.services.UnregisterService(node.ID, service)
		}
	}

	if isNew {
		c.logger.Info("peer joined", logging.NodeID(node.ID))
		c.bus.Trigger(eventbus.EventNodeJoined, map[string]any{
			"node_id": node.ID,
		})
	}
}
