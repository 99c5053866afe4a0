package cluster

import (
	"sync"
	"time"

	"github.com/dd0wney/cluso-cluster/pkg/metrics"
)

// NodeState represents the operational state of a node
type NodeState int

const (
	// StateInitializing is a node that has been created but not started
	StateInitializing NodeState = iota
	// StateReady is a node accepting cluster operations
	StateReady
	// StateActive is a node currently executing work
	StateActive
	// StateDegraded is a node running with reduced capacity
	StateDegraded
	// StateOffline is a node whose heartbeat has expired
	StateOffline
	// StateMaintenance is a node deliberately taken out of rotation;
	// exempt from failure detection
	StateMaintenance
	// StateEmergencyStop is a node halted by an operator
	StateEmergencyStop
)

// String returns the string representation of a NodeState
func (s NodeState) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateActive:
		return "active"
	case StateDegraded:
		return "degraded"
	case StateOffline:
		return "offline"
	case StateMaintenance:
		return "maintenance"
	case StateEmergencyStop:
		return "emergency_stop"
	default:
		return "unknown"
	}
}

// NodeRole represents the role of a node in the cluster
type NodeRole int

const (
	// RoleFollower is a node following the current leader
	RoleFollower NodeRole = iota
	// RoleCandidate is a node standing for election
	RoleCandidate
	// RoleLeader is the elected leader that directs task assignment
	RoleLeader
	// RoleObserver is a node that never stands for election
	RoleObserver
)

// String returns the string representation of a NodeRole
func (r NodeRole) String() string {
	switch r {
	case RoleFollower:
		return "follower"
	case RoleCandidate:
		return "candidate"
	case RoleLeader:
		return "leader"
	case RoleObserver:
		return "observer"
	default:
		return "unknown"
	}
}

// NodeInfo contains identity and liveness information for a cluster node
type NodeInfo struct {
	ID            string            `json:"node_id"`
	Hostname      string            `json:"hostname"`
	IPAddress     string            `json:"ip_address"`
	Port          int               `json:"port"`
	State         NodeState         `json:"state"`
	Role          NodeRole          `json:"role"`
	Capabilities  []string          `json:"capabilities,omitempty"`
	LastHeartbeat time.Time         `json:"last_heartbeat"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// IsStale returns true if the node's heartbeat is older than the timeout
func (n NodeInfo) IsStale(timeout time.Duration) bool {
	return time.Since(n.LastHeartbeat) > timeout
}

// IsEligible returns true if the node can accept work
func (n NodeInfo) IsEligible() bool {
	return n.State == StateReady || n.State == StateActive
}

// HasCapability returns true if the node advertises the capability
func (n NodeInfo) HasCapability(capability string) bool {
	for _, c := range n.Capabilities {
		if c == capability {
			return true
		}
	}
	return false
}

// clone returns a deep copy of the node record
func (n *NodeInfo) clone() *NodeInfo {
	cp := *n
	if n.Capabilities != nil {
		cp.Capabilities = append([]string(nil), n.Capabilities...)
	}
	if n.Metadata != nil {
		cp.Metadata = make(map[string]string, len(n.Metadata))
		for k, v := range n.Metadata {
			cp.Metadata[k] = v
		}
	}
	return &cp
}

// Membership tracks all nodes known to this coordinator
//
// Concurrent Safety:
// 1. All public methods use RWMutex for thread-safe access
// 2. Read operations (Get, All, Eligible) return defensive copies
// 3. Write operations (Upsert, Heartbeat, MarkOffline) use Lock
type Membership struct {
	nodes           map[string]*NodeInfo // nodeID -> NodeInfo
	localID         string
	mu              sync.RWMutex
	metricsRegistry *metrics.Registry
}

// NewMembership creates a membership table seeded with the local node
func NewMembership(local NodeInfo) *Membership {
	local.LastHeartbeat = time.Now()

	m := &Membership{
		nodes:           make(map[string]*NodeInfo),
		localID:         local.ID,
		metricsRegistry: metrics.DefaultRegistry(),
	}
	m.nodes[local.ID] = local.clone()

	if m.metricsRegistry != nil {
		m.metricsRegistry.ClusterNodesTotal.Set(float64(len(m.nodes)))
	}

	return m
}

// LocalID returns the identifier of the local node
func (m *Membership) LocalID() string {
	return m.localID
}
