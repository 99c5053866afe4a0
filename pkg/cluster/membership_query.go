package cluster

import (
	"sort"
	"time"
)

// Get returns a copy of a node record
func (m *Membership) Get(nodeID string) (*NodeInfo, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	node, ok := m.nodes[nodeID]
	if !ok {
		return nil, false
	}
	return node.clone(), true
}

// Local returns a copy of the local node record
func (m *Membership) Local() NodeInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return *m.nodes[m.localID].clone()
}

// All returns copies of every node record
func (m *Membership) All() []NodeInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	nodes := make([]NodeInfo, 0, len(m.nodes))
	for _, node := range m.nodes {
		nodes = append(nodes, *node.clone())
	}
	return nodes
}

// Eligible returns nodes that can accept work, sorted by ID so round-robin
// rotation is deterministic
func (m *Membership) Eligible() []NodeInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	nodes := make([]NodeInfo, 0, len(m.nodes))
	for _, node := range m.nodes {
		if node.IsEligible() {
			nodes = append(nodes, *node.clone())
		}
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
	return nodes
}

// Leaders returns every non-offline node currently claiming leadership.
// More than one entry means a conflict the election tick must resolve.
func (m *Membership) Leaders() []NodeInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	leaders := make([]NodeInfo, 0, 1)
	for _, node := range m.nodes {
		if node.Role == RoleLeader && node.State != StateOffline {
			leaders = append(leaders, *node.clone())
		}
	}
	sort.Slice(leaders, func(i, j int) bool { return leaders[i].ID < leaders[j].ID })
	return leaders
}

// Leader returns the current leader, or nil if none is known
func (m *Membership) Leader() *NodeInfo {
	leaders := m.Leaders()
	if len(leaders) == 0 {
		return nil
	}
	// Highest ID wins a conflict, so report that one
	return &leaders[len(leaders)-1]
}

// Candidates returns eligible nodes currently standing for election,
// sorted by ID
func (m *Membership) Candidates() []NodeInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	candidates := make([]NodeInfo, 0)
	for _, node := range m.nodes {
		if node.Role == RoleCandidate && node.IsEligible() {
			candidates = append(candidates, *node.clone())
		}
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].ID < candidates[j].ID })
	return candidates
}

// Count returns the total number of known nodes
func (m *Membership) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.nodes)
}

// HealthyCount returns the number of nodes with a heartbeat fresher than the
// timeout
func (m *Membership) HealthyCount(timeout time.Duration) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, node := range m.nodes {
		if !node.IsStale(timeout) {
			count++
		}
	}
	return count
}

// ActiveCount returns the number of nodes not offline and not in maintenance
func (m *Membership) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, node := range m.nodes {
		if node.State != StateOffline && node.State != StateMaintenance {
			count++
		}
	}
	return count
}
