package cluster

import (
	"time"
)

// Upsert registers a node or refreshes an existing record from an inbound
// announcement. The node's heartbeat is refreshed; an offline node with a
// fresh heartbeat re-enters as ready, no recovery handshake required.
// Returns true if the node was previously unknown.
func (m *Membership) Upsert(info NodeInfo) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, known := m.nodes[info.ID]

	cp := info.clone()
	cp.LastHeartbeat = time.Now()
	// A node we just heard from is alive regardless of what its record or
	// the announcement claims.
	if cp.State == StateOffline {
		cp.State = StateReady
	}
	m.nodes[info.ID] = cp

	if m.metricsRegistry != nil {
		m.metricsRegistry.ClusterNodesTotal.Set(float64(len(m.nodes)))
	}

	return !known
}

// Heartbeat refreshes a node's last-seen timestamp. An offline node re-enters
// as ready. Returns false if the node is unknown.
func (m *Membership) Heartbeat(nodeID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	node, ok := m.nodes[nodeID]
	if !ok {
		return false
	}

	node.LastHeartbeat = time.Now()
	if node.State == StateOffline {
		node.State = StateReady
	}
	return true
}

// MarkOffline transitions a node to offline. Returns false if the node is
// unknown or already offline.
func (m *Membership) MarkOffline(nodeID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	node, ok := m.nodes[nodeID]
	if !ok || node.State == StateOffline {
		return false
	}

	node.State = StateOffline
	return true
}

// Remove deletes a node from the table. Administrative operation only; nodes
// are never removed automatically.
func (m *Membership) Remove(nodeID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if nodeID == m.localID {
		return ErrCannotRemoveSelf
	}
	if _, ok := m.nodes[nodeID]; !ok {
		return ErrNodeNotFound
	}

	delete(m.nodes, nodeID)

	if m.metricsRegistry != nil {
		m.metricsRegistry.ClusterNodesTotal.Set(float64(len(m.nodes)))
	}

	return nil
}

// SetLocalState updates the local node's state
func (m *Membership) SetLocalState(state NodeState) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nodes[m.localID].State = state
}

// SetLocalRole updates the local node's role
func (m *Membership) SetLocalRole(role NodeRole) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nodes[m.localID].Role = role
}

// SetRole updates a node's role from an observed leadership claim
func (m *Membership) SetRole(nodeID string, role NodeRole) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	node, ok := m.nodes[nodeID]
	if !ok {
		return ErrNodeNotFound
	}

	node.Role = role
	return nil
}

// AddLocalCapability advertises a capability on the local node. Returns false
// if already advertised.
func (m *Membership) AddLocalCapability(capability string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	local := m.nodes[m.localID]
	for _, c := range local.Capabilities {
		if c == capability {
			return false
		}
	}
	local.Capabilities = append(local.Capabilities, capability)
	return true
}

// RemoveLocalCapability withdraws a capability from the local node. Returns
// false if it was not advertised.
func (m *Membership) RemoveLocalCapability(capability string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	local := m.nodes[m.localID]
	for i, c := range local.Capabilities {
		if c == capability {
			local.Capabilities = append(local.Capabilities[:i], local.Capabilities[i+1:]...)
			return true
		}
	}
	return false
}
