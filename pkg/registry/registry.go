// Package registry implements the federated service registry: a mapping from
// service names to the nodes that advertise them. It is pure bookkeeping; no
// network calls happen here.
package registry

import (
	"sync"
	"time"

	"github.com/dd0wney/cluso-cluster/pkg/metrics"
)

// Registration records a single (node, service) advertisement.
type Registration struct {
	NodeID       string            `json:"node_id"`
	Service      string            `json:"service"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	RegisteredAt time.Time         `json:"registered_at"`
	LastUpdate   time.Time         `json:"last_update"`
}

// FederatedRegistry tracks which nodes provide which services
//
// Concurrent Safety:
// 1. All public methods use RWMutex for thread-safe access
// 2. Read operations return defensive copies
// 3. CleanupNode is called by the coordinator on every offline transition so
//    stale advertisements never leak into FindService results
type FederatedRegistry struct {
	entries         map[entryKey]*Registration
	mu              sync.RWMutex
	metricsRegistry *metrics.Registry
}

// entryKey identifies one advertisement. A struct key rather than a joined
// string, since node IDs arrive over gossip and may contain any separator.
type entryKey struct {
	nodeID  string
	service string
}

// New creates an empty federated registry
func New() *FederatedRegistry {
	return &FederatedRegistry{
		entries:         make(map[entryKey]*Registration),
		metricsRegistry: metrics.DefaultRegistry(),
	}
}

// RegisterService records that a node provides a service. Re-registering
// refreshes LastUpdate and metadata but keeps the original RegisteredAt.
func (fr *FederatedRegistry) RegisterService(nodeID, service string, metadata map[string]string) bool {
	if nodeID == "" || service == "" {
		return false
	}

	fr.mu.Lock()
	defer fr.mu.Unlock()

	now := time.Now()
	k := entryKey{nodeID, service}
	if existing, ok := fr.entries[k]; ok {
		existing.Metadata = copyMetadata(metadata)
		existing.LastUpdate = now
		return true
	}

	fr.entries[k] = &Registration{
		NodeID:       nodeID,
		Service:      service,
		Metadata:     copyMetadata(metadata),
		RegisteredAt: now,
		LastUpdate:   now,
	}

	if fr.metricsRegistry != nil {
		fr.metricsRegistry.ServicesRegistered.Set(float64(len(fr.entries)))
	}

	return true
}

// UnregisterService removes a single advertisement
func (fr *FederatedRegistry) UnregisterService(nodeID, service string) bool {
	fr.mu.Lock()
	defer fr.mu.Unlock()

	k := entryKey{nodeID, service}
	if _, ok := fr.entries[k]; !ok {
		return false
	}

	delete(fr.entries, k)

	if fr.metricsRegistry != nil {
		fr.metricsRegistry.ServicesRegistered.Set(float64(len(fr.entries)))
	}

	return true
}

// FindService returns all registrations for a service
func (fr *FederatedRegistry) FindService(service string) []Registration {
	fr.mu.RLock()
	defer fr.mu.RUnlock()

	if fr.metricsRegistry != nil {
		fr.metricsRegistry.ServiceLookupsTotal.Inc()
	}

	results := make([]Registration, 0)
	for _, entry := range fr.entries {
		if entry.Service == service {
			results = append(results, *entry)
		}
	}

	return results
}

// NodeServices returns the names of all services a node provides
func (fr *FederatedRegistry) NodeServices(nodeID string) []string {
	fr.mu.RLock()
	defer fr.mu.RUnlock()

	services := make([]string, 0)
	for _, entry := range fr.entries {
		if entry.NodeID == nodeID {
			services = append(services, entry.Service)
		}
	}

	return services
}

// CleanupNode removes every advertisement belonging to a node and returns the
// number removed. Called when a node goes offline or leaves.
func (fr *FederatedRegistry) CleanupNode(nodeID string) int {
	fr.mu.Lock()
	defer fr.mu.Unlock()

	removed := 0
	for k, entry := range fr.entries {
		if entry.NodeID == nodeID {
			delete(fr.entries, k)
			removed++
		}
	}

	if removed > 0 && fr.metricsRegistry != nil {
		fr.metricsRegistry.ServicesRegistered.Set(float64(len(fr.entries)))
		fr.metricsRegistry.ServiceCleanupsTotal.Add(float64(removed))
	}

	return removed
}

// Count returns the total number of registrations
func (fr *FederatedRegistry) Count() int {
	fr.mu.RLock()
	defer fr.mu.RUnlock()

	return len(fr.entries)
}

func copyMetadata(metadata map[string]string) map[string]string {
	if metadata == nil {
		return nil
	}
	out := make(map[string]string, len(metadata))
	for k, v := range metadata {
		out[k] = v
	}
	return out
}
