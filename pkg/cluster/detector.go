package cluster

import (
	"time"

	"github.com/dd0wney/cluso-cluster/pkg/eventbus"
	"github.com/dd0wney/cluso-cluster/pkg/logging"
	"github.com/dd0wney/cluso-cluster/pkg/metrics"
	"github.com/dd0wney/cluso-cluster/pkg/registry"
)

// FailureDetector scans the membership table for stale heartbeats and
// transitions lost nodes to offline. Detection is purely time-based: false
// positives under clock skew or scheduling delay are accepted behavior.
type FailureDetector struct {
	membership  *Membership
	services    *registry.FederatedRegistry
	locks       *LockTable
	bus         *eventbus.Bus
	nodeTimeout time.Duration
	logger      logging.Logger
	metricsReg  *metrics.Registry
}

// NewFailureDetector creates a detector over the coordinator's tables
func NewFailureDetector(
	membership *Membership,
	services *registry.FederatedRegistry,
	locks *LockTable,
	bus *eventbus.Bus,
	nodeTimeout time.Duration,
	logger logging.Logger,
) *FailureDetector {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &FailureDetector{
		membership:  membership,
		services:    services,
		locks:       locks,
		bus:         bus,
		nodeTimeout: nodeTimeout,
		logger:      logger.With(logging.Component("detector")),
		metricsReg:  metrics.DefaultRegistry(),
	}
}

// DetectOnce performs a single failure-detection pass and returns the IDs of
// nodes marked offline. The local node and nodes in maintenance are exempt.
// Every offline transition cleans the node's service advertisements so stale
// entries never leak into lookups.
func (fd *FailureDetector) DetectOnce() []string {
	var lost []string

	for _, node := range fd.membership.All() {
		if node.ID == fd.membership.LocalID() {
			continue
		}
		if node.State == StateOffline || node.State == StateMaintenance {
			continue
		}
		if !node.IsStale(fd.nodeTimeout) {
			continue
		}

		if !fd.membership.MarkOffline(node.ID) {
			continue
		}
		lost = append(lost, node.ID)

		removed := 0
		if fd.services != nil {
			removed = fd.services.CleanupNode(node.ID)
		}

		fd.logger.Warn("node lost",
			logging.NodeID(node.ID),
			logging.Duration("since_heartbeat", time.Since(node.LastHeartbeat)),
			logging.Int("services_removed", removed))

		if fd.metricsReg != nil {
			fd.metricsReg.ClusterNodesLostTotal.Inc()
		}
		if fd.bus != nil {
			fd.bus.Trigger(eventbus.EventNodeLost, map[string]any{
				"node_id": node.ID,
				"role":    node.Role.String(),
			})
		}
	}

	fd.sweepExpiredLocks()

	return lost
}

// sweepExpiredLocks reports leases that lapsed without a release. Report
// only: reclaiming is left to the next acquirer so lock semantics stay lazy.
func (fd *FailureDetector) sweepExpiredLocks() {
	if fd.locks == nil {
		return
	}
	for _, lock := range fd.locks.ExpiredLocks() {
		fd.logger.Warn("lease expired without release",
			logging.LockName(lock.Name),
			logging.NodeID(lock.Holder))
		if fd.metricsReg != nil {
			fd.metricsReg.LocksExpiredReported.Inc()
		}
	}
}
