package cluster

import (
	"sync"
	"time"

	"github.com/dd0wney/cluso-cluster/pkg/eventbus"
	"github.com/dd0wney/cluso-cluster/pkg/logging"
	"github.com/dd0wney/cluso-cluster/pkg/metrics"
)

// ElectionManager assigns the leader role among known nodes using timeout
// based self-promotion. This is deliberately not a quorum consensus protocol:
// a node that observes no leader for an election timeout promotes itself, and
// candidate ties break on the highest node ID. Split votes under partition
// are not resolved beyond that rule; the guarantee is eventual, not
// linearizable.
type ElectionManager struct {
	membership      *Membership
	bus             *eventbus.Bus
	electionTimeout time.Duration

	term           uint64
	leaderID       string
	lastLeaderSeen time.Time
	mu             sync.Mutex

	logger     logging.Logger
	metricsReg *metrics.Registry
}

// NewElectionManager creates an election manager over the membership table
func NewElectionManager(
	membership *Membership,
	bus *eventbus.Bus,
	electionTimeout time.Duration,
	logger logging.Logger,
) *ElectionManager {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &ElectionManager{
		membership:      membership,
		bus:             bus,
		electionTimeout: electionTimeout,
		lastLeaderSeen:  time.Now(),
		logger:          logger.With(logging.Component("election")),
		metricsReg:      metrics.DefaultRegistry(),
	}
}

// RunOnce evaluates leadership for one tick. Called from the coordinator's
// monitor loop and directly by tests.
func (em *ElectionManager) RunOnce() {
	local := em.membership.Local()
	if local.Role == RoleObserver {
		return
	}

	em.mu.Lock()
	defer em.mu.Unlock()

	leaders := em.membership.Leaders()

	switch {
	case len(leaders) == 0:
		em.noLeaderLocked(local)
	case len(leaders) == 1 && leaders[0].ID == local.ID:
		// Uncontested leadership
		em.leaderID = local.ID
		em.lastLeaderSeen = time.Now()
	default:
		em.observeLeadersLocked(local, leaders)
	}
}

// noLeaderLocked handles a tick with no live leader in sight
func (em *ElectionManager) noLeaderLocked(local NodeInfo) {
	em.leaderID = ""

	if local.Role != RoleCandidate {
		em.membership.SetLocalRole(RoleCandidate)
		em.logger.Info("no leader observed, standing as candidate",
			logging.NodeID(local.ID))
		if em.metricsReg != nil {
			em.metricsReg.SetClusterRole("candidate")
		}
		return
	}

	if time.Since(em.lastLeaderSeen) < em.electionTimeout {
		return
	}

	// Election round: highest node ID among standing candidates wins.
	// If that is not us, stay candidate until the winner claims leadership.
	winner := local.ID
	for _, candidate := range em.membership.Candidates() {
		if candidate.ID > winner {
			winner = candidate.ID
		}
	}
	if winner == local.ID {
		em.becomeLeaderLocked(local)
	}
}

// observeLeadersLocked handles one or more remote leadership claims. The
// highest ID keeps the role; everyone else steps down to follower.
func (em *ElectionManager) observeLeadersLocked(local NodeInfo, leaders []NodeInfo) {
	winner := leaders[len(leaders)-1] // sorted by ID

	em.lastLeaderSeen = time.Now()
	em.leaderID = winner.ID

	if winner.ID == local.ID {
		if len(leaders) > 1 {
			em.logger.Warn("leadership conflict resolved in our favor",
				logging.Count(len(leaders)))
		}
		return
	}

	if local.Role != RoleFollower {
		em.membership.SetLocalRole(RoleFollower)
		em.logger.Info("adopting follower role",
			logging.NodeID(local.ID),
			logging.String("leader_id", winner.ID))
		if em.metricsReg != nil {
			em.metricsReg.ClusterElectionsTotal.WithLabelValues("adopted").Inc()
			em.metricsReg.SetClusterRole("follower")
		}
	}

	// A stale leadership claim by a lower ID resolves here too
	for _, leader := range leaders[:len(leaders)-1] {
		if leader.ID != local.ID {
			em.membership.SetRole(leader.ID, RoleFollower)
		}
	}
}

// becomeLeaderLocked promotes the local node and announces it
func (em *ElectionManager) becomeLeaderLocked(local NodeInfo) {
	em.term++
	em.membership.SetLocalRole(RoleLeader)
	em.leaderID = local.ID
	em.lastLeaderSeen = time.Now()

	em.logger.Info("became leader",
		logging.NodeID(local.ID),
		logging.Uint64("term", em.term))

	if em.metricsReg != nil {
		em.metricsReg.ClusterElectionsTotal.WithLabelValues("won").Inc()
		em.metricsReg.SetClusterRole("leader")
		em.metricsReg.ClusterTerm.Set(float64(em.term))
	}

	if em.bus != nil {
		em.bus.Trigger(eventbus.EventLeaderElected, map[string]any{
			"leader_id": local.ID,
			"term":      em.term,
		})
	}
}

// Role returns the local node's current role
func (em *ElectionManager) Role() NodeRole {
	return em.membership.Local().Role
}

// IsLeader reports whether the local node currently leads
func (em *ElectionManager) IsLeader() bool {
	return em.Role() == RoleLeader
}

// Term returns the current election term
func (em *ElectionManager) Term() uint64 {
	em.mu.Lock()
	defer em.mu.Unlock()

	return em.term
}

// LeaderID returns the ID of the current leader, empty if none is known
func (em *ElectionManager) LeaderID() string {
	em.mu.Lock()
	defer em.mu.Unlock()

	return em.leaderID
}
