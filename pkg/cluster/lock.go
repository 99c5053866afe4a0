package cluster

import (
	"sort"
	"sync"
	"time"

	"github.com/dd0wney/cluso-cluster/pkg/logging"
	"github.com/dd0wney/cluso-cluster/pkg/metrics"
)

// LockInfo is a named lease: a time-bounded exclusive claim valid until
// AcquiredAt + Timeout. Expiry is evaluated lazily; nothing force-releases a
// lease on the holder's behalf.
type LockInfo struct {
	Name       string        `json:"name"`
	Holder     string        `json:"holder,omitempty"`
	AcquiredAt time.Time     `json:"acquired_at"`
	Timeout    time.Duration `json:"timeout"`
}

// expired reports whether the lease has lapsed. An unheld lock is not
// expired, it is simply free.
func (l *LockInfo) expired(now time.Time) bool {
	return l.Holder != "" && now.Sub(l.AcquiredAt) >= l.Timeout
}

// held reports whether the lock has a live lease
func (l *LockInfo) held(now time.Time) bool {
	return l.Holder != "" && now.Sub(l.AcquiredAt) < l.Timeout
}

// LockTable holds every named lease this coordinator knows about. Locks are
// created on first acquisition attempt and never persisted beyond process
// lifetime.
type LockTable struct {
	locks          map[string]*LockInfo
	defaultTimeout time.Duration
	mu             sync.Mutex
	logger         logging.Logger
	metricsReg     *metrics.Registry

	// now is swappable so lease expiry is testable without sleeping
	now func() time.Time
}

// NewLockTable creates an empty lock table
func NewLockTable(defaultTimeout time.Duration, logger logging.Logger) *LockTable {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &LockTable{
		locks:          make(map[string]*LockInfo),
		defaultTimeout: defaultTimeout,
		logger:         logger.With(logging.Component("locks")),
		metricsReg:     metrics.DefaultRegistry(),
		now:            time.Now,
	}
}

// Acquire attempts to take the named lock for the requester. It succeeds iff
// the lock is unheld or its lease has expired. Non-blocking: contention
// returns false and the caller retries.
func (lt *LockTable) Acquire(name, requester string) bool {
	return lt.AcquireWithTimeout(name, requester, lt.defaultTimeout)
}

// AcquireWithTimeout is Acquire with an explicit lease duration for this
// lock. The duration sticks to the lock record.
func (lt *LockTable) AcquireWithTimeout(name, requester string, timeout time.Duration) bool {
	if name == "" || requester == "" {
		return false
	}
	if timeout <= 0 {
		timeout = lt.defaultTimeout
	}

	lt.mu.Lock()
	defer lt.mu.Unlock()

	now := lt.now()
	lock, ok := lt.locks[name]
	if !ok {
		lock = &LockInfo{Name: name, Timeout: timeout}
		lt.locks[name] = lock
	}

	result := "acquired"
	switch {
	case lock.held(now):
		if lt.metricsReg != nil {
			lt.metricsReg.RecordLockAcquisition("contended")
		}
		return false
	case lock.expired(now):
		lt.logger.Warn("reclaiming expired lease",
			logging.LockName(name),
			logging.NodeID(lock.Holder),
			logging.Duration("age", now.Sub(lock.AcquiredAt)))
		result = "reclaimed"
	}

	lock.Holder = requester
	lock.AcquiredAt = now
	lock.Timeout = timeout

	if lt.metricsReg != nil {
		lt.metricsReg.RecordLockAcquisition(result)
		lt.metricsReg.LocksHeld.Set(float64(lt.heldCountLocked(now)))
	}

	lt.logger.Info("lock acquired", logging.LockName(name), logging.NodeID(requester))
	return true
}

// Release gives up the named lock. Only the current holder may release;
// anything else is a no-op returning false.
func (lt *LockTable) Release(name, requester string) bool {
	lt.mu.Lock()
	defer lt.mu.Unlock()

	lock, ok := lt.locks[name]
	if !ok || lock.Holder != requester {
		if ok && lock.Holder != "" {
			lt.logger.Warn("release denied",
				logging.LockName(name),
				logging.NodeID(requester),
				logging.String("holder", lock.Holder))
		}
		if lt.metricsReg != nil {
			lt.metricsReg.RecordLockRelease("denied")
		}
		return false
	}

	lock.Holder = ""
	lock.AcquiredAt = time.Time{}

	if lt.metricsReg != nil {
		lt.metricsReg.RecordLockRelease("released")
		lt.metricsReg.LocksHeld.Set(float64(lt.heldCountLocked(lt.now())))
	}

	lt.logger.Info("lock released", logging.LockName(name), logging.NodeID(requester))
	return true
}

// IsHeldBy reports whether the requester currently holds a live lease on the
// named lock. An expired lease does not count, even before anyone reclaims it.
func (lt *LockTable) IsHeldBy(name, requester string) bool {
	lt.mu.Lock()
	defer lt.mu.Unlock()

	lock, ok := lt.locks[name]
	if !ok {
		return false
	}
	return lock.Holder == requester && lock.held(lt.now())
}

// Snapshot returns a copy of every lock record, sorted by name
func (lt *LockTable) Snapshot() []LockInfo {
	lt.mu.Lock()
	defer lt.mu.Unlock()

	out := make([]LockInfo, 0, len(lt.locks))
	for _, lock := range lt.locks {
		out = append(out, *lock)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Count returns the number of lock records, held or not
func (lt *LockTable) Count() int {
	lt.mu.Lock()
	defer lt.mu.Unlock()

	return len(lt.locks)
}

// ExpiredLocks returns copies of locks whose lease has lapsed without a
// release. Report-only: the records are not mutated.
func (lt *LockTable) ExpiredLocks() []LockInfo {
	lt.mu.Lock()
	defer lt.mu.Unlock()

	now := lt.now()
	out := make([]LockInfo, 0)
	for _, lock := range lt.locks {
		if lock.expired(now) {
			out = append(out, *lock)
		}
	}
	return out
}

func (lt *LockTable) heldCountLocked(now time.Time) int {
	count := 0
	for _, lock := range lt.locks {
		if lock.held(now) {
			count++
		}
	}
	return count
}
