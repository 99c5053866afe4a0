package cluster

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestLockInvariants uses property-based testing to verify lease invariants.
// These properties should ALWAYS hold for any sequence of lock operations.
func TestLockInvariants(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping property-based test in short mode")
	}

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50

	properties := gopter.NewProperties(parameters)

	requesterGen := gen.OneConstOf("node-a", "node-b", "node-c")
	lockGen := gen.OneConstOf("alpha", "beta", "gamma")

	// Property 1: at most one requester ever holds a given lock, and the
	// second acquisition attempt always fails while the lease is live
	properties.Property("mutual exclusion", prop.ForAll(
		func(lock, first, second string) bool {
			lt := NewLockTable(30*time.Second, nil)

			if !lt.Acquire(lock, first) {
				return false
			}
			if lt.Acquire(lock, second) {
				return false
			}
			if !lt.IsHeldBy(lock, first) {
				return false
			}
			return second == first || !lt.IsHeldBy(lock, second)
		},
		lockGen,
		requesterGen,
		requesterGen,
	))

	// Property 2: only the holder can release
	properties.Property("release authorization", prop.ForAll(
		func(lock, holder, intruder string) bool {
			lt := NewLockTable(30*time.Second, nil)
			lt.Acquire(lock, holder)

			released := lt.Release(lock, intruder)
			if intruder == holder {
				return released && !lt.IsHeldBy(lock, holder)
			}
			return !released && lt.IsHeldBy(lock, holder)
		},
		lockGen,
		requesterGen,
		requesterGen,
	))

	// Property 3: acquire then release always leaves the lock free
	properties.Property("acquire release roundtrip frees the lock", prop.ForAll(
		func(lock, holder, next string) bool {
			lt := NewLockTable(30*time.Second, nil)

			if !lt.Acquire(lock, holder) {
				return false
			}
			if !lt.Release(lock, holder) {
				return false
			}
			return lt.Acquire(lock, next)
		},
		lockGen,
		requesterGen,
		requesterGen,
	))

	// Property 4: an expired lease never satisfies IsHeldBy, for any
	// positive lease duration and any elapsed time past it
	properties.Property("expired lease is never held", prop.ForAll(
		func(lock, holder string, leaseMs int64, extraMs int64) bool {
			lt := NewLockTable(30*time.Second, nil)
			clock := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
			lt.now = func() time.Time { return clock }

			lease := time.Duration(leaseMs) * time.Millisecond
			if !lt.AcquireWithTimeout(lock, holder, lease) {
				return false
			}

			clock = clock.Add(lease + time.Duration(extraMs)*time.Millisecond)
			return !lt.IsHeldBy(lock, holder)
		},
		lockGen,
		requesterGen,
		gen.Int64Range(1, 60_000),
		gen.Int64Range(0, 60_000),
	))

	properties.TestingRun(t)
}
