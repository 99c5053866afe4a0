package cluster

import "errors"

// Configuration errors
var (
	ErrInvalidInterval     = errors.New("heartbeat interval must be positive")
	ErrNodeTimeoutTooSmall = errors.New("node timeout must be greater than heartbeat interval")
	ErrInvalidLockTimeout  = errors.New("lock timeout must be positive")
)

// Lifecycle errors
var (
	ErrAlreadyRunning = errors.New("coordinator already running")
	ErrNotRunning     = errors.New("coordinator not running")
)

// Membership errors
var (
	ErrNodeNotFound     = errors.New("node not found in membership")
	ErrCannotRemoveSelf = errors.New("cannot remove self from cluster")
)
