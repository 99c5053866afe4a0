package cluster

import (
	"sync"
	"time"

	"github.com/dd0wney/cluso-cluster/pkg/logging"
)

// heartbeatLoop refreshes the local node's heartbeat on every interval
func (c *Coordinator) heartbeatLoop(stopCh <-chan struct{}) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			c.safeTick("heartbeat", c.heartbeatTick)
		}
	}
}

func (c *Coordinator) heartbeatTick() {
	c.membership.Heartbeat(c.cfg.NodeID)
	if c.metricsReg != nil {
		c.metricsReg.ClusterHeartbeatsTotal.Inc()
	}
}

// monitorLoop runs failure detection, the election tick, and task dispatch.
// It ticks at half the heartbeat interval so a lost node is noticed within
// one detector pass of its timeout.
func (c *Coordinator) monitorLoop(stopCh <-chan struct{}) {
	defer c.wg.Done()

	interval := c.cfg.HeartbeatInterval / 2
	if interval <= 0 {
		interval = time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			c.safeTick("monitor", c.monitorTick)
		}
	}
}

func (c *Coordinator) monitorTick() {
	lost := c.detector.DetectOnce()
	if len(lost) > 0 {
		c.logger.Warn("failure detector marked nodes offline", logging.Count(len(lost)))
	}

	c.election.RunOnce()

	// Only the leader directs task assignment
	if c.election.IsLeader() {
		c.tasks.DispatchTick()
	}

	if c.metricsReg != nil {
		c.metricsReg.UpdateClusterMetrics(
			c.membership.Count(),
			c.membership.HealthyCount(c.cfg.NodeTimeout),
			c.election.Term(),
		)
		c.metricsReg.UpdateSystemMetrics(c.startTime)
	}
}

// safeTick runs one tick iteration, recovering any panic so a single failed
// iteration never terminates a loop
func (c *Coordinator) safeTick(name string, tick func()) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("tick panicked",
				logging.String("loop", name),
				logging.Any("panic", r))
		}
	}()

	tick()
}

// waitTimeout waits for the group up to the timeout; returns false on timeout
func waitTimeout(wg *sync.WaitGroup, timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}
