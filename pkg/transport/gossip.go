package transport

import (
	"fmt"
	"sync"
	"time"

	"github.com/dd0wney/cluso-cluster/pkg/logging"
)

// Source produces the local announcement to broadcast
type Source func() Announcement

// Sink applies an announcement received from a peer
type Sink func(Announcement)

// GossipConfig configures the gossip component
type GossipConfig struct {
	// ListenAddr is the mangos address this node listens on, e.g.
	// "tcp://0.0.0.0:7777". Empty means dial-only.
	ListenAddr string
	// Peers are addresses dialed on Start. Unreachable peers retry inside
	// mangos; startup does not fail on them.
	Peers []string
	// Interval between announcements
	Interval time.Duration
}

// Gossip periodically broadcasts the local announcement and applies peer
// announcements as they arrive
//
// Concurrent Safety:
// 1. Start/Stop use sync.Once for single initialization/cleanup
// 2. Broadcast and receive goroutines respect stopCh for clean shutdown
// 3. The sink callback runs on the receive goroutine; it must be
//    thread-safe (the coordinator's tables are)
type Gossip struct {
	sock      Socket
	cfg       GossipConfig
	source    Source
	sink      Sink
	stopCh    chan struct{}
	wg        sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once
	logger    logging.Logger
}

// NewGossip creates a gossip component over a socket
func NewGossip(sock Socket, cfg GossipConfig, source Source, sink Sink, logger logging.Logger) *Gossip {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 2 * time.Second
	}
	return &Gossip{
		sock:   sock,
		cfg:    cfg,
		source: source,
		sink:   sink,
		stopCh: make(chan struct{}),
		logger: logger.With(logging.Component("gossip")),
	}
}

// Start binds the socket, dials the configured peers, and launches the
// broadcast and receive loops
func (g *Gossip) Start() error {
	var startErr error
	g.startOnce.Do(func() {
		if g.cfg.ListenAddr != "" {
			if err := g.sock.Listen(g.cfg.ListenAddr); err != nil {
				startErr = fmt.Errorf("gossip listen %s: %w", g.cfg.ListenAddr, err)
				return
			}
		}
		for _, peer := range g.cfg.Peers {
			if err := g.sock.Dial(peer); err != nil {
				// Peer may come up later; mangos keeps redialing
				g.logger.Warn("peer dial failed",
					logging.String("peer", peer),
					logging.Error(err))
			}
		}

		// Bounded Recv so the receive loop can observe shutdown
		if err := g.sock.SetRecvDeadline(g.cfg.Interval); err != nil {
			startErr = fmt.Errorf("gossip recv deadline: %w", err)
			return
		}

		g.wg.Add(2)
		go g.broadcastLoop()
		go g.receiveLoop()

		g.logger.Info("gossip started",
			logging.String("listen", g.cfg.ListenAddr),
			logging.Count(len(g.cfg.Peers)))
	})
	return startErr
}

// Stop signals the loops and closes the socket
func (g *Gossip) Stop() {
	g.stopOnce.Do(func() {
		close(g.stopCh)
		g.sock.Close()
		g.wg.Wait()
		g.logger.Info("gossip stopped")
	})
}

func (g *Gossip) broadcastLoop() {
	defer g.wg.Done()

	ticker := time.NewTicker(g.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-g.stopCh:
			return
		case <-ticker.C:
			g.broadcast()
		}
	}
}

func (g *Gossip) broadcast() {
	data, err := EncodeAnnouncement(g.source())
	if err != nil {
		g.logger.Error("announcement encode failed", logging.Error(err))
		return
	}
	if err := g.sock.Send(data); err != nil {
		select {
		case <-g.stopCh:
		default:
			g.logger.Warn("announcement send failed", logging.Error(err))
		}
	}
}

func (g *Gossip) receiveLoop() {
	defer g.wg.Done()

	for {
		select {
		case <-g.stopCh:
			return
		default:
		}

		data, err := g.sock.Recv()
		if err != nil {
			// Deadline expiry is the normal idle path
			continue
		}

		announcement, err := DecodeAnnouncement(data)
		if err != nil {
			g.logger.Warn("dropping malformed announcement", logging.Error(err))
			continue
		}

		g.sink(announcement)
	}
}
