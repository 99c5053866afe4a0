package transport

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/dd0wney/cluso-cluster/pkg/cluster"
	"github.com/dd0wney/cluso-cluster/pkg/registry"
)

func testAnnouncement(nodeID string) Announcement {
	return Announcement{
		Node: cluster.NodeInfo{
			ID:           nodeID,
			Hostname:     "test-host",
			IPAddress:    "127.0.0.1",
			Port:         7777,
			State:        cluster.StateReady,
			Capabilities: []string{"echo"},
		},
		Services: []registry.Registration{
			{NodeID: nodeID, Service: "echo"},
		},
		Timestamp: time.Now(),
	}
}

// TestAnnouncementCodec tests that a decoded announcement matches what was
// encoded, through the snappy layer
func TestAnnouncementCodec(t *testing.T) {
	original := testAnnouncement("node-1")

	data, err := EncodeAnnouncement(original)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	decoded, err := DecodeAnnouncement(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if decoded.Node.ID != "node-1" {
		t.Errorf("Expected node-1, got %s", decoded.Node.ID)
	}
	if decoded.Node.State != cluster.StateReady {
		t.Errorf("Expected ready state, got %v", decoded.Node.State)
	}
	if len(decoded.Services) != 1 || decoded.Services[0].Service != "echo" {
		t.Errorf("Expected echo service registration, got %v", decoded.Services)
	}
}

// TestDecodeMalformed tests that garbage input errors instead of panicking
func TestDecodeMalformed(t *testing.T) {
	if _, err := DecodeAnnouncement([]byte("not snappy data")); err == nil {
		t.Error("Expected error decoding garbage")
	}
}

// TestGossipExchange tests that two gossips over an inproc bus deliver each
// other's announcements
func TestGossipExchange(t *testing.T) {
	addr := fmt.Sprintf("inproc://gossip-test-%d", time.Now().UnixNano())

	sock1, err := NewBusSocket()
	if err != nil {
		t.Fatalf("Failed to create socket: %v", err)
	}
	sock2, err := NewBusSocket()
	if err != nil {
		t.Fatalf("Failed to create socket: %v", err)
	}

	var mu sync.Mutex
	seenBy1 := make(map[string]bool)
	seenBy2 := make(map[string]bool)

	g1 := NewGossip(sock1,
		GossipConfig{ListenAddr: addr, Interval: 20 * time.Millisecond},
		func() Announcement { return testAnnouncement("node-1") },
		func(a Announcement) {
			mu.Lock()
			seenBy1[a.Node.ID] = true
			mu.Unlock()
		}, nil)

	g2 := NewGossip(sock2,
		GossipConfig{Peers: []string{addr}, Interval: 20 * time.Millisecond},
		func() Announcement { return testAnnouncement("node-2") },
		func(a Announcement) {
			mu.Lock()
			seenBy2[a.Node.ID] = true
			mu.Unlock()
		}, nil)

	if err := g1.Start(); err != nil {
		t.Fatalf("g1 start failed: %v", err)
	}
	defer g1.Stop()

	if err := g2.Start(); err != nil {
		t.Fatalf("g2 start failed: %v", err)
	}
	defer g2.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		done := seenBy1["node-2"] && seenBy2["node-1"]
		mu.Unlock()
		if done {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	t.Fatalf("Announcements not exchanged: seenBy1=%v seenBy2=%v", seenBy1, seenBy2)
}

// TestGossipStopIdempotent tests that Stop is safe to call twice
func TestGossipStopIdempotent(t *testing.T) {
	sock, err := NewBusSocket()
	if err != nil {
		t.Fatalf("Failed to create socket: %v", err)
	}

	g := NewGossip(sock,
		GossipConfig{Interval: 20 * time.Millisecond},
		func() Announcement { return testAnnouncement("node-1") },
		func(Announcement) {}, nil)

	if err := g.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	g.Stop()
	g.Stop()
}
