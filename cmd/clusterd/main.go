package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dd0wney/cluso-cluster/pkg/cluster"
	"github.com/dd0wney/cluso-cluster/pkg/metrics"
	"github.com/dd0wney/cluso-cluster/pkg/transport"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	nodeID := flag.String("node-id", "", "Node identifier (generated if empty)")
	bind := flag.String("bind", "", "Bind address for the gossip transport")
	port := flag.Int("port", 0, "Bind port for the gossip transport")
	peers := flag.String("peers", "", "Comma-separated peer addresses (tcp://host:port)")
	observer := flag.Bool("observer", false, "Join as an observer that never leads")
	capabilities := flag.String("capabilities", "", "Comma-separated task capabilities to advertise")
	adminPort := flag.Int("admin-port", 8080, "HTTP port for status and metrics")
	flag.Parse()

	cfg := cluster.DefaultConfig()
	if *configPath != "" {
		loaded, err := cluster.LoadConfig(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = loaded
	}

	// Flags override the file
	if *nodeID != "" {
		cfg.NodeID = *nodeID
	}
	if *bind != "" {
		cfg.BindAddress = *bind
	}
	if *port != 0 {
		cfg.BindPort = *port
	}
	if *peers != "" {
		cfg.Peers = strings.Split(*peers, ",")
	}
	if *observer {
		cfg.Observer = true
	}

	log.Printf("🚀 Cluso Cluster Coordinator starting...")

	coord, err := cluster.New(cfg)
	if err != nil {
		log.Fatalf("Failed to create coordinator: %v", err)
	}

	if err := coord.Start(); err != nil {
		log.Fatalf("Failed to start coordinator: %v", err)
	}
	log.Printf("📡 Node ID: %s", coord.NodeID())

	if *capabilities != "" {
		for _, capability := range strings.Split(*capabilities, ",") {
			coord.AddCapability(strings.TrimSpace(capability))
		}
	}

	gossip, err := startGossip(coord, cfg)
	if err != nil {
		log.Fatalf("Failed to start gossip transport: %v", err)
	}

	go serveAdmin(coord, *adminPort)

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Printf("Received %v, shutting down...", sig)

	gossip.Stop()
	if err := coord.Stop(); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
	log.Printf("✅ Coordinator stopped")
}

// startGossip wires the coordinator's membership view to the NNG bus socket
func startGossip(coord *cluster.Coordinator, cfg cluster.Config) (*transport.Gossip, error) {
	sock, err := transport.NewBusSocket()
	if err != nil {
		return nil, err
	}

	gossipCfg := transport.GossipConfig{
		ListenAddr: fmt.Sprintf("tcp://%s:%d", cfg.BindAddress, cfg.BindPort),
		Peers:      cfg.Peers,
		Interval:   cfg.HeartbeatInterval,
	}

	source := func() transport.Announcement {
		node, services := coord.LocalSnapshot()
		return transport.Announcement{
			Node:      node,
			Services:  services,
			Timestamp: time.Now(),
		}
	}
	sink := func(a transport.Announcement) {
		coord.MergePeer(a.Node, a.Services)
	}

	gossip := transport.NewGossip(sock, gossipCfg, source, sink, nil)
	if err := gossip.Start(); err != nil {
		return nil, err
	}

	log.Printf("✅ Gossip listening on %s (%d peers)", gossipCfg.ListenAddr, len(cfg.Peers))
	return gossip, nil
}

// serveAdmin exposes status, health and Prometheus metrics over HTTP
func serveAdmin(coord *cluster.Coordinator, port int) {
	mux := http.NewServeMux()

	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(coord.Status())
	})

	mux.HandleFunc("/nodes", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(coord.Membership().All())
	})

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		status := coord.Status()
		code := http.StatusOK
		if status.State == "offline" {
			code = http.StatusServiceUnavailable
		}
		w.WriteHeader(code)
		fmt.Fprintf(w, `{"state":%q,"role":%q}`, status.State, status.Role)
	})

	mux.Handle("/metrics", promhttp.HandlerFor(
		metrics.DefaultRegistry().GetPrometheusRegistry(),
		promhttp.HandlerOpts{},
	))

	addr := fmt.Sprintf(":%d", port)
	log.Printf("📊 Admin endpoints on %s (/status /nodes /health /metrics)", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Printf("Admin server failed: %v", err)
	}
}
