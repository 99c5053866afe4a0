package cluster

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config defines configuration for a cluster coordinator
type Config struct {
	// Node identification
	NodeID      string `yaml:"node_id"`
	BindAddress string `yaml:"bind_address"`
	BindPort    int    `yaml:"bind_port" validate:"gte=0,lte=65535"`

	// Peer addresses the gossip transport dials on startup
	Peers []string `yaml:"peers" validate:"dive,min=1"`

	// Timing
	HeartbeatInterval time.Duration `yaml:"-"`
	NodeTimeout       time.Duration `yaml:"-"`
	ElectionTimeout   time.Duration `yaml:"-"`
	LockTimeout       time.Duration `yaml:"-"`

	// Observer nodes never stand for election
	Observer bool `yaml:"observer"`

	LogLevel string `yaml:"log_level"`
}

// DefaultConfig returns a safe default configuration
func DefaultConfig() Config {
	return Config{
		BindAddress:       "0.0.0.0",
		BindPort:          7777,
		HeartbeatInterval: 2 * time.Second,
		NodeTimeout:       6 * time.Second,
		ElectionTimeout:   4 * time.Second,
		LockTimeout:       30 * time.Second,
		LogLevel:          "info",
	}
}

// rawConfig mirrors Config with string durations for YAML parsing
type rawConfig struct {
	NodeID            string   `yaml:"node_id"`
	BindAddress       string   `yaml:"bind_address"`
	BindPort          int      `yaml:"bind_port"`
	Peers             []string `yaml:"peers"`
	HeartbeatInterval string   `yaml:"heartbeat_interval"`
	NodeTimeout       string   `yaml:"node_timeout"`
	ElectionTimeout   string   `yaml:"election_timeout"`
	LockTimeout       string   `yaml:"lock_timeout"`
	Observer          bool     `yaml:"observer"`
	LogLevel          string   `yaml:"log_level"`
}

// UnmarshalYAML accepts durations as strings ("2s", "500ms"), applied over
// whatever values the target already holds
func (c *Config) UnmarshalYAML(value *yaml.Node) error {
	var raw rawConfig
	if err := value.Decode(&raw); err != nil {
		return err
	}

	if raw.NodeID != "" {
		c.NodeID = raw.NodeID
	}
	if raw.BindAddress != "" {
		c.BindAddress = raw.BindAddress
	}
	if raw.BindPort != 0 {
		c.BindPort = raw.BindPort
	}
	if raw.Peers != nil {
		c.Peers = raw.Peers
	}
	if raw.LogLevel != "" {
		c.LogLevel = raw.LogLevel
	}
	c.Observer = raw.Observer

	for _, d := range []struct {
		value  string
		target *time.Duration
		name   string
	}{
		{raw.HeartbeatInterval, &c.HeartbeatInterval, "heartbeat_interval"},
		{raw.NodeTimeout, &c.NodeTimeout, "node_timeout"},
		{raw.ElectionTimeout, &c.ElectionTimeout, "election_timeout"},
		{raw.LockTimeout, &c.LockTimeout, "lock_timeout"},
	} {
		if d.value == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.value)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", d.name, d.value, err)
		}
		*d.target = parsed
	}

	return nil
}

// LoadConfig reads a YAML config file over the defaults
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}

	return cfg, nil
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(c); err != nil {
		return err
	}
	if c.HeartbeatInterval <= 0 {
		return ErrInvalidInterval
	}
	if c.NodeTimeout <= c.HeartbeatInterval {
		return ErrNodeTimeoutTooSmall
	}
	if c.LockTimeout <= 0 {
		return ErrInvalidLockTimeout
	}
	return nil
}
