// Package config loads node configuration from a YAML cluster file, the
// environment and flags, and validates the result.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/dd0wney/cluso-kv/pkg/cluster"
	"gopkg.in/yaml.v3"
)

// Config is the complete configuration of one node.
type Config struct {
	NodeID        int    `yaml:"node_id" validate:"required,min=1"`
	ListenAddr    string `yaml:"listen_addr" validate:"required,hostname_port"`
	AdvertiseAddr string `yaml:"advertise_addr" validate:"omitempty,hostname_port"` // address peers use; defaults to listen_addr
	PublicAddr    string `yaml:"public_addr" validate:"omitempty,hostname_port"`    // address clients are redirected to
	DataDir       string `yaml:"data_dir" validate:"required"`
	LogLevel      string `yaml:"log_level" validate:"omitempty,oneof=debug info warn warning error DEBUG INFO WARN WARNING ERROR"`

	Transport     string `yaml:"transport" validate:"required,oneof=http nng"`
	NNGListenAddr string `yaml:"nng_listen_addr" validate:"required_if=Transport nng"`
	NNGWorkers    int    `yaml:"nng_workers" validate:"min=1,max=256"`

	Timing Timing       `yaml:"timing"`
	Peers  []PeerConfig `yaml:"peers" validate:"dive"`
}

// Timing holds the detector, elector and call timeouts.
type Timing struct {
	ProbeInterval    time.Duration `yaml:"probe_interval" validate:"gt=0"`
	ElectionInterval time.Duration `yaml:"election_interval" validate:"gt=0"`
	AliveTimeout     time.Duration `yaml:"alive_timeout" validate:"gt=0"`
	CallTimeout      time.Duration `yaml:"call_timeout" validate:"gt=0"`
}

// PeerConfig is one entry of the peers list.
type PeerConfig struct {
	ID         int    `yaml:"id" validate:"required,min=1"`
	Addr       string `yaml:"addr" validate:"required,hostname_port"`
	PublicAddr string `yaml:"public_addr" validate:"omitempty,hostname_port"`
	NNGAddr    string `yaml:"nng_addr"`
}

// Default returns a configuration with every optional field set.
func Default() Config {
	timing := cluster.DefaultClusterConfig()
	return Config{
		ListenAddr: ":7000",
		DataDir:    "./data",
		LogLevel:   "info",
		Transport:  "http",
		NNGWorkers: 4,
		Timing: Timing{
			ProbeInterval:    timing.ProbeInterval,
			ElectionInterval: timing.ElectionInterval,
			AliveTimeout:     timing.AliveTimeout,
			CallTimeout:      timing.CallTimeout,
		},
	}
}

// Parse decodes YAML on top of cfg.
func Parse(data []byte, cfg *Config) error {
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse cluster file: %w", err)
	}
	return nil
}

// LoadFile reads a YAML cluster file on top of the defaults.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read cluster file: %w", err)
	}
	if err := Parse(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Load reads path (when non-empty), applies the process environment and
// validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		var err error
		if cfg, err = LoadFile(path); err != nil {
			return cfg, err
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// NodeAddr returns the address peers use to reach this node.
func (c *Config) NodeAddr() string {
	if c.AdvertiseAddr != "" {
		return c.AdvertiseAddr
	}
	return c.ListenAddr
}

// ClusterConfig converts to the cluster package's configuration.
func (c *Config) ClusterConfig() cluster.ClusterConfig {
	cc := cluster.ClusterConfig{
		NodeID:           c.NodeID,
		NodeAddr:         c.NodeAddr(),
		PublicAddr:       c.PublicAddr,
		NNGAddr:          c.NNGListenAddr,
		ProbeInterval:    c.Timing.ProbeInterval,
		ElectionInterval: c.Timing.ElectionInterval,
		AliveTimeout:     c.Timing.AliveTimeout,
		CallTimeout:      c.Timing.CallTimeout,
		Peers:            make([]cluster.Peer, 0, len(c.Peers)),
	}
	for _, p := range c.Peers {
		cc.Peers = append(cc.Peers, cluster.Peer{
			ID:         p.ID,
			Addr:       p.Addr,
			PublicAddr: p.PublicAddr,
			NNGAddr:    p.NNGAddr,
		})
	}
	return cc
}
