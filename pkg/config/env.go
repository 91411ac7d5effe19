package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Environment variables read by ApplyEnv.
const (
	EnvNodeID     = "NODE_ID"
	EnvPeers      = "PEERS"
	EnvDataDir    = "DATA_DIR"
	EnvListenAddr = "LISTEN_ADDR"
	EnvLogLevel   = "LOG_LEVEL"
	EnvTransport  = "TRANSPORT"
)

// ApplyEnv overrides fields from the environment. lookup is usually
// os.LookupEnv. PEERS replaces the whole peer list.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvNodeID); ok && v != "" {
		id, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%w: %s=%q", ErrInvalidEnv, EnvNodeID, v)
		}
		c.NodeID = id
	}
	if v, ok := lookup(EnvPeers); ok {
		peers, err := ParsePeers(v)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidEnv, EnvPeers, err)
		}
		c.Peers = peers
	}
	if v, ok := lookup(EnvDataDir); ok && v != "" {
		c.DataDir = v
	}
	if v, ok := lookup(EnvListenAddr); ok && v != "" {
		c.ListenAddr = v
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.LogLevel = v
	}
	if v, ok := lookup(EnvTransport); ok && v != "" {
		c.Transport = strings.ToLower(v)
	}
	return nil
}

// ParsePeers parses a comma separated list of id=host:port entries. An
// entry may add a client-facing address after a pipe:
//
//	2=node-2:7000|localhost:7002,3=node-3:7000
func ParsePeers(s string) ([]PeerConfig, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	var peers []PeerConfig
	for _, entry := range strings.Split(s, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		idPart, addrPart, ok := strings.Cut(entry, "=")
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPeerSpec, entry)
		}
		id, err := strconv.Atoi(strings.TrimSpace(idPart))
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("%w: bad id in %q", ErrInvalidPeerSpec, entry)
		}

		addr, public, _ := strings.Cut(addrPart, "|")
		addr = strings.TrimSpace(addr)
		if addr == "" {
			return nil, fmt.Errorf("%w: missing address in %q", ErrInvalidPeerSpec, entry)
		}
		peers = append(peers, PeerConfig{ID: id, Addr: addr, PublicAddr: strings.TrimSpace(public)})
	}
	return peers, nil
}
