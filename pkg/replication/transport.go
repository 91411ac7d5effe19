package replication

import (
	"context"
)

// PeerClient is the outbound side of the peer protocol. addr is always the
// peer's internal address from the cluster configuration.
type PeerClient interface {
	// Probe returns nil when the peer answered its liveness endpoint.
	Probe(ctx context.Context, addr string) error

	// Replicate asks the peer to apply key=value to its store.
	Replicate(ctx context.Context, addr, key, value string) error
}

// ApplyHandler is the inbound side used by transport servers.
type ApplyHandler interface {
	Apply(key, value string)
}

// TransportKind selects the peer transport.
type TransportKind string

const (
	TransportHTTP TransportKind = "http"
	TransportNNG  TransportKind = "nng"
)
