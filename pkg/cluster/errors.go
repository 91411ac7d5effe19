package cluster

import "errors"

// Configuration errors
var (
	ErrInvalidNodeID        = errors.New("node ID must be positive")
	ErrInvalidNodeAddr      = errors.New("node address cannot be empty")
	ErrInvalidPeer          = errors.New("peer needs a positive ID and an address")
	ErrDuplicatePeer        = errors.New("peer ID listed more than once")
	ErrSelfInPeers          = errors.New("node lists itself as a peer")
	ErrInvalidInterval      = errors.New("probe and election intervals must be positive")
	ErrAliveTimeoutTooSmall = errors.New("alive timeout must be greater than probe interval")
	ErrCallTimeoutTooLarge  = errors.New("call timeout must be positive and below the alive timeout")
)

// Membership errors
var (
	ErrUnknownPeer = errors.New("peer not in cluster configuration")
)
