package replication

import "errors"

// Write path errors
var (
	ErrNoLeader     = errors.New("no leader known, retry later")
	ErrWritesHalted = errors.New("write path halted after a durability failure")
	ErrDurability   = errors.New("durability failure")
)

// Transport errors
var (
	ErrPeerRejected    = errors.New("peer rejected request")
	ErrTransportClosed = errors.New("transport closed")
	ErrUnexpectedReply = errors.New("unexpected reply")
)
