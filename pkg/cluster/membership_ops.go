package cluster

import (
	"time"
)

// RecordContact stores at as the last successful contact with peerID.
func (v *View) RecordContact(peerID int, at time.Time) error {
	rec, ok := v.peers[peerID]
	if !ok {
		return ErrUnknownPeer
	}
	rec.lastContact.Store(at.UnixNano())
	return nil
}

// ForgetContact clears a peer back to the Unknown state.
func (v *View) ForgetContact(peerID int) error {
	rec, ok := v.peers[peerID]
	if !ok {
		return ErrUnknownPeer
	}
	rec.lastContact.Store(0)
	return nil
}
