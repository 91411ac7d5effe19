package cluster

import "sort"

// Directory resolves node IDs to addresses. It is built once from
// configuration and never changes, so it needs no locking.
type Directory struct {
	selfID  int
	entries map[int]Peer
	peerIDs []int
}

// NewDirectory indexes self and every configured peer.
func NewDirectory(cfg ClusterConfig) *Directory {
	d := &Directory{
		selfID:  cfg.NodeID,
		entries: make(map[int]Peer, len(cfg.Peers)+1),
		peerIDs: make([]int, 0, len(cfg.Peers)),
	}
	d.entries[cfg.NodeID] = cfg.Self()
	for _, p := range cfg.Peers {
		d.entries[p.ID] = p
		d.peerIDs = append(d.peerIDs, p.ID)
	}
	sort.Ints(d.peerIDs)
	return d
}

// SelfID returns the ID of the local node.
func (d *Directory) SelfID() int {
	return d.selfID
}

// Lookup returns the entry for id.
func (d *Directory) Lookup(id int) (Peer, bool) {
	p, ok := d.entries[id]
	return p, ok
}

// ClientAddr returns the client-facing address of id.
func (d *Directory) ClientAddr(id int) (string, bool) {
	p, ok := d.entries[id]
	if !ok {
		return "", false
	}
	return p.ClientAddr(), true
}

// Peers returns every configured peer, self excluded, ordered by ID.
func (d *Directory) Peers() []Peer {
	peers := make([]Peer, 0, len(d.peerIDs))
	for _, id := range d.peerIDs {
		peers = append(peers, d.entries[id])
	}
	return peers
}

// IDs returns every node ID, self included, in ascending order.
func (d *Directory) IDs() []int {
	ids := make([]int, 0, len(d.entries))
	for id := range d.entries {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
