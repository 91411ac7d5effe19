package cluster

import (
	"reflect"
	"testing"
)

func TestDirectory(t *testing.T) {
	cfg := validConfig()
	cfg.PublicAddr = "localhost:7001"
	d := NewDirectory(cfg)

	if d.SelfID() != 1 {
		t.Errorf("SelfID() = %d", d.SelfID())
	}
	if ids := d.IDs(); !reflect.DeepEqual(ids, []int{1, 2, 3}) {
		t.Errorf("IDs() = %v", ids)
	}

	peers := d.Peers()
	if len(peers) != 2 || peers[0].ID != 2 || peers[1].ID != 3 {
		t.Errorf("Peers() = %+v", peers)
	}

	tests := []struct {
		id   int
		want string
		ok   bool
	}{
		{1, "localhost:7001", true},
		{2, "node-2:7000", true},
		{3, "localhost:7003", true},
		{9, "", false},
	}
	for _, tt := range tests {
		got, ok := d.ClientAddr(tt.id)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ClientAddr(%d) = %q, %v; want %q, %v", tt.id, got, ok, tt.want, tt.ok)
		}
	}

	if p, ok := d.Lookup(2); !ok || p.Addr != "node-2:7000" {
		t.Errorf("Lookup(2) = %+v, %v", p, ok)
	}
}
