package engine

import (
	"net"
	"testing"
)

func udpAddr(t *testing.T, s string) *net.UDPAddr {
	t.Helper()
	addr, err := net.ResolveUDPAddr("udp", s)
	if err != nil {
		t.Fatalf("ResolveUDPAddr(%q): %v", s, err)
	}
	return addr
}

func TestTableFindOrCreateIsIdempotent(t *testing.T) {
	var table Table
	a := udpAddr(t, "127.0.0.1:1111")

	c1 := table.FindOrCreate(a)
	c2 := table.FindOrCreate(a)
	if c1 != c2 {
		t.Errorf("FindOrCreate returned distinct records for the same address")
	}
}

func TestTableFindOrCreateAssignsIncreasingConnID(t *testing.T) {
	var table Table
	a := table.FindOrCreate(udpAddr(t, "127.0.0.1:1111"))
	b := table.FindOrCreate(udpAddr(t, "127.0.0.1:2222"))
	c := table.FindOrCreate(udpAddr(t, "127.0.0.1:1111"))

	if a.ConnID != 0 || b.ConnID != 1 {
		t.Errorf("ConnID assignment = %d, %d, want 0, 1", a.ConnID, b.ConnID)
	}
	if c.ConnID != a.ConnID {
		t.Errorf("repeat address got a new ConnID: %d != %d", c.ConnID, a.ConnID)
	}
}

func TestNewConnectionMapsAreUsable(t *testing.T) {
	c := newConnection(udpAddr(t, "127.0.0.1:1111"), 0)
	c.StreamBytesSent[3] += 100
	c.StreamBytesAck[3] += 50
	if c.StreamBytesSent[3] != 100 || c.StreamBytesAck[3] != 50 {
		t.Errorf("per-stream maps did not accumulate as expected")
	}
}
