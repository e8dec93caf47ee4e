package engine

import (
	"net"
	"sync"
)

// Connection holds per-peer state: packet counters and per-stream byte
// offsets sent/acked. One Connection exists per remote address for the
// lifetime of the owning Endpoint; there is no teardown signal.
type Connection struct {
	PeerAddr *net.UDPAddr
	ConnID   int

	// SentPacketNumber is the next value to stamp on an outgoing packet,
	// including packets that only carry an ack.
	SentPacketNumber uint32
	// RecvPacketNumber counts accepted data packets from this peer.
	RecvPacketNumber uint32

	// StreamBytesSent[sid] is the cumulative acked bytes pushed on stream
	// sid to this peer.
	StreamBytesSent map[uint32]uint64
	// StreamBytesAck[sid] is the cumulative in-order bytes delivered to the
	// application on stream sid from this peer; the offset this endpoint
	// quotes back in its acks.
	StreamBytesAck map[uint32]uint64
}

func newConnection(addr *net.UDPAddr, connID int) *Connection {
	return &Connection{
		PeerAddr:        addr,
		ConnID:          connID,
		StreamBytesSent: make(map[uint32]uint64),
		StreamBytesAck:  make(map[uint32]uint64),
	}
}

// Table is the connection table: an ordered collection of Connection
// records keyed by peer address. Lookup is linear, matching the spec's
// expected cardinality of tens of peers per endpoint.
type Table struct {
	mu    sync.Mutex
	conns []*Connection
}

// FindOrCreate returns the Connection for addr, creating one lazily on
// first contact. ConnID is the record's position in the table at
// insertion time; it is purely informational.
func (t *Table) FindOrCreate(addr *net.UDPAddr) *Connection {
	key := addr.String()

	t.mu.Lock()
	defer t.mu.Unlock()

	for _, c := range t.conns {
		if c.PeerAddr.String() == key {
			return c
		}
	}
	c := newConnection(addr, len(t.conns))
	t.conns = append(t.conns, c)
	return c
}
