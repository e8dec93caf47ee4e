package engine

import "github.com/pkg/errors"

// Sentinel errors for the taxonomy in SPEC_FULL.md §7. Only ErrTruncated
// and ErrWrongPacketType are ever returned to a caller; errAckMismatch is
// handled internally by SendTo's retry loop. The receive size cap has no
// error value: ReceiveFrom returns early with a nil error.
var (
	// ErrTruncated marks a datagram shorter than a packet header. A frame
	// whose declared length exceeds the remaining buffer is not reported
	// with it: ReceiveFrom drops that frame and the rest of the datagram
	// and returns the frames parsed before it.
	ErrTruncated = errors.New("dquic: truncated")

	// ErrWrongPacketType marks a received packet whose packet_type is not
	// SHORT (an ACK packet included), from ReceiveFrom's perspective.
	ErrWrongPacketType = errors.New("dquic: wrong packet type")

	// errAckMismatch is internal: the datagram received during SendTo's ack
	// wait was not an ack for the packet just sent. Treated as a timeout.
	errAckMismatch = errors.New("dquic: ack mismatch")
)
