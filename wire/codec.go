// Package wire implements the DQUIC packet and frame binary layout:
// pack/unpack of fixed-width headers, with no knowledge of connection
// state, retransmission, or streams.
package wire

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// Packet-type and frame-type wire constants.
const (
	// SHORT marks a data packet at the packet-type level.
	SHORT uint8 = 3
	// DATA marks a frame carrying stream payload.
	DATA uint32 = 5
	// ACK marks an ack packet (packet-type) or an ack frame (frame-type).
	// ACK and DATA share the packet-type/frame-type value space; which one
	// applies is determined by context (packet header vs frame header).
	ACK uint32 = 6
)

// ackPacketType is ACK's packet-type-level value; kept distinct from the
// frame-type constant above only in name, the wire value is identical.
const ackPacketType uint8 = 6

// HeaderLen is the fixed wire size of a packet header in bytes.
const HeaderLen = 5

// FrameHeaderLen is the fixed wire size of a frame header in bytes.
const FrameHeaderLen = 20

// ErrTruncated is returned when a buffer is shorter than the header being
// decoded from it. A frame's payload length is not checked here.
var ErrTruncated = errors.New("wire: truncated")

// Header is the 5-byte packet header: packet_type (u8) ‖ packet_number (u32),
// big-endian.
type Header struct {
	PacketType   uint8
	PacketNumber uint32
}

// FrameHeader is the 20-byte frame header: stream_id (u32) ‖ frame_type (u32)
// ‖ offset (u64) ‖ length (u32), big-endian. It is immediately followed on
// the wire by exactly Length bytes of stream payload.
type FrameHeader struct {
	StreamID  uint32
	FrameType uint32
	Offset    uint64
	Length    uint32
}

// EncodeHeader serializes h to its 5-byte wire form.
func EncodeHeader(h Header) [HeaderLen]byte {
	var b [HeaderLen]byte
	b[0] = h.PacketType
	binary.BigEndian.PutUint32(b[1:5], h.PacketNumber)
	return b
}

// DecodeHeader reads a 5-byte packet header from the front of b.
func DecodeHeader(b []byte) (Header, error) {
	if len(b) < HeaderLen {
		return Header{}, ErrTruncated
	}
	return Header{
		PacketType:   b[0],
		PacketNumber: binary.BigEndian.Uint32(b[1:5]),
	}, nil
}

// EncodeFrameHeader serializes f to its 20-byte wire form.
func EncodeFrameHeader(f FrameHeader) [FrameHeaderLen]byte {
	var b [FrameHeaderLen]byte
	binary.BigEndian.PutUint32(b[0:4], f.StreamID)
	binary.BigEndian.PutUint32(b[4:8], f.FrameType)
	binary.BigEndian.PutUint64(b[8:16], f.Offset)
	binary.BigEndian.PutUint32(b[16:20], f.Length)
	return b
}

// DecodeFrameHeader reads a 20-byte frame header from the front of b.
func DecodeFrameHeader(b []byte) (FrameHeader, error) {
	if len(b) < FrameHeaderLen {
		return FrameHeader{}, ErrTruncated
	}
	return FrameHeader{
		StreamID:  binary.BigEndian.Uint32(b[0:4]),
		FrameType: binary.BigEndian.Uint32(b[4:8]),
		Offset:    binary.BigEndian.Uint64(b[8:16]),
		Length:    binary.BigEndian.Uint32(b[16:20]),
	}, nil
}

// IsAckPacket reports whether a decoded packet header marks an ack packet.
func IsAckPacket(h Header) bool {
	return h.PacketType == ackPacketType
}

// AckPacketHeader builds the packet header for an ack packet echoing
// packetNumber.
func AckPacketHeader(packetNumber uint32) Header {
	return Header{PacketType: ackPacketType, PacketNumber: packetNumber}
}
