package engine

import (
	"net"
	"time"

	"dquic-go/wire"
)

// ReceiveFrom blocks for a single incoming datagram, parses it as a
// sequence of frames, advances each stream's delivered-offset cumulative
// ack state, and emits one ack packet back to the sender before
// returning. maxBytes caps the total stream payload this call will
// accumulate across the datagram's frames; exceeding it aborts the
// accumulation and returns without sending an ack.
func (e *Endpoint) ReceiveFrom(maxBytes uint64) (*net.UDPAddr, map[uint32][]byte, error) {
	if err := e.ensureConn(); err != nil {
		return nil, nil, err
	}

	// A lingering read deadline from a prior SendTo's ack wait must not
	// leak into a plain receive.
	if err := e.conn.SetReadDeadline(time.Time{}); err != nil {
		return nil, nil, err
	}

	buf := make([]byte, MaxRecvBytes)
	n, sender, err := e.conn.ReadFromUDP(buf)
	if err != nil {
		return nil, nil, err
	}
	data := buf[:n]

	conn := e.table.FindOrCreate(sender)
	log := e.log.WithConn(sender.String(), conn.ConnID)

	hdr, err := wire.DecodeHeader(data)
	if err != nil {
		return sender, nil, ErrTruncated
	}
	if hdr.PacketType != wire.SHORT {
		return sender, nil, ErrWrongPacketType
	}
	conn.RecvPacketNumber++

	objects := make(map[uint32][]byte)
	var ackPayload []byte
	var objectsBytes uint64

	body := data[wire.HeaderLen:]
	for len(body) >= wire.FrameHeaderLen {
		fh, err := wire.DecodeFrameHeader(body)
		if err != nil {
			break
		}
		body = body[wire.FrameHeaderLen:]

		if uint64(len(body)) < uint64(fh.Length) {
			log.Warn("dquic: truncated frame, dropping remainder of datagram")
			break
		}
		streamData := body[:fh.Length]
		body = body[fh.Length:]

		sid := fh.StreamID
		if _, ok := conn.StreamBytesAck[sid]; !ok {
			conn.StreamBytesAck[sid] = 0
		}

		ackOffset := conn.StreamBytesAck[sid]
		delivered := fh.Offset == ackOffset
		if delivered {
			conn.StreamBytesAck[sid] += uint64(fh.Length)
		}

		ackFrame := wire.FrameHeader{
			StreamID:  sid,
			FrameType: wire.ACK,
			Offset:    conn.StreamBytesAck[sid],
			Length:    0,
		}
		ackHdr := wire.EncodeFrameHeader(ackFrame)
		ackPayload = append(ackPayload, ackHdr[:]...)

		objectsBytes += uint64(fh.Length)
		if objectsBytes > maxBytes {
			log.Warn("dquic: receive size cap exceeded, discarding datagram")
			return sender, objects, nil
		}

		// Delivered to the application regardless of order; only the
		// per-stream offset bookkeeping above is gated on in-order arrival.
		objects[sid] = append(objects[sid], streamData...)
	}

	ackHdr := wire.EncodeHeader(wire.AckPacketHeader(hdr.PacketNumber))
	ackDatagram := append(append([]byte{}, ackHdr[:]...), ackPayload...)
	conn.SentPacketNumber++
	if _, err := e.conn.WriteToUDP(ackDatagram, sender); err != nil {
		log.WithError(err).Warn("dquic: ack send failed")
	}

	return sender, objects, nil
}
