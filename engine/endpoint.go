// Package engine implements the connection table, the sender-side
// segmentation/retransmission loop, and the receiver-side ack generation
// that together form the DQUIC protocol engine (wire codec aside, see
// package wire).
package engine

import (
	"math/rand"
	"net"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"dquic-go/internal/dquiclog"
	"dquic-go/wire"
)

// Tunables from SPEC_FULL.md §4.C. All are compile-time constants; the
// engine has no runtime configuration surface.
const (
	AckTimeout        = 2 * time.Second
	MaxTries          = 4
	MaxFramesInPacket = 3
	MinStreamSize     = 1000
	MaxStreamSize     = 2000
)

// MaxRecvBytes bounds a single ReceiveFrom's underlying UDP read.
const MaxRecvBytes = 65536

// Endpoint owns a single UDP socket and the connection table for both
// directions of traffic through it. SendTo and ReceiveFrom block the
// calling goroutine; concurrent invocation on one Endpoint from multiple
// goroutines at once is not supported (SPEC_FULL.md §5).
type Endpoint struct {
	conn  *net.UDPConn
	table Table
	rng   *rand.Rand
	log   *dquiclog.Logger
}

// New constructs an endpoint with an unbound UDP socket and a PRNG seeded
// from the current time. The socket is created lazily, on first Bind,
// SendTo, or ReceiveFrom call.
func New() *Endpoint {
	return NewWithRand(rand.New(rand.NewSource(time.Now().UnixNano())))
}

// NewWithRand is like New but takes an explicit source of randomness for
// segment-size and stream-sampling draws, so tests can get deterministic
// behavior without reaching into engine internals (SPEC_FULL.md §9).
func NewWithRand(rng *rand.Rand) *Endpoint {
	return &Endpoint{rng: rng, log: dquiclog.Default()}
}

// Bind binds the endpoint's UDP socket to addr. Call it on the side that
// must be reachable at a known address (typically the server); the client
// side may skip it and let SendTo/ReceiveFrom bind an ephemeral socket
// lazily.
func (e *Endpoint) Bind(addr *net.UDPAddr) error {
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return errors.Wrap(err, "dquic: bind failed")
	}
	e.conn = conn
	return nil
}

// ensureConn lazily binds an ephemeral socket if the endpoint was never
// explicitly bound.
func (e *Endpoint) ensureConn() error {
	if e.conn != nil {
		return nil
	}
	return e.Bind(&net.UDPAddr{})
}

// Close closes the endpoint's UDP socket. It is safe to call more than
// once; a second call is a no-op.
func (e *Endpoint) Close() error {
	if e.conn == nil {
		return nil
	}
	conn := e.conn
	e.conn = nil
	if err := conn.Close(); err != nil {
		return errors.Wrap(err, "dquic: close failed")
	}
	return nil
}

// senderFrame tracks one stream's segmentation state for the lifetime of
// a single SendTo call. Offset only ever advances in response to an ack;
// Length is set fresh each round in the packet-assembly step.
type senderFrame struct {
	streamID uint32
	offset   uint64
	length   uint32
}

// SendTo segments streams into frames, packs them into packets bounded by
// MaxFramesInPacket, and transmits with per-packet stop-and-wait
// acknowledgement and up to MaxTries retries. It returns the total number
// of payload bytes whose acks were observed.
func (e *Endpoint) SendTo(peer *net.UDPAddr, streams map[uint32][]byte) (uint64, error) {
	if err := e.ensureConn(); err != nil {
		return 0, err
	}
	conn := e.table.FindOrCreate(peer)
	log := e.log.WithConn(peer.String(), conn.ConnID)

	segSize := make(map[uint32]uint32, len(streams))
	frames := make(map[uint32]*senderFrame, len(streams))
	framesToSend := make([]*senderFrame, 0, len(streams))
	order := make([]uint32, 0, len(streams))
	startTime := make(map[uint32]time.Time, len(streams))
	elapsed := make(map[uint32]time.Duration, len(streams))

	for sid, blob := range streams {
		size := uint32(MinStreamSize + e.rng.Intn(MaxStreamSize-MinStreamSize+1))
		segSize[sid] = size
		sf := &senderFrame{streamID: sid, offset: 0, length: size}
		frames[sid] = sf
		framesToSend = append(framesToSend, sf)
		order = append(order, sid)
		if _, ok := conn.StreamBytesSent[sid]; !ok {
			conn.StreamBytesSent[sid] = 0
		}
		_ = blob
	}

	var totalAcked uint64
	firstPacketSent := false

	for len(framesToSend) > 0 {
		selected := selectStreamIDs(framesToSend, MaxFramesInPacket, e.rng)

		var payload []byte
		remaining := framesToSend[:0:0]
		remaining = append(remaining, framesToSend...)

		for _, sf := range remaining {
			if !selected[sf.streamID] {
				continue
			}
			blob := streams[sf.streamID]
			bytesToSend := uint32(0)
			if uint64(len(blob)) > sf.offset {
				left := uint64(len(blob)) - sf.offset
				bytesToSend = segSize[sf.streamID]
				if uint64(bytesToSend) > left {
					bytesToSend = uint32(left)
				}
			}
			if bytesToSend == 0 {
				framesToSend = removeFrame(framesToSend, sf)
				if t, ok := startTime[sf.streamID]; ok {
					elapsed[sf.streamID] = time.Since(t)
				}
				continue
			}
			sf.length = bytesToSend
			fh := wire.FrameHeader{
				StreamID:  sf.streamID,
				FrameType: wire.DATA,
				Offset:    sf.offset,
				Length:    bytesToSend,
			}
			hdr := wire.EncodeFrameHeader(fh)
			payload = append(payload, hdr[:]...)
			payload = append(payload, blob[sf.offset:sf.offset+uint64(bytesToSend)]...)
		}

		if len(payload) == 0 {
			continue
		}

		if !firstPacketSent {
			for _, sid := range order {
				startTime[sid] = time.Now()
			}
			firstPacketSent = true
		}

		packetNumber := conn.SentPacketNumber
		conn.SentPacketNumber++
		hdr := wire.EncodeHeader(wire.Header{PacketType: wire.SHORT, PacketNumber: packetNumber})
		datagram := append(append([]byte{}, hdr[:]...), payload...)

		acked, ok, err := e.sendAndAwaitAck(conn, peer, datagram, packetNumber, framesToSend, log)
		totalAcked += acked
		if err != nil {
			return totalAcked, err
		}
		if !ok {
			// Receiver not responding after MaxTries retries: abort this
			// send_to with whatever has been acked so far (spec.md §4.C
			// step e), rather than reassembling and retransmitting the
			// same frames forever.
			return totalAcked, nil
		}
	}

	if len(order) > 0 {
		reportThroughput(log, order, frames, segSize, elapsed)
	}

	return totalAcked, nil
}

// sendAndAwaitAck performs the stop-and-wait loop for one assembled
// packet: up to MaxTries+1 transmissions, each followed by a bounded wait
// for a matching ack. On success it applies the ack to framesToSend and
// returns the bytes acked with ok=true; on exhausting all tries it logs
// and returns ok=false so the caller aborts the send_to entirely instead
// of retransmitting the same frames forever. A failed UDP write is
// returned as a wrapped error.
func (e *Endpoint) sendAndAwaitAck(conn *Connection, peer *net.UDPAddr, datagram []byte, packetNumber uint32, framesToSend []*senderFrame, log *logrus.Entry) (uint64, bool, error) {
	recvBuf := make([]byte, MaxRecvBytes)

	for try := 1; try <= MaxTries+1; try++ {
		if _, err := e.conn.WriteToUDP(datagram, peer); err != nil {
			return 0, false, errors.Wrap(err, "dquic: send failed")
		}

		if err := e.conn.SetReadDeadline(time.Now().Add(AckTimeout)); err != nil {
			log.WithError(err).Warn("dquic: set read deadline failed")
			continue
		}

		n, _, err := e.conn.ReadFromUDP(recvBuf)
		if err != nil {
			if isTimeout(err) {
				continue
			}
			log.WithError(err).Warn("dquic: ack read failed")
			continue
		}

		acked, err := e.applyAck(conn, recvBuf[:n], packetNumber, framesToSend)
		if err != nil {
			log.WithError(err).Debug("dquic: discarding non-matching datagram during ack wait")
			continue
		}
		return acked, true, nil
	}

	log.Warn("dquic: receiver not responding, aborting send_to")
	return 0, false, nil
}

// applyAck decodes one received datagram as a candidate ack for
// packetNumber, applying offset/byte-sent updates to framesToSend on
// success. It returns errAckMismatch if the datagram is not a matching
// ack, which the caller treats the same as a timeout.
func (e *Endpoint) applyAck(conn *Connection, data []byte, packetNumber uint32, framesToSend []*senderFrame) (uint64, error) {
	hdr, err := wire.DecodeHeader(data)
	if err != nil {
		return 0, errAckMismatch
	}
	if !wire.IsAckPacket(hdr) || hdr.PacketNumber != packetNumber {
		return 0, errAckMismatch
	}

	var acked uint64
	body := data[wire.HeaderLen:]
	for len(body) >= wire.FrameHeaderLen {
		fh, err := wire.DecodeFrameHeader(body)
		if err != nil {
			break
		}
		body = body[wire.FrameHeaderLen:]

		if fh.FrameType == wire.ACK {
			for _, sf := range framesToSend {
				if sf.streamID == fh.StreamID {
					sf.offset = fh.Offset
					conn.StreamBytesSent[sf.streamID] += uint64(sf.length)
					acked += uint64(sf.length)
					break
				}
			}
		}
	}
	return acked, nil
}

// selectStreamIDs picks up to max stream ids from framesToSend: all of
// them if there are at most max, otherwise max chosen uniformly at random
// without replacement.
func selectStreamIDs(framesToSend []*senderFrame, max int, rng *rand.Rand) map[uint32]bool {
	selected := make(map[uint32]bool, len(framesToSend))
	if len(framesToSend) <= max {
		for _, sf := range framesToSend {
			selected[sf.streamID] = true
		}
		return selected
	}
	perm := rng.Perm(len(framesToSend))
	for _, idx := range perm[:max] {
		selected[framesToSend[idx].streamID] = true
	}
	return selected
}

func removeFrame(frames []*senderFrame, target *senderFrame) []*senderFrame {
	out := frames[:0]
	for _, sf := range frames {
		if sf != target {
			out = append(out, sf)
		}
	}
	return out
}

func isTimeout(err error) bool {
	ne, ok := err.(net.Error)
	return ok && ne.Timeout()
}

// reportThroughput logs per-stream throughput (no aggregate line), gated the
// same way as the reference implementation: silenced for small
// control-plane exchanges (request strings, the fin sentinel), reported
// otherwise. Purely observational; never affects protocol behavior.
func reportThroughput(log *logrus.Entry, order []uint32, frames map[uint32]*senderFrame, segSize map[uint32]uint32, elapsed map[uint32]time.Duration) {
	first := frames[order[0]]
	if first.offset <= 50 {
		return
	}
	for _, sid := range order {
		sf := frames[sid]
		d := elapsed[sid]
		if d <= 0 {
			continue
		}
		log.WithFields(logrus.Fields{
			"stream_id":  sid,
			"seg_size":   segSize[sid],
			"bytes_sent": sf.offset,
			"elapsed":    d,
		}).Debug("dquic: stream send complete")
	}
}
