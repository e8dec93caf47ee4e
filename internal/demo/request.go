// Package demo implements the request-string convention and random
// object generation shared by the dquic-server and dquic-client demo
// binaries. None of it is part of the protocol engine; it exists only to
// give the engine something realistic to carry (SPEC_FULL.md §2, item G).
package demo

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// RequestStreamID is the stream the client sends its object request on.
const RequestStreamID = 66

// FinStreamID is the stream the server sends its closing sentinel on.
const FinStreamID = 77

// FinSentinel is the payload that marks the end of a server's reply.
const FinSentinel = "fin"

// ObjectRequest is one (stream id, object index) pair the client asks
// the server to fill on that stream.
type ObjectRequest struct {
	StreamID uint32
	Index    int
}

// BuildRequest encodes reqs as the wire request string, e.g.
// "3:0 9:1 2:2". Field order follows reqs; it is not sorted.
func BuildRequest(reqs []ObjectRequest) []byte {
	parts := make([]string, len(reqs))
	for i, r := range reqs {
		parts[i] = fmt.Sprintf("%d:%d", r.StreamID, r.Index)
	}
	return []byte(strings.Join(parts, " "))
}

// ParseRequest decodes a request string built by BuildRequest. A
// malformed pair is skipped rather than failing the whole request,
// matching the demo's tolerance for partial input.
func ParseRequest(payload []byte) []ObjectRequest {
	fields := strings.Fields(string(payload))
	reqs := make([]ObjectRequest, 0, len(fields))
	for _, f := range fields {
		sidStr, idxStr, ok := strings.Cut(f, ":")
		if !ok {
			continue
		}
		sid, err := strconv.ParseUint(sidStr, 10, 32)
		if err != nil {
			continue
		}
		idx, err := strconv.Atoi(idxStr)
		if err != nil {
			continue
		}
		reqs = append(reqs, ObjectRequest{StreamID: uint32(sid), Index: idx})
	}
	return reqs
}

// IsFin reports whether the given stream id/payload pair is the server's
// closing sentinel.
func IsFin(streamID uint32, payload []byte) bool {
	return streamID == FinStreamID && string(payload) == FinSentinel
}

// NewRequestID mints a correlation id for one client request, stamped
// into every log line concerning that request/reply exchange. It is
// never placed on the wire (SPEC_FULL.md §2, item I).
func NewRequestID() string {
	return uuid.NewString()
}
