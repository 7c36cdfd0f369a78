// Package peer implements the two entry points that wrap a connection
// with a top-level loop: the initiator ("client"), which requests N
// streams, and the responder ("server"), which opens N streams bound
// to pre-staged files.
package peer

import (
	"fmt"
	"strconv"
	"strings"
)

// requestStreamsPrefix is the only defined control payload's prefix;
// any other payload is surfaced verbatim to the application.
const requestStreamsPrefix = "REQUEST_STREAMS:"

// BuildRequestStreams encodes the control payload the initiator sends
// after a successful handshake.
func BuildRequestStreams(n int) []byte {
	return []byte(fmt.Sprintf("%s%d", requestStreamsPrefix, n))
}

// ParseRequestStreams reports whether payload is a REQUEST_STREAMS
// control message and, if so, the requested stream count.
func ParseRequestStreams(payload []byte) (n int, ok bool, err error) {
	s := string(payload)
	if !strings.HasPrefix(s, requestStreamsPrefix) {
		return 0, false, nil
	}
	countStr := strings.TrimPrefix(s, requestStreamsPrefix)
	n, err = strconv.Atoi(countStr)
	if err != nil {
		return 0, true, fmt.Errorf("peer: invalid stream count %q: %w", countStr, err)
	}
	return n, true, nil
}
