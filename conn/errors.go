package conn

import "github.com/rotisserie/eris"

// Package-boundary errors, wrapped with eris so callers get stack
// context once, at the surface — mirrors lib/proxy.go's eris.Wrap use.
var (
	// ErrUnknownStream names the case of a data frame whose stream_id is
	// absent from the connection's map. The receive path logs and drops
	// such a frame and goes on; it does not return this error.
	ErrUnknownStream = eris.New("conn: unknown stream id")
	// ErrEndpointClosed is returned by Send/Recv/Statistics-adjacent
	// calls made after the connection has entered Closed.
	ErrEndpointClosed = eris.New("conn: endpoint closed")
	// ErrRemoteRefused names the case of the remote UDP endpoint
	// refusing a sent datagram (ICMP port-unreachable). No code path in
	// this package returns it: a failed write surfaces as the wrapped
	// socket error from sendPacket, and it does not close the connection.
	ErrRemoteRefused = eris.New("conn: remote refused connection")
	// ErrHandshakeTimeout is returned by Dial/Listen when the context
	// passed in is cancelled before the handshake completes.
	ErrHandshakeTimeout = eris.New("conn: handshake did not complete")
)
