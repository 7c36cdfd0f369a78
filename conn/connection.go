// Package conn implements the connection state machine: handshake,
// the multi-stream fair scheduler, the receive path, and the
// background receiver/sender tasks that drive both peers to
// completion.
package conn

import (
	"context"
	"fmt"
	"math/rand"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/clearwave/quicmux/frame"
	"github.com/clearwave/quicmux/stream"
	"github.com/thejerf/suture/v4"
)

// MaxPacketSize bounds the serialized size of any packet this
// connection builds or accepts.
const MaxPacketSize = 8192

// schedulerTick is the cadence at which the sender task attempts to
// assemble and send a packet.
const schedulerTick = 10 * time.Millisecond

// State is a connection's position in its lifecycle.
type State int32

const (
	StateFresh State = iota
	StateHandshaking
	StateEstablished
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateFresh:
		return "Fresh"
	case StateHandshaking:
		return "Handshaking"
	case StateEstablished:
		return "Established"
	case StateClosing:
		return "Closing"
	case StateClosed:
		return "Closed"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// frameQueue is an unbounded FIFO of frames with a non-blocking notify
// signal, used for the stream-0 control delivery queue. A bounded,
// backpressured policy would be a reasonable additive improvement;
// this keeps the simpler unbounded behavior.
type frameQueue struct {
	mu     sync.Mutex
	items  []frame.Frame
	notify chan struct{}
}

func newFrameQueue() *frameQueue {
	return &frameQueue{notify: make(chan struct{}, 1)}
}

func (q *frameQueue) push(f frame.Frame) {
	q.mu.Lock()
	q.items = append(q.items, f)
	q.mu.Unlock()
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

func (q *frameQueue) pop() (frame.Frame, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return frame.Frame{}, false
	}
	f := q.items[0]
	q.items = q.items[1:]
	return f, true
}

// Connection owns the UDP endpoint, the stream map, the handshake
// state, the packet-number counter, and the two background tasks. It
// is grounded on v3/mux/session.go's session struct (background
// readLoop/writeLoop goroutines, atomic closed flag, sync.Once-guarded
// Close, Statistics via snapshot), generalized from TCP-framed streams
// to UDP packets-of-frames.
type Connection struct {
	sock        *net.UDPConn
	isInitiator bool

	localConID uint32

	mu             sync.RWMutex
	remoteAddr     *net.UDPAddr
	remoteConID    uint32
	remoteConIDSet bool
	streams        map[uint32]*stream.Stream
	streamOrder    []uint32

	control *frameQueue

	packetNumber uint32 // atomic

	dedup *dedupSet

	state int32 // atomic State

	closeOnce sync.Once
	closeChan chan struct{}

	handshakeOnce sync.Once
	handshakeDone chan struct{}

	sup       *suture.Supervisor
	supCancel context.CancelFunc

	timeMu sync.Mutex
	stime  time.Time
	etime  time.Time

	bytesSent     uint64 // atomic
	bytesReceived uint64 // atomic

	conIDLabel string
}

func newConnection(sock *net.UDPConn, remoteAddr *net.UDPAddr, isInitiator bool) *Connection {
	registerMetrics()
	c := &Connection{
		sock:          sock,
		isInitiator:   isInitiator,
		localConID:    uint32(rand.Intn(1 << 16)),
		remoteAddr:    remoteAddr,
		streams:       make(map[uint32]*stream.Stream),
		control:       newFrameQueue(),
		dedup:         newDedupSet(dedupCapacity),
		closeChan:     make(chan struct{}),
		handshakeDone: make(chan struct{}),
	}
	c.conIDLabel = fmt.Sprintf("%d", c.localConID)
	c.setState(StateFresh)
	return c
}

func (c *Connection) setState(s State) { atomic.StoreInt32(&c.state, int32(s)) }

// State returns the connection's current lifecycle state.
func (c *Connection) State() State { return State(atomic.LoadInt32(&c.state)) }

// IsClosed reports whether the connection has finished closing.
func (c *Connection) IsClosed() bool { return c.State() == StateClosed }

// LocalConID returns this connection's local 16-bit connection id.
func (c *Connection) LocalConID() uint32 { return c.localConID }

func (c *Connection) loadPacketNumber() uint32 { return atomic.LoadUint32(&c.packetNumber) }

func (c *Connection) nextPacketNumber() uint32 {
	return atomic.AddUint32(&c.packetNumber, 1) - 1
}

func (c *Connection) loadBytesSent() uint64     { return atomic.LoadUint64(&c.bytesSent) }
func (c *Connection) loadBytesReceived() uint64 { return atomic.LoadUint64(&c.bytesReceived) }

func (c *Connection) remoteConIDIsSet() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.remoteConIDSet
}

func (c *Connection) setRemote(addr *net.UDPAddr, remoteConID uint32) {
	c.mu.Lock()
	c.remoteAddr = addr
	c.remoteConID = remoteConID
	c.remoteConIDSet = true
	c.mu.Unlock()
}

func (c *Connection) remote() (*net.UDPAddr, uint32) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.remoteAddr, c.remoteConID
}

// AddStream registers a pre-constructed stream under its id. Callers
// must not call AddStream twice with the same id.
func (c *Connection) AddStream(s *stream.Stream) {
	c.mu.Lock()
	c.streams[s.ID()] = s
	c.streamOrder = append(c.streamOrder, s.ID())
	c.mu.Unlock()
}

// Stream looks up a stream by id.
func (c *Connection) Stream(id uint32) (*stream.Stream, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.streams[id]
	return s, ok
}

// Streams returns a snapshot of all registered streams in insertion
// order, for reporting and persistence.
func (c *Connection) Streams() []*stream.Stream {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*stream.Stream, 0, len(c.streamOrder))
	for _, id := range c.streamOrder {
		out = append(out, c.streams[id])
	}
	return out
}

// RequestStreams pre-creates n empty receiver streams with ids 1..n,
// the initiator-side half of the handshake-then-request exchange, and
// sends the REQUEST_STREAMS control frame.
func (c *Connection) RequestStreams(n int) error {
	c.timeMu.Lock()
	if c.stime.IsZero() {
		c.stime = time.Now()
	}
	c.timeMu.Unlock()

	for i := 1; i <= n; i++ {
		c.AddStream(stream.New(uint32(i)))
	}
	return c.Send([]byte(fmt.Sprintf("REQUEST_STREAMS:%d", n)))
}

// Send queues an application-level control frame (stream 0, outside
// the scheduler) and transmits it immediately in a one-off packet:
// control traffic is low-frequency and latency-sensitive, so it
// bypasses the round-robin scheduler entirely.
func (c *Connection) Send(data []byte) error {
	if c.IsClosed() {
		return ErrEndpointClosed
	}
	f, err := frame.New(frame.Data, stream.ControlStreamID, 0, data)
	if err != nil {
		return fmt.Errorf("conn: building control frame: %w", err)
	}
	return c.sendControlPacket(f)
}

// Recv returns the next application-visible control frame delivered on
// stream 0, blocking until one arrives, the connection closes, or ctx
// is done.
func (c *Connection) Recv(ctx context.Context) (frame.Frame, error) {
	for {
		if f, ok := c.control.pop(); ok {
			return f, nil
		}
		select {
		case <-c.control.notify:
			continue
		case <-c.closeChan:
			return frame.Frame{}, ErrEndpointClosed
		case <-ctx.Done():
			return frame.Frame{}, ctx.Err()
		}
	}
}

// allStreamsClosed reports whether every registered stream has closed.
// An empty stream map is not considered "all closed" — there must be
// at least one stream for this to auto-close the connection.
func (c *Connection) allStreamsClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.streams) == 0 {
		return false
	}
	for _, s := range c.streams {
		if !s.Closed() {
			return false
		}
	}
	return true
}

// Close tears the connection down: sends a CLOSE control packet if
// still reachable, stops the background supervisor, and closes the
// socket. Safe to call more than once and from multiple goroutines.
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.setState(StateClosing)

		if remoteAddr, _ := c.remote(); remoteAddr != nil {
			closeFrame, ferr := frame.New(frame.Close, stream.ControlStreamID, 0, nil)
			if ferr == nil {
				_ = c.sendControlPacket(closeFrame)
			}
		}

		c.timeMu.Lock()
		if c.etime.IsZero() {
			c.etime = time.Now()
		}
		c.timeMu.Unlock()

		c.setState(StateClosed)
		close(c.closeChan)

		if c.supCancel != nil {
			c.supCancel()
		}
		err = c.sock.Close()
	})
	return err
}
