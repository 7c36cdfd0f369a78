// Package stream implements the unidirectional, fragmenting sender /
// reassembling receiver abstraction owned by a connection: one stream
// per logical byte channel, identified by a non-zero id.
package stream

import (
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/clearwave/quicmux/frame"
)

// ControlStreamID is reserved for connection-level control traffic; it
// is never assigned to an application stream.
const ControlStreamID = 0

// MinFrameSize and MaxFrameSize bound the per-stream fragmentation
// chunk size drawn at construction.
const (
	MinFrameSize = 1000
	MaxFrameSize = 2000
)

// Stream is a FIFO of outbound frames paired with a growing buffer of
// inbound data. It has no reference back to its owning connection;
// callers address a stream only by its id, bounding its lifetime to
// whatever holds the map it lives in.
type Stream struct {
	id        uint32
	frameSize int

	mu      sync.Mutex
	pending []frame.Frame

	received []byte

	bytesSent      uint64 // atomic
	bytesReceived  uint64 // atomic
	framesReceived uint64 // atomic
	stime          time.Time
	etime          time.Time
	closed         int32 // atomic
}

// New creates an empty stream, either a future receiver (no source
// bound yet) or a future sender (populated via PopulateFromSource).
// frame_size is drawn uniformly from [MinFrameSize, MaxFrameSize] so
// tests can exercise variable fragmentation.
func New(id uint32) *Stream {
	return &Stream{
		id:        id,
		frameSize: MinFrameSize + rand.Intn(MaxFrameSize-MinFrameSize+1),
	}
}

// ID returns the stream's id.
func (s *Stream) ID() uint32 { return s.id }

// FrameSize returns the fragmentation chunk size drawn at construction.
func (s *Stream) FrameSize() int { return s.frameSize }

// Closed reports whether a CLOSE frame has been delivered to this
// stream.
func (s *Stream) Closed() bool { return atomic.LoadInt32(&s.closed) == 1 }

// BytesSent, BytesReceived, FramesReceived return live counters.
func (s *Stream) BytesSent() uint64      { return atomic.LoadUint64(&s.bytesSent) }
func (s *Stream) BytesReceived() uint64  { return atomic.LoadUint64(&s.bytesReceived) }
func (s *Stream) FramesReceived() uint64 { return atomic.LoadUint64(&s.framesReceived) }

// Stime and Etime return the recorded start/end times, and whether
// each has been set.
func (s *Stream) Stime() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stime, !s.stime.IsZero()
}

func (s *Stream) Etime() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.etime, !s.etime.IsZero()
}

// ReceivedData returns a copy of the bytes delivered so far, in
// arrival order.
func (s *Stream) ReceivedData() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]byte, len(s.received))
	copy(out, s.received)
	return out
}

// PopulateFromSource fragments data into successive DATA frames of
// exactly FrameSize bytes (the final one may be shorter), followed by
// one trailing CLOSE frame carrying offset=len(data) and no payload.
// The resulting queue is fixed; PopulateFromSource must be called at
// most once per stream.
func (s *Stream) PopulateFromSource(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var frames []frame.Frame
	total := len(data)
	for off := 0; off < total; off += s.frameSize {
		end := off + s.frameSize
		if end > total {
			end = total
		}
		f, err := frame.New(frame.Data, s.id, uint32(off), data[off:end])
		if err != nil {
			return err
		}
		frames = append(frames, f)
	}
	closeFrame, err := frame.New(frame.Close, s.id, uint32(total), nil)
	if err != nil {
		return err
	}
	frames = append(frames, closeFrame)

	s.pending = frames
	return nil
}

// NextFrame pops the head of the pending queue, or reports ok=false if
// empty. It records stime on the first successful pop and updates
// bytes_sent.
func (s *Stream) NextFrame() (f frame.Frame, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.pending) == 0 {
		return frame.Frame{}, false
	}
	f = s.pending[0]
	s.pending = s.pending[1:]

	if s.stime.IsZero() {
		s.stime = time.Now()
	}
	atomic.AddUint64(&s.bytesSent, uint64(f.Length))
	return f, true
}

// PeekFrame returns the head of the pending queue without removing it,
// or ok=false if empty. The scheduler uses this to test whether a
// frame fits the packet currently being assembled before committing to
// send it.
func (s *Stream) PeekFrame() (f frame.Frame, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pending) == 0 {
		return frame.Frame{}, false
	}
	return s.pending[0], true
}

// PendingLen reports how many frames remain queued for send. It exists
// mainly for fairness tests and diagnostics.
func (s *Stream) PendingLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Deliver appends an inbound frame's data to the stream's received
// buffer in arrival order. Frames are never reordered by offset: that
// is a possible additive improvement, not the behavior implemented
// here. Deliver records stime on first delivery, and on a CLOSE frame
// records etime and marks the stream closed.
func (s *Stream) Deliver(f frame.Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stime.IsZero() {
		s.stime = time.Now()
	}

	s.received = append(s.received, f.Data...)
	atomic.AddUint64(&s.bytesReceived, uint64(f.Length))
	atomic.AddUint64(&s.framesReceived, 1)

	if f.Type&frame.Close != 0 && atomic.LoadInt32(&s.closed) == 0 {
		s.etime = time.Now()
		atomic.StoreInt32(&s.closed, 1)
	}
}
