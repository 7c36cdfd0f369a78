package conn

import (
	"context"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"github.com/clearwave/quicmux/frame"
	"github.com/clearwave/quicmux/packet"
	"github.com/clearwave/quicmux/stream"
	"github.com/thejerf/suture/v4"
)

// receiveLoop is the background receiver task: it reads datagrams off
// the socket and hands each to handlePacket until the connection
// closes. Registered with the connection's suture.Supervisor so a
// panic restarts it instead of wedging the connection silently.
func (c *Connection) receiveLoop(ctx context.Context) error {
	buf := make([]byte, MaxPacketSize)
	for {
		select {
		case <-ctx.Done():
			return suture.ErrDoNotRestart
		default:
		}

		c.sock.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
		n, addr, err := c.sock.ReadFromUDP(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			if c.IsClosed() {
				return suture.ErrDoNotRestart
			}
			return fmt.Errorf("conn: read error: %w", err)
		}

		if err := c.handlePacket(buf[:n], addr); err != nil {
			logf("conn: %v", err)
		}
	}
}

// handlePacket decodes one datagram and dispatches its frames:
// long-header packets drive the handshake, short-header packets carry
// application and control traffic. Codec errors are recovered locally
// — the offending packet is dropped and receiving continues.
func (c *Connection) handlePacket(data []byte, addr *net.UDPAddr) error {
	p, err := packet.Decode(data)
	if err != nil {
		return fmt.Errorf("malformed packet from %v: %w", addr, err)
	}

	if p.Long {
		return c.handleLongHeaderPacket(p, addr)
	}
	return c.handleShortHeaderPacket(p)
}

func (c *Connection) handleLongHeaderPacket(p packet.Packet, addr *net.UDPAddr) error {
	if c.remoteConIDIsSet() {
		// Only one peer per responder listen loop; later handshake
		// attempts from elsewhere are ignored.
		return nil
	}

	for _, f := range p.Frames {
		switch f.Type {
		case frame.Handshake:
			logf("conn: connection request received from %v", addr)
			c.setRemote(addr, p.SrcConID)
			if err := c.sendHandshakeAck(addr, p.SrcConID); err != nil {
				return fmt.Errorf("conn: sending handshake ack: %w", err)
			}
			return nil
		case frame.HandshakeAck:
			logf("conn: connection established with %v", addr)
			c.setRemote(addr, p.SrcConID)
			c.handshakeOnce.Do(func() { close(c.handshakeDone) })
			return nil
		}
	}
	return nil
}

func (c *Connection) handleShortHeaderPacket(p packet.Packet) error {
	if p.DestConID != c.localConID {
		return nil
	}
	if c.dedup.seen(p.PacketNumber) {
		return nil
	}

	atomic.AddUint64(&c.bytesReceived, uint64(p.Size()))
	packetsReceivedTotal.WithLabelValues(c.conIDLabel).Inc()
	bytesReceivedTotal.WithLabelValues(c.conIDLabel).Add(float64(p.Size()))

	for _, f := range p.Frames {
		if f.StreamID == stream.ControlStreamID {
			if f.Type&frame.Close != 0 {
				logf("conn: close frame received, closing connection")
				c.Close()
				return nil
			}
			if f.Type&frame.Ack == 0 {
				c.control.push(f)
			}
			continue
		}

		st, ok := c.Stream(f.StreamID)
		if !ok {
			logf("conn: dropping frame for unknown stream %d", f.StreamID)
			continue
		}
		wasClosed := st.Closed()
		st.Deliver(f)
		if !wasClosed && st.Closed() {
			streamsClosedTotal.WithLabelValues(c.conIDLabel).Inc()
		}
		if c.allStreamsClosed() {
			c.timeMu.Lock()
			if c.etime.IsZero() {
				c.etime = time.Now()
			}
			c.timeMu.Unlock()
			logf("conn: all streams closed, closing connection")
			c.Close()
			return nil
		}
	}
	return nil
}
