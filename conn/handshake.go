package conn

import (
	"context"
	"net"
	"sync/atomic"
	"time"

	"github.com/clearwave/quicmux/frame"
	"github.com/clearwave/quicmux/packet"
	"github.com/clearwave/quicmux/stream"
	"github.com/rotisserie/eris"
)

// Dial performs the initiator ("client") side of the handshake: open
// a UDP socket, send a long-header packet carrying one HANDSHAKE frame
// on stream 0, and wait for the responder's HANDSHAKE|ACK. It returns
// once Established, with the background receiver/sender tasks already
// running.
func Dial(ctx context.Context, remoteAddr *net.UDPAddr) (*Connection, error) {
	sock, err := net.ListenUDP("udp", nil)
	if err != nil {
		return nil, eris.Wrap(err, "conn: failed to open UDP socket")
	}

	c := newConnection(sock, remoteAddr, true)
	c.setState(StateHandshaking)

	if err := c.sendHandshake(); err != nil {
		sock.Close()
		return nil, eris.Wrap(err, "conn: failed to send handshake")
	}

	c.startBackgroundTasks(ctx)

	select {
	case <-c.handshakeDone:
		c.setState(StateEstablished)
		return c, nil
	case <-ctx.Done():
		c.Close()
		return nil, ErrHandshakeTimeout
	case <-c.closeChan:
		return nil, ErrEndpointClosed
	}
}

// Listen performs the responder ("server") side: bind localAddr, then
// block reading datagrams until one carries a HANDSHAKE frame on
// stream 0, at which point it replies with HANDSHAKE|ACK and locks
// onto that peer's address. At most one peer is accepted per listen
// loop; later handshake attempts from a different address are dropped
// once remote_con_id is set.
func Listen(ctx context.Context, localAddr *net.UDPAddr) (*Connection, error) {
	sock, err := net.ListenUDP("udp", localAddr)
	if err != nil {
		return nil, eris.Wrap(err, "conn: failed to bind UDP socket")
	}

	c := newConnection(sock, nil, false)
	c.setState(StateHandshaking)

	buf := make([]byte, MaxPacketSize)
	for !c.remoteConIDIsSet() {
		select {
		case <-ctx.Done():
			sock.Close()
			return nil, ErrHandshakeTimeout
		default:
		}

		sock.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
		n, addr, err := sock.ReadFromUDP(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			sock.Close()
			return nil, eris.Wrap(err, "conn: error awaiting handshake")
		}
		if err := c.handlePacket(buf[:n], addr); err != nil {
			logf("conn: %v", err)
		}
	}

	c.setState(StateEstablished)
	c.startBackgroundTasks(ctx)
	return c, nil
}

func (c *Connection) sendHandshake() error {
	f, err := frame.New(frame.Handshake, stream.ControlStreamID, 0, nil)
	if err != nil {
		return err
	}
	pn := c.nextPacketNumber()
	p := packet.Packet{
		Long:         true,
		SrcConID:     c.localConID,
		DestConID:    0,
		PacketNumber: pn,
		Frames:       []frame.Frame{f},
	}
	remoteAddr, _ := c.remote()
	return c.sendPacket(p, remoteAddr)
}

func (c *Connection) sendHandshakeAck(addr *net.UDPAddr, remoteConID uint32) error {
	f, err := frame.New(frame.HandshakeAck, stream.ControlStreamID, 0, nil)
	if err != nil {
		return err
	}
	pn := c.nextPacketNumber()
	p := packet.Packet{
		Long:         true,
		SrcConID:     c.localConID,
		DestConID:    remoteConID,
		PacketNumber: pn,
		Frames:       []frame.Frame{f},
	}
	return c.sendPacket(p, addr)
}

// sendControlPacket transmits a single stream-0 frame in its own
// short-header packet immediately, bypassing the scheduler: control
// traffic is low-frequency and latency-sensitive.
func (c *Connection) sendControlPacket(f frame.Frame) error {
	remoteAddr, remoteConID := c.remote()
	if remoteAddr == nil {
		return eris.New("conn: no remote address to send control packet to")
	}
	pn := c.nextPacketNumber()
	p := packet.Packet{
		Long:         false,
		DestConID:    remoteConID,
		PacketNumber: pn,
		Frames:       []frame.Frame{f},
	}
	return c.sendPacket(p, remoteAddr)
}

// sendPacket serializes and transmits p, updating byte/packet
// counters and Prometheus metrics. It is the single choke point all
// outbound traffic passes through.
func (c *Connection) sendPacket(p packet.Packet, addr *net.UDPAddr) error {
	data := p.Encode()
	if _, err := c.sock.WriteToUDP(data, addr); err != nil {
		return eris.Wrap(err, "conn: failed to write packet")
	}
	atomic.AddUint64(&c.bytesSent, uint64(len(data)))
	packetsSentTotal.WithLabelValues(c.conIDLabel).Inc()
	bytesSentTotal.WithLabelValues(c.conIDLabel).Add(float64(len(data)))
	packetNumberGauge.WithLabelValues(c.conIDLabel).Set(float64(c.loadPacketNumber()))
	return nil
}
