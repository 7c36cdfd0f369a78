// Package packet implements the UDP datagram envelope: a header
// identifying the connection, followed by an ordered list of frames.
package packet

import (
	"encoding/binary"
	"fmt"

	"github.com/clearwave/quicmux/frame"
)

// LongHeaderSize is the serialized size of a long-header packet's fixed
// portion: 1-byte header byte, 4-byte src_con_id, 4-byte dest_con_id,
// 4-byte packet_number.
const LongHeaderSize = 13

// ShortHeaderSize is the serialized size of a short-header packet's
// fixed portion: 1-byte header byte, 4-byte dest_con_id, 4-byte
// packet_number.
const ShortHeaderSize = 9

// MaxSize is the configured maximum UDP payload size a packet may
// occupy once serialized.
const MaxSize = 8192

// Packet is the envelope carried in one UDP datagram. It is immutable
// once sent; the scheduler builds one, serializes it, and discards it.
type Packet struct {
	// Long is true for the handshake header variant (header_form=1),
	// false for the short, post-handshake variant (header_form=0).
	Long bool
	// Flags occupies the low 7 bits of the header byte. Unused by this
	// protocol version and left zero by the connection; Encode transmits
	// Flags & 0x7F as given.
	Flags byte
	// SrcConID is present iff Long is true.
	SrcConID     uint32
	DestConID    uint32
	PacketNumber uint32
	Frames       []frame.Frame
}

// HeaderSize returns the fixed header size for this packet's header
// form.
func (p Packet) HeaderSize() int {
	if p.Long {
		return LongHeaderSize
	}
	return ShortHeaderSize
}

// Size returns the total serialized size of the packet.
func (p Packet) Size() int {
	n := p.HeaderSize()
	for _, f := range p.Frames {
		n += f.Size()
	}
	return n
}

// Encode serializes the packet. The caller is responsible for keeping
// the aggregate size within MaxSize; Encode itself never truncates.
func (p Packet) Encode() []byte {
	buf := make([]byte, 0, p.Size())
	headerByte := (boolBit(p.Long) << 7) | (p.Flags & 0x7F)

	if p.Long {
		head := make([]byte, LongHeaderSize)
		head[0] = headerByte
		binary.BigEndian.PutUint32(head[1:5], p.SrcConID)
		binary.BigEndian.PutUint32(head[5:9], p.DestConID)
		binary.BigEndian.PutUint32(head[9:13], p.PacketNumber)
		buf = append(buf, head...)
	} else {
		head := make([]byte, ShortHeaderSize)
		head[0] = headerByte
		binary.BigEndian.PutUint32(head[1:5], p.DestConID)
		binary.BigEndian.PutUint32(head[5:9], p.PacketNumber)
		buf = append(buf, head...)
	}

	for _, f := range p.Frames {
		buf = append(buf, f.Encode()...)
	}
	return buf
}

func boolBit(b bool) byte {
	if b {
		return 1
	}
	return 0
}

// ErrMalformed is returned by Decode when buf is too short for the
// header its first byte declares, or contains a trailing region that
// cannot form a complete frame.
var ErrMalformed = fmt.Errorf("packet: malformed")

// Decode parses a packet from a full UDP datagram payload. The
// header_form bit (the top bit of the first byte) selects the long or
// short layout; the remainder is decoded as a sequence of frames until
// exhausted.
func Decode(buf []byte) (Packet, error) {
	if len(buf) < 1 {
		return Packet{}, fmt.Errorf("%w: empty datagram", ErrMalformed)
	}
	headerByte := buf[0]
	long := headerByte&0x80 != 0
	flags := headerByte & 0x7F

	var p Packet
	p.Long = long
	p.Flags = flags

	var rest []byte
	if long {
		if len(buf) < LongHeaderSize {
			return Packet{}, fmt.Errorf("%w: need %d header bytes, have %d", ErrMalformed, LongHeaderSize, len(buf))
		}
		p.SrcConID = binary.BigEndian.Uint32(buf[1:5])
		p.DestConID = binary.BigEndian.Uint32(buf[5:9])
		p.PacketNumber = binary.BigEndian.Uint32(buf[9:13])
		rest = buf[LongHeaderSize:]
	} else {
		if len(buf) < ShortHeaderSize {
			return Packet{}, fmt.Errorf("%w: need %d header bytes, have %d", ErrMalformed, ShortHeaderSize, len(buf))
		}
		p.DestConID = binary.BigEndian.Uint32(buf[1:5])
		p.PacketNumber = binary.BigEndian.Uint32(buf[5:9])
		rest = buf[ShortHeaderSize:]
	}

	for len(rest) > 0 {
		f, tail, err := frame.Decode(rest)
		if err != nil {
			return Packet{}, fmt.Errorf("%w: trailing frame: %v", ErrMalformed, err)
		}
		p.Frames = append(p.Frames, f)
		rest = tail
	}

	return p, nil
}
