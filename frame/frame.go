// Package frame implements the smallest wire unit exchanged between the
// two peers of a connection: a fixed HeaderSize-byte header followed by
// an opaque, possibly empty, payload.
package frame

import (
	"encoding/binary"
	"fmt"
)

// Type is a bitmask over the frame kinds a connection can carry. Any
// combination is legal on the wire; HANDSHAKE|ACK is a distinguished
// combined type used to acknowledge a handshake.
type Type uint8

const (
	Handshake Type = 0x01
	Ack       Type = 0x02
	Data      Type = 0x04
	Close     Type = 0x08
)

// HandshakeAck is the distinguished combination sent by the responder to
// acknowledge a handshake.
const HandshakeAck = Handshake | Ack

func (t Type) String() string {
	if t == 0 {
		return "NONE"
	}
	var s string
	add := func(bit Type, name string) {
		if t&bit != 0 {
			if s != "" {
				s += "|"
			}
			s += name
		}
	}
	add(Handshake, "HANDSHAKE")
	add(Ack, "ACK")
	add(Data, "DATA")
	add(Close, "CLOSE")
	if s == "" {
		return fmt.Sprintf("0x%02x", uint8(t))
	}
	return s
}

// HeaderSize is the number of bytes occupied by a frame's fixed
// header: 1-byte type, 4-byte stream id, 4-byte offset, 2-byte
// length: 1+4+4+2 = 11 bytes.
const HeaderSize = 11

// MaxDataSize is the largest payload a single frame can carry: the
// length field is 16 bits wide.
const MaxDataSize = 1<<16 - 1

// Frame is the smallest transmission unit. It is immutable once
// constructed; Encode never mutates Data.
type Frame struct {
	Type     Type
	StreamID uint32
	Offset   uint32
	Length   uint16
	Data     []byte
}

// New builds a Frame, deriving Length from len(data). data may be nil or
// empty; it must not exceed MaxDataSize bytes.
func New(typ Type, streamID, offset uint32, data []byte) (Frame, error) {
	if len(data) > MaxDataSize {
		return Frame{}, fmt.Errorf("frame: payload too large: %d bytes (max %d)", len(data), MaxDataSize)
	}
	return Frame{
		Type:     typ,
		StreamID: streamID,
		Offset:   offset,
		Length:   uint16(len(data)),
		Data:     data,
	}, nil
}

// Encode serializes the frame. It always succeeds; empty Data yields
// only the HeaderSize-byte header.
func (f Frame) Encode() []byte {
	buf := make([]byte, HeaderSize+len(f.Data))
	buf[0] = byte(f.Type)
	binary.BigEndian.PutUint32(buf[1:5], f.StreamID)
	binary.BigEndian.PutUint32(buf[5:9], f.Offset)
	binary.BigEndian.PutUint16(buf[9:11], f.Length)
	copy(buf[HeaderSize:], f.Data)
	return buf
}

// ErrMalformed is returned by Decode when buf is too short to contain a
// complete frame header, or too short to contain the payload the header
// declares.
var ErrMalformed = fmt.Errorf("frame: malformed")

// Decode parses one frame from the head of buf and returns it along with
// the unconsumed suffix, enabling tail-call decoding of concatenated
// frames. It fails with ErrMalformed if buf has fewer than HeaderSize
// bytes, or fewer than HeaderSize+length bytes.
func Decode(buf []byte) (Frame, []byte, error) {
	if len(buf) < HeaderSize {
		return Frame{}, nil, fmt.Errorf("%w: need %d header bytes, have %d", ErrMalformed, HeaderSize, len(buf))
	}
	length := binary.BigEndian.Uint16(buf[9:11])
	total := HeaderSize + int(length)
	if len(buf) < total {
		return Frame{}, nil, fmt.Errorf("%w: need %d bytes, have %d", ErrMalformed, total, len(buf))
	}
	var data []byte
	if length > 0 {
		data = make([]byte, length)
		copy(data, buf[HeaderSize:total])
	}
	f := Frame{
		Type:     Type(buf[0]),
		StreamID: binary.BigEndian.Uint32(buf[1:5]),
		Offset:   binary.BigEndian.Uint32(buf[5:9]),
		Length:   length,
		Data:     data,
	}
	return f, buf[total:], nil
}

// Size returns the serialized size of the frame in bytes.
func (f Frame) Size() int {
	return HeaderSize + len(f.Data)
}
