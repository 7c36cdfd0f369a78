package frame

import (
	"bytes"
	"errors"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		f    Frame
	}{
		{
			name: "empty data",
			f:    Frame{Type: Data, StreamID: 1, Offset: 0, Length: 0, Data: nil},
		},
		{
			name: "with data",
			f:    Frame{Type: Data, StreamID: 1, Offset: 0, Length: 12, Data: []byte("Hello, QUIC!")},
		},
		{
			name: "close frame",
			f:    Frame{Type: Close, StreamID: 7, Offset: 4096, Length: 0, Data: nil},
		},
		{
			name: "handshake ack",
			f:    Frame{Type: HandshakeAck, StreamID: 0, Offset: 0, Length: 0, Data: nil},
		},
		{
			name: "max data size",
			f:    Frame{Type: Data, StreamID: 2, Offset: 0, Length: MaxDataSize, Data: make([]byte, MaxDataSize)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded := tt.f.Encode()
			decoded, rest, err := Decode(encoded)
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if len(rest) != 0 {
				t.Fatalf("rest = %d bytes, want 0", len(rest))
			}
			if decoded.Type != tt.f.Type || decoded.StreamID != tt.f.StreamID ||
				decoded.Offset != tt.f.Offset || decoded.Length != tt.f.Length {
				t.Fatalf("decoded = %+v, want %+v", decoded, tt.f)
			}
			if !bytes.Equal(decoded.Data, tt.f.Data) {
				t.Fatalf("decoded.Data = %v, want %v", decoded.Data, tt.f.Data)
			}
		})
	}
}

func TestEncodeSize(t *testing.T) {
	// S1: empty frame encodes to HeaderSize bytes, first byte is the type.
	f, err := New(Data, 1, 0, nil)
	if err != nil {
		t.Fatal(err)
	}
	enc := f.Encode()
	if len(enc) != HeaderSize {
		t.Fatalf("len(encode) = %d, want %d", len(enc), HeaderSize)
	}
	if enc[0] != byte(Data) {
		t.Fatalf("enc[0] = %#x, want %#x", enc[0], byte(Data))
	}

	// S2: frame with data encodes to HeaderSize+len(data) bytes.
	f2, err := New(Data, 1, 0, []byte("Hello, QUIC!"))
	if err != nil {
		t.Fatal(err)
	}
	enc2 := f2.Encode()
	if len(enc2) != HeaderSize+len("Hello, QUIC!") {
		t.Fatalf("len(encode) = %d, want %d", len(enc2), HeaderSize+len("Hello, QUIC!"))
	}
	decoded, rest, err := Decode(enc2)
	if err != nil {
		t.Fatal(err)
	}
	if len(rest) != 0 {
		t.Fatalf("rest = %v, want empty", rest)
	}
	if !bytes.Equal(decoded.Data, []byte("Hello, QUIC!")) {
		t.Fatalf("decoded.Data = %q", decoded.Data)
	}
}

func TestDecodeTruncation(t *testing.T) {
	f, err := New(Data, 1, 0, []byte("Hello, QUIC!"))
	if err != nil {
		t.Fatal(err)
	}
	full := f.Encode()

	for n := 0; n < len(full); n++ {
		prefix := full[:n]
		if _, _, err := Decode(prefix); !errors.Is(err, ErrMalformed) {
			t.Fatalf("Decode(prefix of length %d) error = %v, want ErrMalformed", n, err)
		}
	}
}

func TestDecodeTailCall(t *testing.T) {
	f1, _ := New(Data, 1, 0, []byte("abc"))
	f2, _ := New(Close, 1, 3, nil)
	concatenated := append(f1.Encode(), f2.Encode()...)

	d1, rest, err := Decode(concatenated)
	if err != nil {
		t.Fatal(err)
	}
	if d1.StreamID != 1 || !bytes.Equal(d1.Data, []byte("abc")) {
		t.Fatalf("first decode = %+v", d1)
	}
	d2, rest2, err := Decode(rest)
	if err != nil {
		t.Fatal(err)
	}
	if len(rest2) != 0 {
		t.Fatalf("rest2 = %v, want empty", rest2)
	}
	if d2.Type != Close || d2.Offset != 3 {
		t.Fatalf("second decode = %+v", d2)
	}
}

func TestNewRejectsOversizedPayload(t *testing.T) {
	if _, err := New(Data, 1, 0, make([]byte, MaxDataSize+1)); err == nil {
		t.Fatal("expected error for oversized payload")
	}
}

func TestTypeString(t *testing.T) {
	tests := []struct {
		typ  Type
		want string
	}{
		{0, "NONE"},
		{Handshake, "HANDSHAKE"},
		{HandshakeAck, "HANDSHAKE|ACK"},
		{Data, "DATA"},
		{Close, "CLOSE"},
	}
	for _, tt := range tests {
		if got := tt.typ.String(); got != tt.want {
			t.Errorf("Type(%d).String() = %q, want %q", tt.typ, got, tt.want)
		}
	}
}
