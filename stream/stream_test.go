package stream

import (
	"bytes"
	"testing"

	"github.com/clearwave/quicmux/frame"
)

func TestPopulateFromSourceFragmentsAndTerminates(t *testing.T) {
	s := New(1)
	s.frameSize = 10 // deterministic for this test

	data := bytes.Repeat([]byte("a"), 25)
	if err := s.PopulateFromSource(data); err != nil {
		t.Fatal(err)
	}

	var got []frame.Frame
	for {
		f, ok := s.NextFrame()
		if !ok {
			break
		}
		got = append(got, f)
	}

	if len(got) != 4 { // 10 + 10 + 5 + close
		t.Fatalf("len(frames) = %d, want 4", len(got))
	}
	wantOffsets := []uint32{0, 10, 20, 25}
	for i, f := range got {
		if f.Offset != wantOffsets[i] {
			t.Fatalf("frame[%d].Offset = %d, want %d", i, f.Offset, wantOffsets[i])
		}
	}
	if got[0].Length != 10 || got[1].Length != 10 || got[2].Length != 5 {
		t.Fatalf("data frame lengths wrong: %+v", got[:3])
	}
	last := got[3]
	if last.Type != frame.Close || last.Length != 0 || last.Offset != 25 {
		t.Fatalf("close frame = %+v", last)
	}
	for _, f := range got[:3] {
		if f.Type != frame.Data {
			t.Fatalf("frame type = %v, want Data", f.Type)
		}
	}
}

func TestPopulateFromSourceEmpty(t *testing.T) {
	s := New(1)
	if err := s.PopulateFromSource(nil); err != nil {
		t.Fatal(err)
	}
	f, ok := s.NextFrame()
	if !ok {
		t.Fatal("expected a frame (the trailing CLOSE) for empty source")
	}
	if f.Type != frame.Close || f.Offset != 0 {
		t.Fatalf("frame = %+v, want CLOSE at offset 0", f)
	}
	if _, ok := s.NextFrame(); ok {
		t.Fatal("expected no further frames")
	}
}

func TestNextFrameUpdatesBytesSentAndStime(t *testing.T) {
	s := New(1)
	s.frameSize = 4
	if err := s.PopulateFromSource([]byte("abcdefgh")); err != nil {
		t.Fatal(err)
	}
	if _, set := s.Stime(); set {
		t.Fatal("stime should be unset before any NextFrame call")
	}

	f1, ok := s.NextFrame()
	if !ok || f1.Length != 4 {
		t.Fatalf("first frame = %+v, ok=%v", f1, ok)
	}
	if _, set := s.Stime(); !set {
		t.Fatal("stime should be set after first NextFrame call")
	}
	if s.BytesSent() != 4 {
		t.Fatalf("BytesSent() = %d, want 4", s.BytesSent())
	}

	if _, ok := s.NextFrame(); !ok {
		t.Fatal("expected second data frame")
	}
	if s.BytesSent() != 8 {
		t.Fatalf("BytesSent() = %d, want 8", s.BytesSent())
	}
}

func TestDeliverAppendsInArrivalOrderAndTracksCounters(t *testing.T) {
	s := New(1)

	f1, _ := frame.New(frame.Data, 1, 0, []byte("second-"))
	f0, _ := frame.New(frame.Data, 1, 7, []byte("first-"))

	// Deliver out of offset order: arrival order governs, not offset.
	s.Deliver(f0)
	s.Deliver(f1)

	if got := s.ReceivedData(); !bytes.Equal(got, []byte("first-second-")) {
		t.Fatalf("ReceivedData() = %q, want %q", got, "first-second-")
	}
	if s.FramesReceived() != 2 {
		t.Fatalf("FramesReceived() = %d, want 2", s.FramesReceived())
	}
	if s.BytesReceived() != uint64(len("first-")+len("second-")) {
		t.Fatalf("BytesReceived() = %d", s.BytesReceived())
	}
	if s.Closed() {
		t.Fatal("stream should not be closed yet")
	}
}

func TestDeliverCloseFrameMarksClosedAndSetsEtime(t *testing.T) {
	s := New(1)
	closeFrame, _ := frame.New(frame.Close, 1, 0, nil)

	s.Deliver(closeFrame)

	if !s.Closed() {
		t.Fatal("expected stream to be closed after CLOSE frame")
	}
	if _, set := s.Etime(); !set {
		t.Fatal("expected etime to be set after CLOSE frame")
	}

	// Delivering a second CLOSE must not reset etime's "set" state or
	// double-trigger close bookkeeping.
	before, _ := s.Etime()
	s.Deliver(closeFrame)
	after, _ := s.Etime()
	if !before.Equal(after) {
		t.Fatalf("etime changed on redundant CLOSE: %v -> %v", before, after)
	}
}

func TestFrameSizeWithinBounds(t *testing.T) {
	for i := 0; i < 50; i++ {
		s := New(uint32(i + 1))
		if s.FrameSize() < MinFrameSize || s.FrameSize() > MaxFrameSize {
			t.Fatalf("FrameSize() = %d, out of [%d, %d]", s.FrameSize(), MinFrameSize, MaxFrameSize)
		}
	}
}
