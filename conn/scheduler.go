package conn

import (
	"context"
	"time"

	"github.com/clearwave/quicmux/frame"
	"github.com/clearwave/quicmux/packet"
	"github.com/thejerf/suture/v4"
)

// sendLoop is the background sender task: on every tick it attempts to
// assemble and transmit one packet from whatever streams have ready
// frames. Mirrors send_frames's loop-and-sleep structure.
func (c *Connection) sendLoop(ctx context.Context) error {
	ticker := time.NewTicker(schedulerTick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return suture.ErrDoNotRestart
		case <-ticker.C:
			if c.IsClosed() {
				return suture.ErrDoNotRestart
			}
			if err := c.buildAndSendPacket(); err != nil {
				logf("conn: scheduler: %v", err)
			}
		}
	}
}

// streamOrderSnapshot returns the ids of all registered streams in
// insertion order. No id is filtered out; stream 0 appears only if a
// caller registered it with AddStream.
func (c *Connection) streamOrderSnapshot() []uint32 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]uint32, len(c.streamOrder))
	copy(out, c.streamOrder)
	return out
}

// buildAndSendPacket implements the round-robin fair scheduler: walk
// streams in insertion order, pulling at most one frame from each per
// pass, until a full pass adds nothing. A frame is peeked (not popped)
// first so one that doesn't fit the packet currently being assembled
// is left in place for the next tick rather than dropped.
func (c *Connection) buildAndSendPacket() error {
	remoteAddr, remoteConID := c.remote()
	if remoteAddr == nil {
		return nil
	}

	ids := c.streamOrderSnapshot()
	if len(ids) == 0 {
		return nil
	}

	currentSize := packet.ShortHeaderSize
	var frames []frame.Frame

	for {
		addedThisPass := false
		for _, id := range ids {
			st, ok := c.Stream(id)
			if !ok {
				continue
			}
			f, ok := st.PeekFrame()
			if !ok {
				continue
			}
			if currentSize+f.Size() > MaxPacketSize {
				continue
			}
			st.NextFrame()
			frames = append(frames, f)
			currentSize += f.Size()
			addedThisPass = true
		}
		if !addedThisPass {
			break
		}
	}

	if len(frames) == 0 {
		return nil
	}

	pn := c.nextPacketNumber()
	p := packet.Packet{
		Long:         false,
		DestConID:    remoteConID,
		PacketNumber: pn,
		Frames:       frames,
	}
	return c.sendPacket(p, remoteAddr)
}
