package conn

import "time"

// Statistics is a point-in-time snapshot of connection-level counters,
// suitable for WriteStatsReport or ad-hoc inspection. Connection-level
// stime/etime track the run-wide duration the stats report needs,
// distinct from each stream's own timestamps.
type Statistics struct {
	LocalConID    uint32
	RemoteConID   uint32
	PacketNumber  uint32
	BytesSent     uint64
	BytesReceived uint64
	ActiveStreams int
	ClosedStreams int
	Stime         time.Time
	Etime         time.Time
}

// Statistics returns a snapshot of the connection's current counters.
func (c *Connection) Statistics() Statistics {
	c.mu.RLock()
	remote := c.remoteConID
	closed := 0
	for _, st := range c.streams {
		if st.Closed() {
			closed++
		}
	}
	active := len(c.streams) - closed
	c.mu.RUnlock()

	c.timeMu.Lock()
	stime, etime := c.stime, c.etime
	c.timeMu.Unlock()

	return Statistics{
		LocalConID:    c.localConID,
		RemoteConID:   remote,
		PacketNumber:  c.loadPacketNumber(),
		BytesSent:     c.loadBytesSent(),
		BytesReceived: c.loadBytesReceived(),
		ActiveStreams: active,
		ClosedStreams: closed,
		Stime:         stime,
		Etime:         etime,
	}
}
