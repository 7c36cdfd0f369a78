package peer

import (
	"context"
	"log"
	"net"

	"github.com/clearwave/quicmux/conn"
)

// InitiatorConfig configures the initiator ("client") entry point.
type InitiatorConfig struct {
	RemoteAddr *net.UDPAddr
	NumStreams int
	// ReceivedDir, if non-empty, causes each received stream's final
	// bytes to be persisted to ReceivedDir/temp_stream_<id>.
	ReceivedDir string
	StatsDir    string
}

// RunInitiator drives the initiator loop to completion: handshake,
// request N streams, then poll recv()/streams until the connection
// closes. It returns the closed connection so callers (the CLI) can
// report exit status.
func RunInitiator(ctx context.Context, cfg InitiatorConfig) (*conn.Connection, error) {
	c, err := conn.Dial(ctx, cfg.RemoteAddr)
	if err != nil {
		return nil, err
	}
	log.Printf("peer: connected to server, remote connection id recorded")

	if err := c.RequestStreams(cfg.NumStreams); err != nil {
		c.Close()
		return nil, err
	}

	for !c.IsClosed() {
		recvCtx, cancel := context.WithTimeout(ctx, schedulerPollInterval)
		f, err := c.Recv(recvCtx)
		cancel()
		if err != nil {
			continue
		}
		log.Printf("peer: received control frame from server: %q", f.Data)
	}

	if cfg.ReceivedDir != "" {
		for _, s := range c.Streams() {
			if err := (FileByteSink{Path: SinkFilePath(cfg.ReceivedDir, s.ID())}).Write(s.ReceivedData()); err != nil {
				log.Printf("peer: persisting stream %d: %v", s.ID(), err)
			}
		}
	}

	if cfg.StatsDir != "" {
		if path, err := WriteStatsReport(cfg.StatsDir, "initiator", c); err != nil {
			log.Printf("peer: writing stats report: %v", err)
		} else {
			log.Printf("peer: wrote stats report to %s", path)
		}
	}

	return c, nil
}
