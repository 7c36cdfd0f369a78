package peer

import (
	"context"
	"log"
	"net"

	"github.com/clearwave/quicmux/conn"
	"github.com/clearwave/quicmux/stream"
)

// ResponderConfig configures the responder ("server") entry point.
type ResponderConfig struct {
	LocalAddr *net.UDPAddr
	// SourceDir holds the pre-staged files_to_send/file_<i> payloads
	// sender streams fragment and transmit.
	SourceDir string
	StatsDir  string
}

// RunResponder drives the responder loop to completion: handshake,
// then wait for a REQUEST_STREAMS control frame and open N sender
// streams, each bound to a pre-staged file. A missing source file is
// an application-level error: it terminates only that stream
// (populated with no data, so it sends just its CLOSE frame), never the
// connection.
func RunResponder(ctx context.Context, cfg ResponderConfig) (*conn.Connection, error) {
	c, err := conn.Listen(ctx, cfg.LocalAddr)
	if err != nil {
		return nil, err
	}
	log.Printf("peer: handshake complete, ready to receive packets")

	for !c.IsClosed() {
		recvCtx, cancel := context.WithTimeout(ctx, schedulerPollInterval)
		f, err := c.Recv(recvCtx)
		cancel()
		if err != nil {
			continue
		}

		n, ok, err := ParseRequestStreams(f.Data)
		if err != nil {
			log.Printf("peer: invalid stream request: %v", err)
			continue
		}
		if !ok {
			log.Printf("peer: received control frame from client: %q", f.Data)
			continue
		}

		log.Printf("peer: received request to start %d streams", n)
		for i := 1; i <= n; i++ {
			openSenderStream(c, cfg.SourceDir, i)
		}
	}

	if cfg.StatsDir != "" {
		if path, err := WriteStatsReport(cfg.StatsDir, "responder", c); err != nil {
			log.Printf("peer: writing stats report: %v", err)
		} else {
			log.Printf("peer: wrote stats report to %s", path)
		}
	}

	return c, nil
}

func openSenderStream(c *conn.Connection, sourceDir string, i int) {
	s := stream.New(uint32(i))
	data, err := (FileByteSource{Path: SourceFilePath(sourceDir, i)}).Read()
	if err != nil {
		log.Printf("peer: stream %d: %v (sending empty stream)", i, err)
		data = nil
	}
	if err := s.PopulateFromSource(data); err != nil {
		log.Printf("peer: stream %d: failed to fragment source: %v", i, err)
		return
	}
	c.AddStream(s)
}
