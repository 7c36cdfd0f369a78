package peer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/clearwave/quicmux/conn"
)

const (
	kb = 1024
	mb = 1024 * kb
)

// WriteStatsReport writes stats/<role>_<n>_streams_stats.txt at
// connection close: one section per stream (frames/bytes received,
// wall time, throughput in bytes/sec and frames/sec) plus connection
// totals, with the total byte throughput auto-scaled to bytes/sec,
// KB/sec, or MB/sec.
func WriteStatsReport(dir, role string, c *conn.Connection) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("peer: creating stats directory: %w", err)
	}

	streams := c.Streams()
	path := filepath.Join(dir, fmt.Sprintf("%s_%d_streams_stats.txt", role, len(streams)))

	var b strings.Builder
	var totalBytesReceived, totalFramesReceived uint64

	for _, s := range streams {
		fmt.Fprintf(&b, "Stream %d:\n", s.ID())
		fmt.Fprintf(&b, "Frames received: %d\n", s.FramesReceived())
		fmt.Fprintf(&b, "Bytes received: %d\n", s.BytesReceived())

		stime, stimeSet := s.Stime()
		etime, etimeSet := s.Etime()
		totalBytesReceived += s.BytesReceived()
		totalFramesReceived += s.FramesReceived()

		if stimeSet && etimeSet {
			elapsed := etime.Sub(stime).Seconds()
			fmt.Fprintf(&b, "Time taken: %.2f seconds\n\n", elapsed)
			if elapsed > 0 {
				fmt.Fprintf(&b, "Avg. Bytes Throughput: %.2f bytes/sec\n\n", float64(s.BytesReceived())/elapsed)
				fmt.Fprintf(&b, "Avg. Frames Throughput: %.2f frames/sec\n\n", float64(s.FramesReceived())/elapsed)
			}
		} else {
			b.WriteString("Stream not fully completed yet.\n\n")
		}
	}

	stats := c.Statistics()
	fmt.Fprintf(&b, "Total bytes sent: %d\n", stats.BytesSent)
	fmt.Fprintf(&b, "Total bytes received: %d\n", totalBytesReceived)
	fmt.Fprintf(&b, "Total frames received: %d\n", totalFramesReceived)

	if !stats.Stime.IsZero() && !stats.Etime.IsZero() {
		elapsed := stats.Etime.Sub(stats.Stime).Seconds()
		fmt.Fprintf(&b, "Total time taken: %.2f seconds\n", elapsed)
		if elapsed > 0 {
			fmt.Fprintf(&b, "Total Avg. Frames Throughput: %.0f frames/sec\n\n", float64(totalFramesReceived)/elapsed)
			fmt.Fprintf(&b, "Total Avg. Bytes Throughput: %s\n", formatThroughput(float64(totalBytesReceived)/elapsed))
		}
	}

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", fmt.Errorf("peer: writing stats report: %w", err)
	}
	return path, nil
}

func formatThroughput(bytesPerSec float64) string {
	switch {
	case bytesPerSec < kb:
		return fmt.Sprintf("%.2f bytes/sec", bytesPerSec)
	case bytesPerSec < mb:
		return fmt.Sprintf("%.2f KB/sec", bytesPerSec/kb)
	default:
		return fmt.Sprintf("%.2f MB/sec", bytesPerSec/mb)
	}
}
