package peer

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/clearwave/quicmux/conn"
)

// establishPair brings up a responder and an initiator connection over
// real loopback UDP, used to exercise peer-level orchestration without
// mocking the transport.
func establishPair(t *testing.T) (responder, initiator *conn.Connection) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	addr, err := net.ResolveUDPAddr("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	respCh := make(chan *conn.Connection, 1)
	addrCh := make(chan *net.UDPAddr, 1)
	errCh := make(chan error, 1)

	go func() {
		// Bind first so the address is known before the initiator
		// dials; conn.Listen itself owns the socket bind, so probe
		// with a throwaway listener only to pick a free port.
		probe, err := net.ListenUDP("udp", addr)
		if err != nil {
			errCh <- err
			return
		}
		boundAddr := probe.LocalAddr().(*net.UDPAddr)
		probe.Close()
		addrCh <- boundAddr

		c, err := conn.Listen(ctx, boundAddr)
		if err != nil {
			errCh <- err
			return
		}
		respCh <- c
	}()

	var serverAddr *net.UDPAddr
	select {
	case serverAddr = <-addrCh:
	case err := <-errCh:
		t.Fatalf("responder bind failed: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for responder bind")
	}

	init, err := conn.Dial(ctx, serverAddr)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { init.Close() })

	select {
	case resp := <-respCh:
		t.Cleanup(func() { resp.Close() })
		return resp, init
	case err := <-errCh:
		t.Fatalf("responder handshake failed: %v", err)
		return nil, nil
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for handshake")
		return nil, nil
	}
}

func TestRequestStreamsAndStatsReportEndToEnd(t *testing.T) {
	responder, initiator := establishPair(t)

	sourceDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(sourceDir, "file_1"), []byte("hello from responder"), 0o644); err != nil {
		t.Fatal(err)
	}

	// Manually drive the responder side of RunResponder's loop once,
	// rather than running the full blocking loop, so the test controls
	// timing precisely.
	go func() {
		for !responder.IsClosed() {
			ctx, cancel := context.WithTimeout(context.Background(), schedulerPollInterval)
			f, err := responder.Recv(ctx)
			cancel()
			if err != nil {
				continue
			}
			n, ok, err := ParseRequestStreams(f.Data)
			if err != nil || !ok {
				continue
			}
			for i := 1; i <= n; i++ {
				openSenderStream(responder, sourceDir, i)
			}
		}
	}()

	if err := initiator.RequestStreams(1); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) && !initiator.IsClosed() {
		time.Sleep(20 * time.Millisecond)
	}
	if !initiator.IsClosed() {
		t.Fatal("initiator never closed")
	}

	statsDir := t.TempDir()
	path, err := WriteStatsReport(statsDir, "initiator", initiator)
	if err != nil {
		t.Fatal(err)
	}
	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	report := string(contents)
	if !strings.Contains(report, "Stream 1:") {
		t.Fatalf("report missing stream section:\n%s", report)
	}
	if !strings.Contains(report, "Total bytes sent:") {
		t.Fatalf("report missing totals:\n%s", report)
	}

	received := initiator.Streams()[0].ReceivedData()
	if string(received) != "hello from responder" {
		t.Fatalf("received data = %q", received)
	}
}
