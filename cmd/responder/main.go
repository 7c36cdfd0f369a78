// Command responder is the "server" entry point: it listens for a
// single initiator, opens N sender streams on request, each reading
// from a pre-staged file, and drives the connection to completion.
// Usage: responder <port>.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/clearwave/quicmux/peer"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	sourceDir := flag.String("source-dir", "files_to_send", "directory holding the pre-staged file_<i> payloads")
	statsDir := flag.String("stats-dir", "stats", "directory to write the per-run statistics report into")
	metricsAddr := flag.String("metrics-addr", "", "if set, serve Prometheus metrics on this address (e.g. :2113)")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: responder <port>")
		os.Exit(1)
	}

	port, err := strconv.Atoi(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid port: %v\n", err)
		os.Exit(1)
	}

	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
				log.Printf("responder: metrics server stopped: %v", err)
			}
		}()
	}

	localAddr := &net.UDPAddr{IP: net.ParseIP("0.0.0.0"), Port: port}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	c, err := peer.RunResponder(ctx, peer.ResponderConfig{
		LocalAddr: localAddr,
		SourceDir: *sourceDir,
		StatsDir:  *statsDir,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "responder error: %v\n", err)
		os.Exit(1)
	}
	defer c.Close()
}
