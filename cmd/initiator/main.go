// Command initiator is the "client" entry point: it connects to a
// responder, requests N streams, and drives the connection to
// completion. Usage: initiator <host> <port> <num_of_streams>.
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
	receivedDir := flag.String("received-dir", "files_received", "directory to persist received stream data into")
	statsDir := flag.String("stats-dir", "stats", "directory to write the per-run statistics report into")
	metricsAddr := flag.String("metrics-addr", "", "if set, serve Prometheus metrics on this address (e.g. :2112)")
	flag.Parse()

	if flag.NArg() != 3 {
		fmt.Fprintln(os.Stderr, "usage: initiator <host> <port> <num_of_streams>")
		os.Exit(1)
	}

	host := flag.Arg(0)
	port, err := strconv.Atoi(flag.Arg(1))
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid port: %v\n", err)
		os.Exit(1)
	}
	numStreams, err := strconv.Atoi(flag.Arg(2))
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid num_of_streams: %v\n", err)
		os.Exit(1)
	}

	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
				log.Printf("initiator: metrics server stopped: %v", err)
			}
		}()
	}

	ips, err := net.LookupIP(host)
	if err != nil || len(ips) == 0 {
		fmt.Fprintf(os.Stderr, "failed to resolve host %q: %v\n", host, err)
		os.Exit(1)
	}
	remoteAddr := &net.UDPAddr{IP: ips[0], Port: port}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	c, err := peer.RunInitiator(ctx, peer.InitiatorConfig{
		RemoteAddr:  remoteAddr,
		NumStreams:  numStreams,
		ReceivedDir: *receivedDir,
		StatsDir:    *statsDir,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "initiator error: %v\n", err)
		os.Exit(1)
	}
	defer c.Close()
}
