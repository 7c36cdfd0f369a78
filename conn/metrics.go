package conn

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Per-connection Prometheus series, labeled by the connection's local
// id so multiple connections in one process (tests, or a responder
// serving more than one peer over its lifetime) don't collide.
// Registered once per process; distribution-distribution (same
// example pack) wires client_golang the same way, for service-level
// counters.
var (
	metricsOnce sync.Once

	packetsSentTotal     *prometheus.CounterVec
	packetsReceivedTotal *prometheus.CounterVec
	bytesSentTotal       *prometheus.CounterVec
	bytesReceivedTotal   *prometheus.CounterVec
	streamsClosedTotal   *prometheus.CounterVec
	packetNumberGauge    *prometheus.GaugeVec
)

func registerMetrics() {
	metricsOnce.Do(func() {
		packetsSentTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quicmux_packets_sent_total",
			Help: "Packets sent on a connection, by local connection id.",
		}, []string{"con_id"})
		packetsReceivedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quicmux_packets_received_total",
			Help: "Packets received on a connection, by local connection id.",
		}, []string{"con_id"})
		bytesSentTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quicmux_bytes_sent_total",
			Help: "Serialized bytes sent on a connection, by local connection id.",
		}, []string{"con_id"})
		bytesReceivedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quicmux_bytes_received_total",
			Help: "Serialized bytes received on a connection, by local connection id.",
		}, []string{"con_id"})
		streamsClosedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quicmux_streams_closed_total",
			Help: "Streams that have observed a CLOSE frame, by local connection id.",
		}, []string{"con_id"})
		packetNumberGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "quicmux_packet_number",
			Help: "Current outbound packet_number counter, by local connection id.",
		}, []string{"con_id"})

		prometheus.MustRegister(
			packetsSentTotal,
			packetsReceivedTotal,
			bytesSentTotal,
			bytesReceivedTotal,
			streamsClosedTotal,
			packetNumberGauge,
		)
	})
}
