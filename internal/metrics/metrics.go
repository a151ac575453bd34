// Package metrics defines the Prometheus collectors for both relay roles.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	RoleAgent  = "agent"
	RoleServer = "server"

	DirectionUp   = "up"
	DirectionDown = "down"
)

var (
	ConnectionsTotal   = promauto.NewCounterVec(prometheus.CounterOpts{Name: "tlsocks_connections_total", Help: "Accepted connections"}, []string{"role"})
	ActiveConnections  = promauto.NewGaugeVec(prometheus.GaugeOpts{Name: "tlsocks_active_connections", Help: "Connections currently being handled"}, []string{"role"})
	ErrorsTotal        = promauto.NewCounterVec(prometheus.CounterOpts{Name: "tlsocks_errors_total", Help: "Connection failures by kind"}, []string{"role", "kind"})
	RelayedBytesTotal  = promauto.NewCounterVec(prometheus.CounterOpts{Name: "tlsocks_relayed_bytes_total", Help: "Bytes relayed; up is toward the destination"}, []string{"role", "direction"})
	ConnectionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{Name: "tlsocks_connection_duration_seconds", Help: "Connection lifetime seconds", Buckets: prometheus.ExponentialBuckets(0.01, 2, 16)}, []string{"role"})
)
