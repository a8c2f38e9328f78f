package websocket

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exports relay counters to Prometheus. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	ActiveConnections prometheus.Gauge
	OnlineUsers       prometheus.Gauge

	// Labels: type
	EventsReceived *prometheus.CounterVec
	EventsSent     *prometheus.CounterVec
	EventsDropped  *prometheus.CounterVec

	PersistDuration prometheus.Histogram
	// Labels: code
	PersistFailures *prometheus.CounterVec
}

// NewMetrics creates the relay collectors on reg. With a nil reg the
// collectors are created but not registered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ActiveConnections: factory.NewGauge(prometheus.GaugeOpts{
			Name: "relay_active_connections",
			Help: "Current number of live websocket connections",
		}),
		OnlineUsers: factory.NewGauge(prometheus.GaugeOpts{
			Name: "relay_online_users",
			Help: "Current number of users with at least one live connection",
		}),
		EventsReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_events_received_total",
			Help: "Frames received from clients by type",
		}, []string{"type"}),
		EventsSent: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_events_sent_total",
			Help: "Frames queued to clients by type",
		}, []string{"type"}),
		EventsDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_events_dropped_total",
			Help: "Frames that could not be queued to a client by type",
		}, []string{"type"}),
		PersistDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "relay_persist_duration_seconds",
			Help:    "Latency of message store calls",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		PersistFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_persist_failures_total",
			Help: "Failed message store calls by error code",
		}, []string{"code"}),
	}
}

func (m *Metrics) connectionOpened() {
	if m == nil {
		return
	}
	m.ActiveConnections.Inc()
}

func (m *Metrics) connectionClosed() {
	if m == nil {
		return
	}
	m.ActiveConnections.Dec()
}

func (m *Metrics) setOnlineUsers(n int) {
	if m == nil {
		return
	}
	m.OnlineUsers.Set(float64(n))
}

func (m *Metrics) eventReceived(t MessageType) {
	if m == nil {
		return
	}
	m.EventsReceived.WithLabelValues(t.String()).Inc()
}

func (m *Metrics) eventSent(t MessageType) {
	if m == nil {
		return
	}
	m.EventsSent.WithLabelValues(t.String()).Inc()
}

func (m *Metrics) eventDropped(t MessageType) {
	if m == nil {
		return
	}
	m.EventsDropped.WithLabelValues(t.String()).Inc()
}

func (m *Metrics) observePersist(d time.Duration) {
	if m == nil {
		return
	}
	m.PersistDuration.Observe(d.Seconds())
}

func (m *Metrics) persistFailed(code ErrorCode) {
	if m == nil {
		return
	}
	m.PersistFailures.WithLabelValues(string(code)).Inc()
}
