package broker

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the bridge's Prometheus collectors.
type Metrics struct {
	received  *prometheus.CounterVec
	applied   *prometheus.CounterVec
	dropped   *prometheus.CounterVec
	published *prometheus.CounterVec
	connects  *prometheus.CounterVec
	connected prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		received: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grayhome_broker_messages_received_total",
			Help: "Inbound broker messages by resolved channel.",
		}, []string{"channel"}),
		applied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grayhome_broker_messages_applied_total",
			Help: "Inbound broker messages applied to device state.",
		}, []string{"channel"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grayhome_broker_messages_dropped_total",
			Help: "Inbound broker messages dropped, by reason.",
		}, []string{"reason"}),
		published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grayhome_broker_publishes_total",
			Help: "Outbound publishes by channel and result.",
		}, []string{"channel", "result"}),
		connects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grayhome_broker_connect_attempts_total",
			Help: "Broker connection attempts by result.",
		}, []string{"result"}),
		connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "grayhome_broker_connected",
			Help: "1 while the bridge holds a live broker connection.",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.received,
			m.applied,
			m.dropped,
			m.published,
			m.connects,
			m.connected,
		)
	}

	return m
}

// Drop reasons.
const (
	dropStale   = "stale"
	dropUnknown = "unknown_channel"
	dropDecode  = "decode"
	dropReject  = "rejected"
)
