// control/metrics.go
// Author: momentics <momentics@gmail.com>
//
// Prometheus counters for channel traffic. A nil *Metrics records nothing,
// so components can hold one unconditionally.

package control

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the channel-level counters.
type Metrics struct {
	bytesIn        prometheus.Counter
	bytesOut       prometheus.Counter
	framesIn       prometheus.Counter
	framesOut      prometheus.Counter
	channelsOpen   prometheus.Gauge
	channelsOpened prometheus.Counter
	channelsClosed *prometheus.CounterVec
	framingErrors  prometheus.Counter
	partialWrites  prometheus.Counter
}

// NewMetrics registers the counters on reg under namespace.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	f := promauto.With(reg)
	counter := func(name, help string) prometheus.Counter {
		return f.NewCounter(prometheus.CounterOpts{Namespace: namespace, Subsystem: "channel", Name: name, Help: help})
	}
	return &Metrics{
		bytesIn:   counter("bytes_received_total", "Bytes read from transports"),
		bytesOut:  counter("bytes_sent_total", "Bytes written to transports"),
		framesIn:  counter("messages_received_total", "Messages delivered to handlers"),
		framesOut: counter("messages_sent_total", "Outbound messages fully written"),
		channelsOpen: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "channel", Name: "open",
			Help: "Channels currently open",
		}),
		channelsOpened: counter("opened_total", "Channels opened"),
		channelsClosed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "channel", Name: "closed_total",
			Help: "Channels closed by reason",
		}, []string{"reason"}),
		framingErrors: counter("framing_errors_total", "Inbound streams rejected by a framing stage"),
		partialWrites: counter("partial_writes_total", "Writes suspended on a full socket"),
	}
}

func (m *Metrics) AddBytesIn(n int) {
	if m != nil {
		m.bytesIn.Add(float64(n))
	}
}

func (m *Metrics) AddBytesOut(n int) {
	if m != nil {
		m.bytesOut.Add(float64(n))
	}
}

func (m *Metrics) IncFramesIn() {
	if m != nil {
		m.framesIn.Inc()
	}
}

func (m *Metrics) IncFramesOut() {
	if m != nil {
		m.framesOut.Inc()
	}
}

func (m *Metrics) IncChannelsOpened() {
	if m != nil {
		m.channelsOpened.Inc()
		m.channelsOpen.Inc()
	}
}

// IncChannelsClosed counts a close; reason is normal, framing, rejected or
// transport.
func (m *Metrics) IncChannelsClosed(reason string) {
	if m != nil {
		m.channelsClosed.WithLabelValues(reason).Inc()
		m.channelsOpen.Dec()
	}
}

func (m *Metrics) IncFramingErrors() {
	if m != nil {
		m.framingErrors.Inc()
	}
}

func (m *Metrics) IncPartialWrites() {
	if m != nil {
		m.partialWrites.Inc()
	}
}
