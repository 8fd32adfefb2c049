package notification

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Sent         prometheus.Counter
	Failed       prometheus.Counter
	Dropped      prometheus.Counter
	BreakerState prometheus.Gauge
}

func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer)
}

func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Sent: f.NewCounter(prometheus.CounterOpts{
			Name: "bloodlink_notifications_sent_total",
			Help: "Emails handed to the delivery service",
		}),
		Failed: f.NewCounter(prometheus.CounterOpts{
			Name: "bloodlink_notifications_failed_total",
			Help: "Emails the delivery service rejected or that timed out",
		}),
		Dropped: f.NewCounter(prometheus.CounterOpts{
			Name: "bloodlink_notifications_dropped_total",
			Help: "Emails skipped because the circuit breaker was open",
		}),
		BreakerState: f.NewGauge(prometheus.GaugeOpts{
			Name: "bloodlink_notifications_circuit_open",
			Help: "1 while the delivery circuit breaker is open",
		}),
	}
}

func (m *Metrics) incSent() {
	if m != nil {
		m.Sent.Inc()
	}
}

func (m *Metrics) incFailed() {
	if m != nil {
		m.Failed.Inc()
	}
}

func (m *Metrics) incDropped() {
	if m != nil {
		m.Dropped.Inc()
	}
}

func (m *Metrics) setBreakerOpen(open bool) {
	if m == nil {
		return
	}
	if open {
		m.BreakerState.Set(1)
		return
	}
	m.BreakerState.Set(0)
}
