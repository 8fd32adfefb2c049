package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the matching engine.
// Tracks request lifecycle counts, donor responses and scheduler ticks.
type Metrics struct {
	RequestsCreated    prometheus.Counter
	RequestsClosed     *prometheus.CounterVec
	Responses          *prometheus.CounterVec
	PolicyRejections   *prometheus.CounterVec
	Escalations        *prometheus.CounterVec
	DonorsNotified     prometheus.Counter
	NotifyFailures     prometheus.Counter
	SchedulerTick      prometheus.Histogram
	SchedulerFailures  prometheus.Counter
	EligibilityLatency prometheus.Histogram
}

var latencyBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5}

// New registers all matching metrics on the default registry.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

func NewWith(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RequestsCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "bloodlink_requests_created_total",
			Help: "Total number of blood requests created",
		}),
		RequestsClosed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bloodlink_requests_closed_total",
			Help: "Blood requests reaching a terminal status",
		}, []string{"status"}),
		Responses: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bloodlink_responses_total",
			Help: "Donor responses recorded, by decision",
		}, []string{"decision"}),
		PolicyRejections: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bloodlink_policy_rejections_total",
			Help: "Operations rejected by a domain rule, by reason code",
		}, []string{"code"}),
		Escalations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bloodlink_escalations_total",
			Help: "Radius escalations, by trigger (scheduler or hospital)",
		}, []string{"trigger"}),
		DonorsNotified: f.NewCounter(prometheus.CounterOpts{
			Name: "bloodlink_donors_notified_total",
			Help: "Donors added to a request's notified set",
		}),
		NotifyFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "bloodlink_notify_failures_total",
			Help: "Notification dispatches that failed and were skipped",
		}),
		SchedulerTick: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "bloodlink_scheduler_tick_duration_seconds",
			Help:    "Duration of one escalation scheduler pass",
			Buckets: latencyBuckets,
		}),
		SchedulerFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "bloodlink_scheduler_request_failures_total",
			Help: "Requests the scheduler failed to escalate and will retry next tick",
		}),
		EligibilityLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "bloodlink_eligibility_duration_seconds",
			Help:    "Duration of one eligibility discovery pass",
			Buckets: latencyBuckets,
		}),
	}
}

func (m *Metrics) IncrementRequestsCreated() {
	m.RequestsCreated.Inc()
}

func (m *Metrics) IncrementRequestsClosed(status string) {
	m.RequestsClosed.WithLabelValues(status).Inc()
}

func (m *Metrics) IncrementResponses(decision string) {
	m.Responses.WithLabelValues(decision).Inc()
}

func (m *Metrics) IncrementPolicyRejection(code string) {
	m.PolicyRejections.WithLabelValues(code).Inc()
}

func (m *Metrics) IncrementEscalations(trigger string) {
	m.Escalations.WithLabelValues(trigger).Inc()
}

func (m *Metrics) AddDonorsNotified(n int) {
	m.DonorsNotified.Add(float64(n))
}

func (m *Metrics) IncrementNotifyFailures() {
	m.NotifyFailures.Inc()
}

func (m *Metrics) IncrementSchedulerFailures() {
	m.SchedulerFailures.Inc()
}

// ObserveSchedulerTick records the duration of a tick.
// Call with time.Now() at the start of the tick.
func (m *Metrics) ObserveSchedulerTick(start time.Time) {
	m.SchedulerTick.Observe(time.Since(start).Seconds())
}

func (m *Metrics) ObserveEligibility(start time.Time) {
	m.EligibilityLatency.Observe(time.Since(start).Seconds())
}
