package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcomes of handling one domain event.
const (
	OutcomeRecorded = "recorded"
	OutcomeSkipped  = "skipped"
	OutcomeFailed   = "failed"
	OutcomeDropped  = "dropped"
)

// Metrics holds the audit trail Prometheus metrics. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	RecordsCreated *prometheus.CounterVec
	CreateFailures *prometheus.CounterVec
	EventsHandled  *prometheus.CounterVec
	HandleDuration prometheus.Histogram
	QueryDuration  *prometheus.HistogramVec
}

// New creates the audit metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RecordsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hrdms_audit_records_created_total",
			Help: "Audit records persisted, by action and entity type",
		}, []string{"action", "entity_type"}),
		CreateFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hrdms_audit_record_create_failures_total",
			Help: "Audit record creations that failed, by reason",
		}, []string{"reason"}),
		EventsHandled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hrdms_audit_events_handled_total",
			Help: "Domain events seen by the audit dispatcher, by name and outcome",
		}, []string{"event_name", "outcome"}),
		HandleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "hrdms_audit_event_handle_duration_seconds",
			Help:    "Time spent turning one domain event into an audit record",
			Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		}),
		QueryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hrdms_audit_query_duration_seconds",
			Help:    "Audit query latency by query kind",
			Buckets: prometheus.DefBuckets,
		}, []string{"query"}),
	}
	reg.MustRegister(m.RecordsCreated, m.CreateFailures, m.EventsHandled, m.HandleDuration, m.QueryDuration)
	return m
}

func (m *Metrics) IncRecordCreated(action, entityType string) {
	if m == nil {
		return
	}
	m.RecordsCreated.WithLabelValues(action, entityType).Inc()
}

func (m *Metrics) IncCreateFailure(reason string) {
	if m == nil {
		return
	}
	m.CreateFailures.WithLabelValues(reason).Inc()
}

func (m *Metrics) ObserveEvent(eventName, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.EventsHandled.WithLabelValues(eventName, outcome).Inc()
	if outcome != OutcomeDropped {
		m.HandleDuration.Observe(elapsed.Seconds())
	}
}

func (m *Metrics) ObserveQuery(query string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.QueryDuration.WithLabelValues(query).Observe(elapsed.Seconds())
}
