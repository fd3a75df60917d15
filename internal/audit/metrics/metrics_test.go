package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IncRecordCreated("create", "user")
		m.IncCreateFailure("store")
		m.ObserveEvent("user.created", OutcomeRecorded, time.Millisecond)
		m.ObserveQuery("list", time.Millisecond)
	})
}

func TestCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.IncRecordCreated("login", "user")
	m.IncRecordCreated("login", "user")
	m.ObserveEvent("session.login_failed", OutcomeSkipped, time.Millisecond)
	m.ObserveEvent("user.created", OutcomeDropped, 0)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.RecordsCreated.WithLabelValues("login", "user")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.EventsHandled.WithLabelValues("session.login_failed", OutcomeSkipped)))
	assert.Equal(t, 1, testutil.CollectAndCount(m.HandleDuration))
}
