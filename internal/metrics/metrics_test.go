package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/marmos91/urpc/internal/wire"
)

func TestObserveRequestIncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveRequest(0x20010000, wire.StatusOK, 5*time.Millisecond)
	m.ObserveRequest(0x20010000, wire.StatusOK, 5*time.Millisecond)
	m.ObserveRequest(0x20010000, wire.StatusFail, 5*time.Millisecond)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.requestsTotal.WithLabelValues("0x20010000", "OK")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.requestsTotal.WithLabelValues("0x20010000", "FAIL")))
}

func TestSetActiveSessions(t *testing.T) {
	m := NewNoop()
	m.SetActiveSessions(3)
	assert.Equal(t, float64(3), testutil.ToFloat64(m.sessionsActive))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveRequest(1, wire.StatusOK, time.Second)
		m.SetActiveSessions(1)
		m.SetWorkerBusy(0, true)
	})
}

func TestSetWorkerBusyTogglesGauge(t *testing.T) {
	m := NewNoop()
	m.SetWorkerBusy(0, true)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.workerBusy.WithLabelValues("0")))
	m.SetWorkerBusy(0, false)
	assert.Equal(t, float64(0), testutil.ToFloat64(m.workerBusy.WithLabelValues("0")))
}
