// Package metrics exposes the uRPC server's Prometheus instrumentation:
// per-procedure request counters and latency histograms, and gauges for
// the live session table and worker pool.
//
// Grounded on the teacher's pkg/metrics/prometheus package (promauto.With
// a caller-supplied registry, nil-receiver methods so a disabled Metrics
// instance costs nothing at call sites).
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/marmos91/urpc/internal/wire"
)

// Metrics holds every uRPC server metric. A nil *Metrics is valid and
// every method on it is a no-op, so instrumentation can be wired
// unconditionally and disabled by passing nil to server.New.
type Metrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	sessionsActive  prometheus.Gauge
	workerBusy      *prometheus.GaugeVec
}

// New creates server metrics registered against reg.
func New(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		requestsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "urpc_requests_total",
				Help: "Total number of dispatched uRPC requests by procedure and status",
			},
			[]string{"proc", "status"},
		),
		requestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "urpc_request_duration_seconds",
				Help: "Time from header parse to the end of dispatch for a request, before the reply is sent",
				Buckets: []float64{
					0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2,
				},
			},
			[]string{"proc"},
		),
		sessionsActive: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "urpc_sessions_active",
				Help: "Current number of sessions in the session table",
			},
		),
		workerBusy: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "urpc_worker_busy",
				Help: "1 while a worker thread is handling a request, 0 while idle",
			},
			[]string{"thread"},
		),
	}
}

// NewNoop returns a *Metrics backed by its own private registry, for
// callers (tests, a server run without --metrics) that want real
// Prometheus types without wiring a shared registry.
func NewNoop() *Metrics {
	return New(prometheus.NewRegistry())
}

func procLabel(procID uint32) string {
	return fmt.Sprintf("0x%08x", procID)
}

// ObserveRequest records one dispatched request's outcome and latency.
func (m *Metrics) ObserveRequest(procID uint32, status wire.Status, d time.Duration) {
	if m == nil {
		return
	}
	proc := procLabel(procID)
	m.requestsTotal.WithLabelValues(proc, status.String()).Inc()
	m.requestDuration.WithLabelValues(proc).Observe(d.Seconds())
}

// SetActiveSessions updates the session-table size gauge.
func (m *Metrics) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.sessionsActive.Set(float64(n))
}

// SetWorkerBusy marks threadID as busy (busy=true) or idle (busy=false).
func (m *Metrics) SetWorkerBusy(threadID int, busy bool) {
	if m == nil {
		return
	}
	label := fmt.Sprintf("%d", threadID)
	if busy {
		m.workerBusy.WithLabelValues(label).Set(1)
	} else {
		m.workerBusy.WithLabelValues(label).Set(0)
	}
}
