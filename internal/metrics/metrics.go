// Package metrics holds the Prometheus collectors exported on /metrics.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "najdisce"

// Report outcomes.
const (
	ReportOK         = "ok"
	ReportRolledBack = "rolled_back"
	ReportOrphaned   = "orphaned"
	ReportRejected   = "rejected"
)

// Metrics groups the service's collectors.
type Metrics struct {
	reports           *prometheus.CounterVec
	copyRetries       prometheus.Counter
	liveQueries       prometheus.Gauge
	liveSubscriptions prometheus.Gauge
	signIns           *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		reports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_total",
			Help:      "Item reports by outcome.",
		}, []string{"status", "result"}),
		copyRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "report_copy_retries_total",
			Help:      "Retried writes of the reporter's item copy.",
		}),
		liveQueries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "live_queries",
			Help:      "Distinct live item queries with at least one subscriber.",
		}),
		liveSubscriptions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "live_subscriptions",
			Help:      "Open live item subscriptions.",
		}),
		signIns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sign_ins_total",
			Help:      "Sign-in and sign-up attempts by method and result.",
		}, []string{"method", "result"}),
	}

	reg.MustRegister(m.reports, m.copyRetries, m.liveQueries, m.liveSubscriptions, m.signIns)
	return m
}

// Report counts a finished item report.
func (m *Metrics) Report(status, result string) {
	if m == nil {
		return
	}
	m.reports.WithLabelValues(status, result).Inc()
}

// CopyRetry counts one retried user copy write.
func (m *Metrics) CopyRetry() {
	if m == nil {
		return
	}
	m.copyRetries.Inc()
}

// LiveQueries adds delta to the live query gauge.
func (m *Metrics) LiveQueries(delta float64) {
	if m == nil {
		return
	}
	m.liveQueries.Add(delta)
}

// LiveSubscriptions adds delta to the live subscription gauge.
func (m *Metrics) LiveSubscriptions(delta float64) {
	if m == nil {
		return
	}
	m.liveSubscriptions.Add(delta)
}

// SignIn counts an authentication attempt.
func (m *Metrics) SignIn(method string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.signIns.WithLabelValues(method, result).Inc()
}
