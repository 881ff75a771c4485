// Package observability groups the Prometheus instruments used by the engine.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments. A nil *Metrics is valid and
// turns every observation into a no-op, which keeps test wiring minimal.
type Metrics struct {
	registry *prometheus.Registry

	ActiveSessions     prometheus.Gauge
	SessionEvents      *prometheus.CounterVec
	VotesTotal         prometheus.Counter
	SnapshotsDelivered prometheus.Counter
	NotificationsSent  prometheus.Counter
	PatchDuration      prometheus.Histogram
}

// NewMetrics builds the instrument set on a private registry so repeated
// construction (tests, multiple apps in one process) never double-registers.
func NewMetrics(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		ActiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Number of live classroom sessions.",
		}),
		SessionEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_events_total",
			Help:      "Session lifecycle events by type.",
		}, []string{"event"}),
		VotesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "votes_total",
			Help:      "Accepted student choice submissions.",
		}),
		SnapshotsDelivered: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_delivered_total",
			Help:      "Session snapshots delivered to feed subscribers.",
		}),
		NotificationsSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_sent_total",
			Help:      "Live-session-started notifications written.",
		}),
		PatchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "patch_duration_ms",
			Help:      "Session patch latency in milliseconds.",
			Buckets:   []float64{1, 2, 5, 10, 25, 50, 100, 250, 500},
		}),
	}
}

// Handler exposes the registry for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) SessionEvent(event string) {
	if m == nil {
		return
	}
	m.SessionEvents.WithLabelValues(event).Inc()
}

func (m *Metrics) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.ActiveSessions.Set(float64(n))
}

func (m *Metrics) VoteAccepted() {
	if m == nil {
		return
	}
	m.VotesTotal.Inc()
}

func (m *Metrics) SnapshotDelivered() {
	if m == nil {
		return
	}
	m.SnapshotsDelivered.Inc()
}

func (m *Metrics) NotificationSent() {
	if m == nil {
		return
	}
	m.NotificationsSent.Inc()
}

func (m *Metrics) ObservePatch(d time.Duration) {
	if m == nil {
		return
	}
	m.PatchDuration.Observe(float64(d.Milliseconds()))
}
