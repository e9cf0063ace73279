package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles the Prometheus collectors for the API and the room
// lifecycle engine. Construct one per process and share it.
type Metrics struct {
	httpRequestsTotal  *prometheus.CounterVec
	httpLatencySeconds *prometheus.HistogramVec

	activeRooms        *prometheus.GaugeVec
	activeParticipants prometheus.Gauge
	wsConnections      prometheus.Gauge

	messagesTotal  prometheus.Counter
	reactionsTotal prometheus.Counter
	matchesTotal   *prometheus.CounterVec

	sweepsTotal          prometheus.Counter
	sweepFailuresTotal   *prometheus.CounterVec
	sweepDurationSeconds prometheus.Histogram
}

// NewMetrics creates and registers the collectors on the given registerer.
// Tests pass a fresh prometheus.NewRegistry to avoid duplicate registration.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "matchfyn_http_requests_total",
			Help: "Total number of HTTP requests served.",
		}, []string{"method", "route", "status"}),
		httpLatencySeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "matchfyn_http_latency_seconds",
			Help:    "Latency distribution for HTTP requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"}),
		activeRooms: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "matchfyn_active_rooms",
			Help: "Active rooms by room type.",
		}, []string{"room_type"}),
		activeParticipants: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "matchfyn_active_participants",
			Help: "Participant rows currently active across all rooms.",
		}),
		wsConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "matchfyn_websocket_connections",
			Help: "Open realtime websocket connections.",
		}),
		messagesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "matchfyn_messages_total",
			Help: "Chat messages persisted.",
		}),
		reactionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "matchfyn_message_reactions_total",
			Help: "Message reaction toggles processed.",
		}),
		matchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "matchfyn_matches_total",
			Help: "Match rows created, by resulting status.",
		}, []string{"status"}),
		sweepsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "matchfyn_lifecycle_sweeps_total",
			Help: "Completed lifecycle sweep runs.",
		}),
		sweepFailuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "matchfyn_lifecycle_sweep_failures_total",
			Help: "Lifecycle sweep step failures, by step.",
		}, []string{"step"}),
		sweepDurationSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "matchfyn_lifecycle_sweep_duration_seconds",
			Help:    "Wall time of one full lifecycle sweep.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
		}),
	}

	reg.MustRegister(
		m.httpRequestsTotal,
		m.httpLatencySeconds,
		m.activeRooms,
		m.activeParticipants,
		m.wsConnections,
		m.messagesTotal,
		m.reactionsTotal,
		m.matchesTotal,
		m.sweepsTotal,
		m.sweepFailuresTotal,
		m.sweepDurationSeconds,
	)

	return m
}

// ObserveHTTP records one served request.
func (m *Metrics) ObserveHTTP(method, route, status string, elapsed time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, route, status).Inc()
	m.httpLatencySeconds.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// SetActiveRooms sets the active-room gauge for one room type.
func (m *Metrics) SetActiveRooms(roomType string, count int64) {
	m.activeRooms.WithLabelValues(roomType).Set(float64(count))
}

// SetActiveParticipants sets the active-participant gauge.
func (m *Metrics) SetActiveParticipants(count int64) {
	m.activeParticipants.Set(float64(count))
}

// ConnectionOpened increments the websocket connection gauge.
func (m *Metrics) ConnectionOpened() { m.wsConnections.Inc() }

// ConnectionClosed decrements the websocket connection gauge.
func (m *Metrics) ConnectionClosed() { m.wsConnections.Dec() }

// MessagePersisted counts one stored chat message.
func (m *Metrics) MessagePersisted() { m.messagesTotal.Inc() }

// ReactionToggled counts one processed reaction toggle.
func (m *Metrics) ReactionToggled() { m.reactionsTotal.Inc() }

// MatchCreated counts one new match row.
func (m *Metrics) MatchCreated(status string) {
	m.matchesTotal.WithLabelValues(status).Inc()
}

// SweepCompleted records one finished lifecycle sweep.
func (m *Metrics) SweepCompleted(elapsed time.Duration) {
	m.sweepsTotal.Inc()
	m.sweepDurationSeconds.Observe(elapsed.Seconds())
}

// SweepStepFailed counts one failed lifecycle step.
func (m *Metrics) SweepStepFailed(step string) {
	m.sweepFailuresTotal.WithLabelValues(step).Inc()
}
