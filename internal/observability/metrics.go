package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics collects application metrics for the session driver and its
// collaborators.
//
// Tracked:
//   - Turns started and how they ended (done, error, too_long)
//   - Streaming completion requests by provider, model, and status
//   - Tool dispatches by tool name and outcome
//   - Verification codes issued and checked
//   - Mail deliveries
//   - Active websocket sessions
type Metrics struct {
	// TurnCounter counts session turns by mode and outcome.
	// Labels: mode (text|voice), outcome (done|error|too_long)
	TurnCounter *prometheus.CounterVec

	// LLMRequestDuration measures streaming completion latency in seconds.
	// Labels: provider (openai|anthropic), model
	LLMRequestDuration *prometheus.HistogramVec

	// LLMRequestCounter counts completion requests.
	// Labels: provider, model, status (success|error)
	LLMRequestCounter *prometheus.CounterVec

	// ToolDispatchCounter counts tool dispatches.
	// Labels: tool_name, outcome (ok|malformed_args|collaborator_error|unknown)
	ToolDispatchCounter *prometheus.CounterVec

	// ToolDispatchDuration measures tool execution time in seconds.
	// Labels: tool_name
	ToolDispatchDuration *prometheus.HistogramVec

	// VerificationCounter counts verification code events.
	// Labels: event (issued|matched|mismatched|expired)
	VerificationCounter *prometheus.CounterVec

	// MailCounter counts outbound mail attempts.
	// Labels: status (sent|failed)
	MailCounter *prometheus.CounterVec

	// ActiveSessions is a gauge of live websocket sessions.
	ActiveSessions prometheus.Gauge
}

// NewMetrics creates and registers all metrics with reg. Pass nil to use
// the default Prometheus registry; tests pass their own to stay isolated.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		TurnCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "concierge_turns_total",
				Help: "Total number of session turns by mode and outcome",
			},
			[]string{"mode", "outcome"},
		),

		LLMRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "concierge_llm_request_duration_seconds",
				Help:    "Duration of streaming completion requests in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"provider", "model"},
		),

		LLMRequestCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "concierge_llm_requests_total",
				Help: "Total number of completion requests by provider, model, and status",
			},
			[]string{"provider", "model", "status"},
		),

		ToolDispatchCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "concierge_tool_dispatches_total",
				Help: "Total number of tool dispatches by tool name and outcome",
			},
			[]string{"tool_name", "outcome"},
		),

		ToolDispatchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "concierge_tool_dispatch_duration_seconds",
				Help:    "Duration of tool executions in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
			},
			[]string{"tool_name"},
		),

		VerificationCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "concierge_verifications_total",
				Help: "Total number of verification code events",
			},
			[]string{"event"},
		),

		MailCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "concierge_mail_total",
				Help: "Total number of outbound mail attempts by status",
			},
			[]string{"status"},
		),

		ActiveSessions: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "concierge_active_sessions",
				Help: "Current number of live websocket sessions",
			},
		),
	}
}

// TurnFinished records one completed turn.
func (m *Metrics) TurnFinished(mode, outcome string) {
	m.TurnCounter.WithLabelValues(mode, outcome).Inc()
}

// RecordLLMRequest records one streaming completion request.
func (m *Metrics) RecordLLMRequest(provider, model, status string, durationSeconds float64) {
	m.LLMRequestCounter.WithLabelValues(provider, model, status).Inc()
	m.LLMRequestDuration.WithLabelValues(provider, model).Observe(durationSeconds)
}

// RecordToolDispatch records one tool dispatch.
func (m *Metrics) RecordToolDispatch(toolName, outcome string, durationSeconds float64) {
	m.ToolDispatchCounter.WithLabelValues(toolName, outcome).Inc()
	m.ToolDispatchDuration.WithLabelValues(toolName).Observe(durationSeconds)
}

// RecordVerification records one verification code event.
func (m *Metrics) RecordVerification(event string) {
	m.VerificationCounter.WithLabelValues(event).Inc()
}

// RecordMail records one outbound mail attempt.
func (m *Metrics) RecordMail(status string) {
	m.MailCounter.WithLabelValues(status).Inc()
}

// SessionOpened increments the active sessions gauge.
func (m *Metrics) SessionOpened() { m.ActiveSessions.Inc() }

// SessionClosed decrements the active sessions gauge.
func (m *Metrics) SessionClosed() { m.ActiveSessions.Dec() }
