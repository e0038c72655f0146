package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type moduleMetrics struct {
	agentRunTotal      *prometheus.CounterVec
	agentRunDuration   *prometheus.HistogramVec
	agentIterations    prometheus.Histogram
	tokenUsageTotal    *prometheus.CounterVec
	toolExecutionTotal *prometheus.CounterVec
	toolDuration       *prometheus.HistogramVec
	activeSessions     prometheus.Gauge
	sessionsEvicted    prometheus.Counter
	rateLimitRejected  prometheus.Counter
}

var (
	metricsOnce sync.Once
	metricsInst *moduleMetrics
)

func getMetrics() *moduleMetrics {
	metricsOnce.Do(func() {
		m := &moduleMetrics{
			agentRunTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "agent_run_total",
					Help: "Total agent runs by provider and status.",
				},
				[]string{"provider", "status"},
			),
			agentRunDuration: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "agent_run_duration_seconds",
					Help:    "Agent run duration in seconds by provider.",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"provider"},
			),
			agentIterations: prometheus.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "agent_iterations",
					Help:    "Provider turns consumed per completed agent run.",
					Buckets: []float64{1, 2, 3, 4, 5, 6, 8, 10},
				},
			),
			tokenUsageTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "token_usage_total",
					Help: "Total provider tokens consumed by direction.",
				},
				[]string{"direction"},
			),
			toolExecutionTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "tool_execution_total",
					Help: "Total tool executions by tool and status.",
				},
				[]string{"tool", "status"},
			),
			toolDuration: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "tool_execution_duration_seconds",
					Help:    "Tool execution duration in seconds by tool.",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"tool"},
			),
			activeSessions: prometheus.NewGauge(
				prometheus.GaugeOpts{
					Name: "active_sessions",
					Help: "Current active session count.",
				},
			),
			sessionsEvicted: prometheus.NewCounter(
				prometheus.CounterOpts{
					Name: "sessions_evicted_total",
					Help: "Total sessions evicted by the cleanup sweep.",
				},
			),
			rateLimitRejected: prometheus.NewCounter(
				prometheus.CounterOpts{
					Name: "rate_limit_rejected_total",
					Help: "Total requests rejected by admission control.",
				},
			),
		}

		prometheus.MustRegister(
			m.agentRunTotal,
			m.agentRunDuration,
			m.agentIterations,
			m.tokenUsageTotal,
			m.toolExecutionTotal,
			m.toolDuration,
			m.activeSessions,
			m.sessionsEvicted,
			m.rateLimitRejected,
		)

		metricsInst = m
	})

	return metricsInst
}

// EnsureRegistered initializes and registers metrics the first time it is called.
func EnsureRegistered() {
	_ = getMetrics()
}

// MetricsHandler returns the HTTP handler serving the metric endpoint.
func MetricsHandler() http.Handler {
	EnsureRegistered()
	return promhttp.Handler()
}

// RecordAgentRun records one completed or failed loop run.
func RecordAgentRun(provider string, duration time.Duration, iterations int, success bool) {
	m := getMetrics()
	status := "error"
	if success {
		status = "success"
	}
	m.agentRunTotal.WithLabelValues(provider, status).Inc()
	m.agentRunDuration.WithLabelValues(provider).Observe(duration.Seconds())
	if success {
		m.agentIterations.Observe(float64(iterations))
	}
}

// RecordTokenUsage accumulates provider token counts.
func RecordTokenUsage(inputTokens, outputTokens int) {
	m := getMetrics()
	m.tokenUsageTotal.WithLabelValues("input").Add(float64(inputTokens))
	m.tokenUsageTotal.WithLabelValues("output").Add(float64(outputTokens))
}

// RecordToolExecution records one tool dispatch outcome.
func RecordToolExecution(tool string, duration time.Duration, success bool) {
	m := getMetrics()
	status := "error"
	if success {
		status = "success"
	}
	m.toolExecutionTotal.WithLabelValues(tool, status).Inc()
	m.toolDuration.WithLabelValues(tool).Observe(duration.Seconds())
}

// SetActiveSessions publishes the current session count.
func SetActiveSessions(count int) {
	getMetrics().activeSessions.Set(float64(count))
}

// RecordSessionsEvicted counts sessions removed by a cleanup sweep.
func RecordSessionsEvicted(count int) {
	if count <= 0 {
		return
	}
	getMetrics().sessionsEvicted.Add(float64(count))
}

// RecordRateLimitRejection counts one rejected admission check.
func RecordRateLimitRejection() {
	getMetrics().rateLimitRejected.Inc()
}
