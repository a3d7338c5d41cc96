package mcp

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds Prometheus metrics for the MCP tool surface.
type Metrics struct {
	ToolCalls    *prometheus.CounterVec   // Tool invocations by tool name and outcome
	ToolDuration *prometheus.HistogramVec // Tool execution latency by tool name
}

// NewMetrics creates Prometheus metrics for an MCP server instance.
// The registerer parameter allows flexible registration (e.g., server-owned registry, test registry).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	toolCalls := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "responder_mcp_tool_calls_total",
		Help: "Total number of MCP tool calls by tool and outcome",
	}, []string{"tool", "status"})

	toolDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "responder_mcp_tool_duration_seconds",
		Help:    "MCP tool execution time in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"tool"})

	reg.MustRegister(toolCalls)
	reg.MustRegister(toolDuration)

	return &Metrics{
		ToolCalls:    toolCalls,
		ToolDuration: toolDuration,
	}
}

// ObserveToolCall records a single tool invocation.
func (m *Metrics) ObserveToolCall(tool string, success bool, elapsed time.Duration) {
	status := "success"
	if !success {
		status = "error"
	}
	m.ToolCalls.WithLabelValues(tool, status).Inc()
	m.ToolDuration.WithLabelValues(tool).Observe(elapsed.Seconds())
}
