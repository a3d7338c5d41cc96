// Package tools provides tool registry and execution for the diagnosis agents.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/incidentlab/responder/internal/agent/provider"
	"github.com/incidentlab/responder/internal/mockdata"
)

// maxResultBytes caps the size of a tool result handed back to the
// model. Oversized payloads (~12.5k tokens at 4 bytes each) would crowd
// out the rest of the context window.
const maxResultBytes = 50 << 10

// Tool defines the interface for agent tools.
type Tool interface {
	// Name returns the tool's unique identifier.
	Name() string

	// Description returns a human-readable description for the LLM.
	Description() string

	// InputSchema returns JSON Schema for input validation.
	InputSchema() map[string]interface{}

	// Execute runs the tool with given input.
	Execute(ctx context.Context, input json.RawMessage) (*Result, error)
}

// Result represents the output of a tool execution.
type Result struct {
	// Success indicates if the tool executed successfully
	Success bool `json:"success"`

	// Data contains the tool's output (tool-specific structure)
	Data interface{} `json:"data,omitempty"`

	// Error contains error details if Success is false
	Error string `json:"error,omitempty"`

	// Summary is a brief description of what happened (for display)
	Summary string `json:"summary,omitempty"`

	// ExecutionTimeMs is how long the tool took to run
	ExecutionTimeMs int64 `json:"executionTimeMs"`
}

// Registry manages tool registration and discovery.
type Registry struct {
	tools     map[string]Tool
	mu        sync.RWMutex
	logger    *slog.Logger
	collector *Collector
}

// Dependencies contains the external dependencies needed by tools.
type Dependencies struct {
	Data   *mockdata.Store
	Logger *slog.Logger
}

// NewRegistry creates a tool registry over the fixture store. With a
// nil store the registry starts empty, callers can still Register their
// own tools.
func NewRegistry(deps Dependencies) *Registry {
	r := &Registry{
		tools:     make(map[string]Tool),
		logger:    deps.Logger,
		collector: NewCollector(),
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}

	if deps.Data != nil {
		r.add(NewRouteSymptomsTool(deps.Data))
		r.add(NewObservabilityContextTool(deps.Data))
		r.add(NewAnalyzeLogsTool(deps.Data, r.collector))
		r.add(NewAnalyzeMetricsTool(deps.Data, r.collector))
		r.add(NewSynthesizeVerdictTool(deps.Data, r.collector))
	}
	return r
}

// NewMockRegistry creates a registry whose diagnosis tools return
// canned responses. Used for exercising the agent loop without fixture
// data on disk.
func NewMockRegistry() *Registry {
	r := &Registry{
		tools:     make(map[string]Tool),
		logger:    slog.Default(),
		collector: NewCollector(),
	}
	for _, tool := range cannedDiagnosisTools() {
		r.add(tool)
	}
	return r
}

// Collector returns the findings collector shared by the diagnosis tools.
func (r *Registry) Collector() *Collector {
	return r.collector
}

// add registers a tool without locking.
func (r *Registry) add(tool Tool) {
	r.tools[tool.Name()] = tool
	r.logger.Debug("registered tool", "name", tool.Name())
}

// Register adds a tool to the registry.
func (r *Registry) Register(tool Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.add(tool)
}

// Get returns a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	return tool, ok
}

// List returns all registered tools.
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Tool, 0, len(r.tools))
	for _, tool := range r.tools {
		out = append(out, tool)
	}
	return out
}

// ToProviderTools converts registry tools to provider tool definitions.
func (r *Registry) ToProviderTools() []provider.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]provider.ToolDefinition, 0, len(r.tools))
	for _, tool := range r.tools {
		defs = append(defs, provider.ToolDefinition{
			Name:        tool.Name(),
			Description: tool.Description(),
			InputSchema: tool.InputSchema(),
		})
	}
	return defs
}

// Execute runs a tool by name. Errors come back as failed Results
// rather than Go errors so the model always receives a tool response.
func (r *Registry) Execute(ctx context.Context, name string, input json.RawMessage) *Result {
	tool, ok := r.Get(name)
	if !ok {
		return &Result{
			Success: false,
			Error:   fmt.Sprintf("tool %q not found", name),
		}
	}

	start := time.Now()
	result, err := tool.Execute(ctx, input)
	if err != nil {
		return &Result{
			Success:         false,
			Error:           err.Error(),
			ExecutionTimeMs: time.Since(start).Milliseconds(),
		}
	}
	result.ExecutionTimeMs = time.Since(start).Milliseconds()

	return result.capped(maxResultBytes)
}

// cappedData replaces oversized tool output. It keeps a prefix of the
// original payload so the model has something to work with, plus a note
// suggesting a narrower request.
type cappedData struct {
	Truncated     bool   `json:"_truncated"`
	OriginalBytes int    `json:"_original_bytes"`
	CapBytes      int    `json:"_truncated_bytes"`
	Note          string `json:"_truncation_note"`
	PartialData   string `json:"partial_data"`
}

// capped enforces the result size limit. Results under the limit pass
// through untouched.
func (r *Result) capped(limit int) *Result {
	if r == nil || r.Data == nil {
		return r
	}
	raw, err := json.Marshal(r.Data)
	if err != nil {
		// Unmarshalable data will fail again downstream where the
		// error can be attributed to the tool.
		return r
	}
	if len(raw) <= limit {
		return r
	}

	// Keep roughly 80% of the budget as payload, the rest is headroom
	// for the wrapper and the summary.
	keep := limit * 80 / 100
	partial := string(raw)
	if len(partial) > keep {
		partial = partial[:keep]
	}

	marker := fmt.Sprintf("[TRUNCATED: %d→%d bytes]", len(raw), limit)
	summary := marker
	if r.Summary != "" {
		summary = r.Summary + " " + marker
	}

	return &Result{
		Success: r.Success,
		Error:   r.Error,
		Summary: summary,
		Data: &cappedData{
			Truncated:     true,
			OriginalBytes: len(raw),
			CapBytes:      limit,
			Note:          fmt.Sprintf("Response truncated from %d to ~%d bytes to prevent context overflow. Consider requesting a narrower section of the observability data.", len(raw), limit),
			PartialData:   partial,
		},
		ExecutionTimeMs: r.ExecutionTimeMs,
	}
}

// MockTool is a tool that returns canned responses for testing.
type MockTool struct {
	name        string
	description string
	schema      map[string]interface{}
	response    *Result
	delay       time.Duration
}

// NewMockTool creates a canned-response tool. Scenario tool_responses
// are installed over the real tools through this constructor.
func NewMockTool(name, description string, schema map[string]interface{}, response *Result, delay time.Duration) *MockTool {
	if schema == nil {
		schema = map[string]interface{}{
			"type":       "object",
			"properties": map[string]interface{}{},
		}
	}
	return &MockTool{
		name:        name,
		description: description,
		schema:      schema,
		response:    response,
		delay:       delay,
	}
}

func (t *MockTool) Name() string                        { return t.name }
func (t *MockTool) Description() string                 { return t.description }
func (t *MockTool) InputSchema() map[string]interface{} { return t.schema }

// Execute waits out the configured delay, then returns a copy of the
// canned response.
func (t *MockTool) Execute(ctx context.Context, input json.RawMessage) (*Result, error) {
	if t.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(t.delay):
		}
	}

	if t.response == nil {
		return &Result{
			Success: true,
			Summary: fmt.Sprintf("Mock response for %s", t.name),
			Data:    map[string]interface{}{"mock": true},
		}, nil
	}
	return &Result{
		Success:         t.response.Success,
		Data:            t.response.Data,
		Error:           t.response.Error,
		Summary:         t.response.Summary,
		ExecutionTimeMs: t.delay.Milliseconds(),
	}, nil
}

// incidentArgsSchema builds the argument schema shared by the diagnosis
// tools: a required incident_id plus optional string arguments.
func incidentArgsSchema(optional ...string) map[string]interface{} {
	props := map[string]interface{}{
		"incident_id": map[string]interface{}{"type": "string"},
	}
	for _, name := range optional {
		props[name] = map[string]interface{}{"type": "string"}
	}
	return map[string]interface{}{
		"type":       "object",
		"required":   []string{"incident_id"},
		"properties": props,
	}
}

// cannedDiagnosisTools returns mock versions of the five diagnosis
// tools, shaped after a real run against the inc-db-5001 fixtures.
func cannedDiagnosisTools() []*MockTool {
	const delay = 300 * time.Millisecond

	return []*MockTool{
		NewMockTool(
			"route_symptoms",
			"Route incident symptoms to specialist diagnostic agents",
			incidentArgsSchema(),
			&Result{
				Success: true,
				Summary: "Routed symptoms to 2 specialist agents",
				Data: map[string]interface{}{
					"incident_id":     "inc-db-5001",
					"selected_agents": []string{"logs_agent", "metrics_agent"},
					"symptom_count":   6,
				},
			},
			delay,
		),
		NewMockTool(
			"get_observability_context",
			"Retrieve raw log and metric fixtures for an incident",
			incidentArgsSchema("section"),
			&Result{
				Success: true,
				Summary: "Retrieved 4 log categories and 3 metric categories",
				Data: map[string]interface{}{
					"logs": map[string]interface{}{
						"application": map[string]interface{}{
							"entries": []string{"Timeout acquiring database connection from pool after 5000ms"},
						},
					},
					"metrics": map[string]interface{}{
						"database": map[string]interface{}{
							"active_connections": []interface{}{88, 97, 100},
						},
					},
				},
			},
			delay,
		),
		NewMockTool(
			"analyze_logs",
			"Run forensic signal extraction over incident log fixtures",
			incidentArgsSchema(),
			&Result{
				Success: true,
				Summary: "Forensic analysis fired 4 of 4 log signals",
				Data: map[string]interface{}{
					"agent":       "logs_agent",
					"incident_id": "inc-db-5001",
					"findings": []string{
						"Application experienced database timeouts",
						"Retry storms detected in application logs",
						"Database rejected connections due to connection limit",
						"Circuit breakers activated under load",
					},
					"evidence": map[string]interface{}{
						"timeouts":              true,
						"retry_storms":          true,
						"connection_exhaustion": true,
						"circuit_breaker":       true,
					},
					"hypothesis": "Log patterns indicate downstream database connection saturation triggering retries and circuit breaker activation",
					"confidence": 0.93,
				},
			},
			delay,
		),
		NewMockTool(
			"analyze_metrics",
			"Run telemetry signal extraction over incident metric fixtures",
			incidentArgsSchema(),
			&Result{
				Success: true,
				Summary: "Telemetry analysis fired 4 of 4 metric signals",
				Data: map[string]interface{}{
					"agent":       "metrics_agent",
					"incident_id": "inc-db-5001",
					"findings": []string{
						"Database active connections reached maximum capacity",
						"Application autoscaled rapidly under traffic spike",
						"Latency increased in correlation with load and saturation",
						"Database CPU remained underutilized during incident",
					},
					"evidence": map[string]interface{}{
						"db_connection_saturation": true,
						"autoscaling_event":        true,
						"latency_spike":            true,
						"cpu_not_bottleneck":       true,
					},
					"hypothesis": "Metrics indicate database capacity constrained by connection limits rather than compute resources, amplified by application autoscaling",
					"confidence": 0.91,
				},
			},
			delay,
		),
		NewMockTool(
			"synthesize_verdict",
			"Synthesize the final verdict from collected findings",
			incidentArgsSchema(),
			&Result{
				Success: true,
				Summary: "Root cause identified with confidence 0.92",
				Data: map[string]interface{}{
					"incident_id": "inc-db-5001",
					"severity":    "SEV-1",
					"root_cause":  "Database connection pool exhaustion caused by application scaling without corresponding database capacity",
					"failure_summary": []string{
						"Database max_connections limit exceeded",
						"Retry storms amplified database pressure",
						"Application autoscaled without database capacity alignment",
					},
					"recommended_actions": map[string]interface{}{
						"immediate":  []string{"Increase database max_connections temporarily"},
						"short_term": []string{"Reduce application replica count"},
						"long_term": []string{
							"Introduce centralized connection pooling",
							"Implement capacity-aware autoscaling",
							"Add read replicas or shard database workload",
						},
					},
					"confidence": 0.92,
				},
			},
			delay,
		),
	}
}
