package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/incidentlab/responder/internal/diagnosis"
	"github.com/incidentlab/responder/internal/incident"
	"github.com/incidentlab/responder/internal/mockdata"
)

// =============================================================================
// Diagnosis Tools
// =============================================================================

// RouteSymptomsTool maps an incident's expected symptoms to the
// specialist agents that should investigate.
type RouteSymptomsTool struct {
	store    *mockdata.Store
	selector *diagnosis.Selector
}

func NewRouteSymptomsTool(store *mockdata.Store) *RouteSymptomsTool {
	return &RouteSymptomsTool{
		store:    store,
		selector: diagnosis.NewSelector(),
	}
}

func (t *RouteSymptomsTool) Name() string { return "route_symptoms" }

func (t *RouteSymptomsTool) Description() string {
	return `Route incident symptoms to the specialist diagnostic agents best suited to investigate them.

Use this tool FIRST, before delegating any investigation. It matches the
incident's expected symptom profile against each specialist's keyword
vocabulary and returns the agents you should transfer to.

Use this tool to:
- Decide which specialists to involve in an investigation
- Avoid delegating to agents whose expertise does not match the symptoms

Input:
- incident_id: Identifier of the incident to route (required)
- symptoms (optional): Override symptom map {subsystem: [phrases]} instead of the fixture profile`
}

func (t *RouteSymptomsTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":     "object",
		"required": []string{"incident_id"},
		"properties": map[string]interface{}{
			"incident_id": map[string]interface{}{
				"type":        "string",
				"description": "Identifier of the incident to route",
			},
			"symptoms": map[string]interface{}{
				"type":        "object",
				"description": "Optional symptom override: subsystem name to list of symptom phrases",
			},
		},
	}
}

func (t *RouteSymptomsTool) Execute(ctx context.Context, input json.RawMessage) (*Result, error) {
	var params struct {
		IncidentID string              `json:"incident_id"`
		Symptoms   map[string][]string `json:"symptoms"`
	}
	if err := json.Unmarshal(input, &params); err != nil {
		return &Result{Success: false, Error: fmt.Sprintf("invalid input: %v", err)}, nil
	}

	inc, err := t.store.LoadIncident(params.IncidentID)
	if err != nil {
		return &Result{Success: false, Error: err.Error()}, nil
	}
	if len(params.Symptoms) > 0 {
		inc.ExpectedSymptoms = params.Symptoms
	}

	roles, err := t.selector.SelectAgents(*inc)
	if err != nil {
		return &Result{Success: false, Error: err.Error()}, nil
	}

	names := make([]string, len(roles))
	for i, role := range roles {
		names[i] = string(role)
	}
	symptomCount := 0
	for _, phrases := range inc.ExpectedSymptoms {
		symptomCount += len(phrases)
	}

	summary := "No specialist agent matched the reported symptoms"
	if len(names) > 0 {
		summary = fmt.Sprintf("Routed symptoms to %d specialist agents: %s", len(names), strings.Join(names, ", "))
	}

	return &Result{
		Success: true,
		Summary: summary,
		Data: map[string]interface{}{
			"incident_id":     inc.ID,
			"selected_agents": names,
			"symptom_count":   symptomCount,
		},
	}, nil
}

// ObservabilityContextTool exposes the raw log and metric fixtures for
// an incident so agents can cite concrete evidence.
type ObservabilityContextTool struct {
	store *mockdata.Store
}

func NewObservabilityContextTool(store *mockdata.Store) *ObservabilityContextTool {
	return &ObservabilityContextTool{store: store}
}

func (t *ObservabilityContextTool) Name() string { return "get_observability_context" }

func (t *ObservabilityContextTool) Description() string {
	return `Retrieve the raw observability data recorded for an incident: logs grouped by
category (high_level, application, database, infrastructure) and metrics grouped
by category (application, database, infrastructure).

Use this tool to:
- Inspect the evidence behind a finding
- Quote concrete log lines or metric values in your analysis

Input:
- incident_id: Identifier of the incident (required)
- section (optional): "logs", "metrics", or "all" (default: "all")`
}

func (t *ObservabilityContextTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":     "object",
		"required": []string{"incident_id"},
		"properties": map[string]interface{}{
			"incident_id": map[string]interface{}{
				"type":        "string",
				"description": "Identifier of the incident",
			},
			"section": map[string]interface{}{
				"type":        "string",
				"description": "Which half of the context to return: logs, metrics, or all (default)",
			},
		},
	}
}

func (t *ObservabilityContextTool) Execute(ctx context.Context, input json.RawMessage) (*Result, error) {
	var params struct {
		IncidentID string `json:"incident_id"`
		Section    string `json:"section"`
	}
	if err := json.Unmarshal(input, &params); err != nil {
		return &Result{Success: false, Error: fmt.Sprintf("invalid input: %v", err)}, nil
	}

	obs, err := t.store.LoadContext(params.IncidentID)
	if err != nil {
		return &Result{Success: false, Error: err.Error()}, nil
	}

	data := make(map[string]interface{}, 2)
	switch params.Section {
	case "logs":
		data["logs"] = obs.Logs
	case "metrics":
		data["metrics"] = obs.Metrics
	case "", "all":
		data["logs"] = obs.Logs
		data["metrics"] = obs.Metrics
	default:
		return &Result{Success: false, Error: fmt.Sprintf("unknown section %q (expected logs, metrics, or all)", params.Section)}, nil
	}

	return &Result{
		Success: true,
		Summary: fmt.Sprintf("Retrieved %d log categories and %d metric categories", len(obs.Logs), len(obs.Metrics)),
		Data:    data,
	}, nil
}

// AnalyzeLogsTool runs the forensic log extractor over an incident's log
// fixtures and records the resulting findings.
type AnalyzeLogsTool struct {
	store     *mockdata.Store
	collector *Collector
	extractor *diagnosis.Extractor
}

func NewAnalyzeLogsTool(store *mockdata.Store, collector *Collector) *AnalyzeLogsTool {
	return &AnalyzeLogsTool{
		store:     store,
		collector: collector,
		extractor: diagnosis.NewLogExtractor(),
	}
}

func (t *AnalyzeLogsTool) Name() string { return "analyze_logs" }

func (t *AnalyzeLogsTool) Description() string {
	return `Run forensic signal extraction over an incident's log fixtures. Scans all log
categories for failure signatures (timeouts, retry storms, connection exhaustion,
circuit breaker activation) and produces a structured findings record with
evidence flags, a hypothesis, and a confidence score.

Use this tool when:
- You are the logs specialist and have been asked to investigate
- You need structured evidence of what the application and database logs show

Input:
- incident_id: Identifier of the incident to analyze (required)`
}

func (t *AnalyzeLogsTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":     "object",
		"required": []string{"incident_id"},
		"properties": map[string]interface{}{
			"incident_id": map[string]interface{}{
				"type":        "string",
				"description": "Identifier of the incident to analyze",
			},
		},
	}
}

func (t *AnalyzeLogsTool) Execute(ctx context.Context, input json.RawMessage) (*Result, error) {
	var params struct {
		IncidentID string `json:"incident_id"`
	}
	if err := json.Unmarshal(input, &params); err != nil {
		return &Result{Success: false, Error: fmt.Sprintf("invalid input: %v", err)}, nil
	}

	obs, err := t.store.LoadContext(params.IncidentID)
	if err != nil {
		return &Result{Success: false, Error: err.Error()}, nil
	}

	record := t.extractor.Extract(params.IncidentID, obs.Logs)
	t.collector.Record(record)

	return &Result{
		Success: true,
		Summary: fmt.Sprintf("Forensic analysis extracted %d findings from incident logs", len(record.Findings)),
		Data:    record,
	}, nil
}

// AnalyzeMetricsTool runs the telemetry extractor over an incident's
// metric fixtures and records the resulting findings.
type AnalyzeMetricsTool struct {
	store     *mockdata.Store
	collector *Collector
	extractor *diagnosis.Extractor
}

func NewAnalyzeMetricsTool(store *mockdata.Store, collector *Collector) *AnalyzeMetricsTool {
	return &AnalyzeMetricsTool{
		store:     store,
		collector: collector,
		extractor: diagnosis.NewMetricExtractor(),
	}
}

func (t *AnalyzeMetricsTool) Name() string { return "analyze_metrics" }

func (t *AnalyzeMetricsTool) Description() string {
	return `Run telemetry signal extraction over an incident's metric fixtures. Scans all
metric categories for capacity signatures (connection saturation, autoscaling
events, latency spikes, CPU headroom) and produces a structured findings record
with evidence flags, a hypothesis, and a confidence score.

Use this tool when:
- You are the metrics specialist and have been asked to investigate
- You need structured evidence of what the telemetry shows

Input:
- incident_id: Identifier of the incident to analyze (required)`
}

func (t *AnalyzeMetricsTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":     "object",
		"required": []string{"incident_id"},
		"properties": map[string]interface{}{
			"incident_id": map[string]interface{}{
				"type":        "string",
				"description": "Identifier of the incident to analyze",
			},
		},
	}
}

func (t *AnalyzeMetricsTool) Execute(ctx context.Context, input json.RawMessage) (*Result, error) {
	var params struct {
		IncidentID string `json:"incident_id"`
	}
	if err := json.Unmarshal(input, &params); err != nil {
		return &Result{Success: false, Error: fmt.Sprintf("invalid input: %v", err)}, nil
	}

	obs, err := t.store.LoadContext(params.IncidentID)
	if err != nil {
		return &Result{Success: false, Error: err.Error()}, nil
	}

	record := t.extractor.Extract(params.IncidentID, obs.Metrics)
	t.collector.Record(record)

	return &Result{
		Success: true,
		Summary: fmt.Sprintf("Telemetry analysis extracted %d findings from incident metrics", len(record.Findings)),
		Data:    record,
	}, nil
}

// SynthesizeVerdictTool combines collected findings into the final
// verdict. Reserved for the commander.
type SynthesizeVerdictTool struct {
	store       *mockdata.Store
	collector   *Collector
	selector    *diagnosis.Selector
	synthesizer *diagnosis.Synthesizer
}

func NewSynthesizeVerdictTool(store *mockdata.Store, collector *Collector) *SynthesizeVerdictTool {
	return &SynthesizeVerdictTool{
		store:       store,
		collector:   collector,
		selector:    diagnosis.NewSelector(),
		synthesizer: diagnosis.NewSynthesizer(),
	}
}

func (t *SynthesizeVerdictTool) Name() string { return "synthesize_verdict" }

func (t *SynthesizeVerdictTool) Description() string {
	return `Synthesize the final incident verdict from the specialists' findings: the single
authoritative root cause, the contributing-factor summary, and the tiered
remediation plan (immediate, short_term, long_term).

Call this tool LAST, after every routed specialist has reported. Findings
recorded by analyze_logs and analyze_metrics in this session are used
automatically; a specialist that produced nothing contributes an empty record
so the verdict can still be synthesized (possibly as Undetermined).

Input:
- incident_id: Identifier of the incident to conclude (required)
- findings (optional): Explicit findings records to synthesize instead of the session's collected ones`
}

func (t *SynthesizeVerdictTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":     "object",
		"required": []string{"incident_id"},
		"properties": map[string]interface{}{
			"incident_id": map[string]interface{}{
				"type":        "string",
				"description": "Identifier of the incident to conclude",
			},
			"findings": map[string]interface{}{
				"type":        "array",
				"description": "Optional explicit findings records (agent, findings, evidence, hypothesis, confidence)",
				"items":       map[string]interface{}{"type": "object"},
			},
		},
	}
}

func (t *SynthesizeVerdictTool) Execute(ctx context.Context, input json.RawMessage) (*Result, error) {
	var params struct {
		IncidentID string                    `json:"incident_id"`
		Findings   []incident.FindingsRecord `json:"findings"`
	}
	if err := json.Unmarshal(input, &params); err != nil {
		return &Result{Success: false, Error: fmt.Sprintf("invalid input: %v", err)}, nil
	}

	inc, err := t.store.LoadIncident(params.IncidentID)
	if err != nil {
		return &Result{Success: false, Error: err.Error()}, nil
	}

	records := params.Findings
	if len(records) == 0 {
		records = t.collector.Records()
	}

	// Every selected role contributes a record, empty if it never reported.
	roles, err := t.selector.SelectAgents(*inc)
	if err != nil {
		return &Result{Success: false, Error: err.Error()}, nil
	}
	have := make(map[incident.Role]bool, len(records))
	for _, rec := range records {
		have[rec.Agent] = true
	}
	for _, role := range roles {
		if !have[role] {
			records = append(records, incident.EmptyFindings(role, inc.ID))
		}
	}

	verdict, err := t.synthesizer.Synthesize(*inc, records)
	if err != nil {
		return &Result{Success: false, Error: err.Error()}, nil
	}
	t.collector.SetVerdict(verdict)

	summary := fmt.Sprintf("Root cause identified with confidence %.2f", verdict.Confidence)
	if verdict.Undetermined() {
		summary = "Root cause undetermined: no synthesis rule matched the findings"
	}

	return &Result{
		Success: true,
		Summary: summary,
		Data:    verdict,
	}, nil
}
