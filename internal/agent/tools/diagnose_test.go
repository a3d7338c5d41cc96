package tools

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/incidentlab/responder/internal/incident"
	"github.com/incidentlab/responder/internal/mockdata"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	dir := t.TempDir()
	if err := mockdata.WriteDemoData(dir); err != nil {
		t.Fatalf("WriteDemoData: %v", err)
	}
	store, err := mockdata.NewStore(mockdata.StoreConfig{Dir: dir})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return NewRegistry(Dependencies{Data: store})
}

func TestRouteSymptoms_SelectsSpecialists(t *testing.T) {
	reg := newTestRegistry(t)

	result := reg.Execute(context.Background(), "route_symptoms",
		json.RawMessage(`{"incident_id": "inc-db-5001"}`))
	if !result.Success {
		t.Fatalf("expected success, got error: %s", result.Error)
	}

	data, ok := result.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("expected map data, got %T", result.Data)
	}
	agents, ok := data["selected_agents"].([]string)
	if !ok {
		t.Fatalf("expected []string selected_agents, got %T", data["selected_agents"])
	}
	if len(agents) != 2 || agents[0] != "logs_agent" || agents[1] != "metrics_agent" {
		t.Errorf("expected [logs_agent metrics_agent], got %v", agents)
	}
	if data["symptom_count"] != 6 {
		t.Errorf("expected symptom_count 6, got %v", data["symptom_count"])
	}
	if !strings.Contains(result.Summary, "2 specialist agents") {
		t.Errorf("unexpected summary: %s", result.Summary)
	}
}

func TestRouteSymptoms_SymptomOverride(t *testing.T) {
	reg := newTestRegistry(t)

	result := reg.Execute(context.Background(), "route_symptoms",
		json.RawMessage(`{"incident_id": "inc-db-5001", "symptoms": {"release": ["bad deployment config"]}}`))
	if !result.Success {
		t.Fatalf("expected success, got error: %s", result.Error)
	}

	data := result.Data.(map[string]interface{})
	agents := data["selected_agents"].([]string)
	if len(agents) != 1 || agents[0] != "deploy_intelligence_agent" {
		t.Errorf("expected [deploy_intelligence_agent], got %v", agents)
	}
	if data["symptom_count"] != 1 {
		t.Errorf("expected symptom_count 1, got %v", data["symptom_count"])
	}
}

func TestRouteSymptoms_UnknownIncident(t *testing.T) {
	reg := newTestRegistry(t)

	result := reg.Execute(context.Background(), "route_symptoms",
		json.RawMessage(`{"incident_id": "inc-missing"}`))
	if result.Success {
		t.Fatal("expected failure for unknown incident")
	}
	if result.Error == "" {
		t.Error("expected error message")
	}
}

func TestObservabilityContext_Sections(t *testing.T) {
	reg := newTestRegistry(t)
	ctx := context.Background()

	result := reg.Execute(ctx, "get_observability_context",
		json.RawMessage(`{"incident_id": "inc-db-5001", "section": "logs"}`))
	if !result.Success {
		t.Fatalf("expected success, got error: %s", result.Error)
	}
	data := result.Data.(map[string]interface{})
	if _, ok := data["logs"]; !ok {
		t.Error("expected logs section")
	}
	if _, ok := data["metrics"]; ok {
		t.Error("did not expect metrics section when section=logs")
	}

	result = reg.Execute(ctx, "get_observability_context",
		json.RawMessage(`{"incident_id": "inc-db-5001"}`))
	if !result.Success {
		t.Fatalf("expected success, got error: %s", result.Error)
	}
	data = result.Data.(map[string]interface{})
	if _, ok := data["logs"]; !ok {
		t.Error("expected logs in full context")
	}
	if _, ok := data["metrics"]; !ok {
		t.Error("expected metrics in full context")
	}

	result = reg.Execute(ctx, "get_observability_context",
		json.RawMessage(`{"incident_id": "inc-db-5001", "section": "traces"}`))
	if result.Success {
		t.Error("expected failure for unknown section")
	}
}

func TestAnalyzeLogs_RecordsFindings(t *testing.T) {
	reg := newTestRegistry(t)

	result := reg.Execute(context.Background(), "analyze_logs",
		json.RawMessage(`{"incident_id": "inc-db-5001"}`))
	if !result.Success {
		t.Fatalf("expected success, got error: %s", result.Error)
	}

	record, ok := result.Data.(incident.FindingsRecord)
	if !ok {
		t.Fatalf("expected FindingsRecord data, got %T", result.Data)
	}
	if record.Agent != incident.RoleLogs {
		t.Errorf("expected agent logs_agent, got %s", record.Agent)
	}
	if len(record.Findings) != 4 {
		t.Fatalf("expected 4 findings, got %d: %v", len(record.Findings), record.Findings)
	}
	if record.Findings[0] != "Application experienced database timeouts" {
		t.Errorf("unexpected first finding: %s", record.Findings[0])
	}
	for _, flag := range []string{"timeouts", "retry_storms", "connection_exhaustion", "circuit_breaker"} {
		if !record.Evidence[flag] {
			t.Errorf("expected evidence flag %s", flag)
		}
	}
	if record.Confidence != 0.93 {
		t.Errorf("expected confidence 0.93, got %v", record.Confidence)
	}

	if !reg.Collector().HasRecord(incident.RoleLogs) {
		t.Error("expected collector to hold the logs record")
	}
}

func TestAnalyzeMetrics_RecordsFindings(t *testing.T) {
	reg := newTestRegistry(t)

	result := reg.Execute(context.Background(), "analyze_metrics",
		json.RawMessage(`{"incident_id": "inc-db-5001"}`))
	if !result.Success {
		t.Fatalf("expected success, got error: %s", result.Error)
	}

	record, ok := result.Data.(incident.FindingsRecord)
	if !ok {
		t.Fatalf("expected FindingsRecord data, got %T", result.Data)
	}
	if record.Agent != incident.RoleMetrics {
		t.Errorf("expected agent metrics_agent, got %s", record.Agent)
	}
	if len(record.Findings) != 4 {
		t.Fatalf("expected 4 findings, got %d: %v", len(record.Findings), record.Findings)
	}
	for _, flag := range []string{"db_connection_saturation", "autoscaling_event", "latency_spike", "cpu_not_bottleneck"} {
		if !record.Evidence[flag] {
			t.Errorf("expected evidence flag %s", flag)
		}
	}
	if record.Confidence != 0.91 {
		t.Errorf("expected confidence 0.91, got %v", record.Confidence)
	}

	if !reg.Collector().HasRecord(incident.RoleMetrics) {
		t.Error("expected collector to hold the metrics record")
	}
}

func TestSynthesizeVerdict_FromCollectedFindings(t *testing.T) {
	reg := newTestRegistry(t)
	ctx := context.Background()

	for _, name := range []string{"analyze_logs", "analyze_metrics"} {
		result := reg.Execute(ctx, name, json.RawMessage(`{"incident_id": "inc-db-5001"}`))
		if !result.Success {
			t.Fatalf("%s failed: %s", name, result.Error)
		}
	}

	result := reg.Execute(ctx, "synthesize_verdict",
		json.RawMessage(`{"incident_id": "inc-db-5001"}`))
	if !result.Success {
		t.Fatalf("expected success, got error: %s", result.Error)
	}

	verdict, ok := result.Data.(incident.Verdict)
	if !ok {
		t.Fatalf("expected Verdict data, got %T", result.Data)
	}
	if verdict.RootCause != "Database connection pool exhaustion caused by application scaling without corresponding database capacity" {
		t.Errorf("unexpected root cause: %s", verdict.RootCause)
	}
	if len(verdict.FailureSummary) != 3 {
		t.Errorf("expected 3 failure summary entries, got %v", verdict.FailureSummary)
	}
	if len(verdict.RecommendedActions.Immediate) != 1 ||
		verdict.RecommendedActions.Immediate[0] != "Increase database max_connections temporarily" {
		t.Errorf("unexpected immediate actions: %v", verdict.RecommendedActions.Immediate)
	}
	if len(verdict.RecommendedActions.ShortTerm) != 1 ||
		verdict.RecommendedActions.ShortTerm[0] != "Reduce application replica count" {
		t.Errorf("unexpected short-term actions: %v", verdict.RecommendedActions.ShortTerm)
	}
	if len(verdict.RecommendedActions.LongTerm) != 3 {
		t.Errorf("expected 3 long-term actions, got %v", verdict.RecommendedActions.LongTerm)
	}
	if verdict.Confidence != 0.92 {
		t.Errorf("expected confidence 0.92, got %v", verdict.Confidence)
	}
	if !strings.Contains(result.Summary, "0.92") {
		t.Errorf("unexpected summary: %s", result.Summary)
	}

	stored, ok := reg.Collector().Verdict()
	if !ok {
		t.Fatal("expected collector to hold the verdict")
	}
	if stored.RootCause != verdict.RootCause {
		t.Error("collector verdict differs from returned verdict")
	}
}

func TestSynthesizeVerdict_EmptySessionIsUndetermined(t *testing.T) {
	reg := newTestRegistry(t)

	result := reg.Execute(context.Background(), "synthesize_verdict",
		json.RawMessage(`{"incident_id": "inc-db-5001"}`))
	if !result.Success {
		t.Fatalf("expected success, got error: %s", result.Error)
	}

	verdict := result.Data.(incident.Verdict)
	if !verdict.Undetermined() {
		t.Errorf("expected undetermined verdict, got root cause %q", verdict.RootCause)
	}
	if len(verdict.FailureSummary) != 0 {
		t.Errorf("expected no failure summary, got %v", verdict.FailureSummary)
	}
	if len(verdict.RecommendedActions.LongTerm) != 3 {
		t.Errorf("expected long-term baseline to survive, got %v", verdict.RecommendedActions.LongTerm)
	}
	if !strings.Contains(result.Summary, "undetermined") {
		t.Errorf("unexpected summary: %s", result.Summary)
	}
}

func TestSynthesizeVerdict_ExplicitFindings(t *testing.T) {
	reg := newTestRegistry(t)

	input := `{
		"incident_id": "inc-db-5001",
		"findings": [{
			"agent": "deploy_intelligence_agent",
			"incident_id": "inc-db-5001",
			"findings": ["Configuration deployment preceded the incident"],
			"evidence": {"config_change": true},
			"confidence": 0.8
		}]
	}`
	result := reg.Execute(context.Background(), "synthesize_verdict", json.RawMessage(input))
	if !result.Success {
		t.Fatalf("expected success, got error: %s", result.Error)
	}

	verdict := result.Data.(incident.Verdict)
	found := false
	for _, action := range verdict.RecommendedActions.Immediate {
		if action == "Rollback recent configuration deployment" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected rollback action from config evidence, got %v", verdict.RecommendedActions.Immediate)
	}
}

func TestDiagnosisTools_InvalidInput(t *testing.T) {
	reg := newTestRegistry(t)
	ctx := context.Background()

	for _, name := range []string{"route_symptoms", "get_observability_context", "analyze_logs", "analyze_metrics", "synthesize_verdict"} {
		result := reg.Execute(ctx, name, json.RawMessage(`{not json`))
		if result.Success {
			t.Errorf("%s: expected failure for malformed input", name)
		}
		if !strings.Contains(result.Error, "invalid input") {
			t.Errorf("%s: unexpected error %q", name, result.Error)
		}
	}
}
