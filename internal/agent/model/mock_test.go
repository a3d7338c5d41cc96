package model

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"google.golang.org/adk/model"
	"google.golang.org/genai"
)

// fastScenario returns a two-step scenario with millisecond delays so
// tests do not sit in timing sleeps.
func fastScenario() *Scenario {
	return &Scenario{
		Name: "fast-test",
		Settings: ScenarioSettings{
			ThinkingDelayMs: 1,
			ToolDelayMs:     1,
		},
		Steps: []ScenarioStep{
			{
				Trigger: "user_message",
				Text:    "Taking command of the incident.",
				ToolCalls: []MockToolCall{
					{Name: "route_symptoms", Args: map[string]interface{}{"incident_id": "inc-1"}},
				},
			},
			{
				Trigger: "tool_result:route_symptoms",
				Text:    "Routing complete.",
			},
		},
	}
}

func userRequest(text string) *model.LLMRequest {
	return &model.LLMRequest{
		Contents: []*genai.Content{
			{
				Role:  "user",
				Parts: []*genai.Part{{Text: text}},
			},
		},
	}
}

func toolResultRequest(toolName string, response map[string]any) *model.LLMRequest {
	return &model.LLMRequest{
		Contents: []*genai.Content{
			{
				Role: "user",
				Parts: []*genai.Part{
					{FunctionResponse: &genai.FunctionResponse{Name: toolName, Response: response}},
				},
			},
		},
	}
}

func generateOnce(t *testing.T, llm *MockLLM, req *model.LLMRequest) *model.LLMResponse {
	t.Helper()

	var resp *model.LLMResponse
	for r, err := range llm.GenerateContent(context.Background(), req, false) {
		if err != nil {
			t.Fatalf("GenerateContent returned error: %v", err)
		}
		resp = r
	}
	if resp == nil {
		t.Fatal("GenerateContent yielded no response")
	}
	return resp
}

func TestMockLLMScriptedConversation(t *testing.T) {
	llm, err := NewMockLLMFromScenario(fastScenario())
	if err != nil {
		t.Fatalf("NewMockLLMFromScenario failed: %v", err)
	}

	if llm.Name() != "mock:fast-test" {
		t.Errorf("Name() = %q, want %q", llm.Name(), "mock:fast-test")
	}

	// First call: user message triggers the opening step and its tool call.
	resp := generateOnce(t, llm, userRequest("incident inc-1 reported"))
	if resp.Content == nil || len(resp.Content.Parts) != 2 {
		t.Fatalf("expected 2 parts (text + tool call), got %+v", resp.Content)
	}
	if resp.Content.Parts[0].Text != "Taking command of the incident." {
		t.Errorf("unexpected text part: %q", resp.Content.Parts[0].Text)
	}
	call := resp.Content.Parts[1].FunctionCall
	if call == nil || call.Name != "route_symptoms" {
		t.Fatalf("expected route_symptoms call, got %+v", resp.Content.Parts[1])
	}
	if call.Args["incident_id"] != "inc-1" {
		t.Errorf("tool call args = %v, want incident_id inc-1", call.Args)
	}
	if !resp.TurnComplete {
		t.Error("expected TurnComplete")
	}
	if resp.FinishReason != genai.FinishReasonStop {
		t.Errorf("FinishReason = %v, want %v", resp.FinishReason, genai.FinishReasonStop)
	}

	// Second call: tool result for route_symptoms advances to the next step.
	resp = generateOnce(t, llm, toolResultRequest("route_symptoms", map[string]any{"success": true}))
	if len(resp.Content.Parts) != 1 || resp.Content.Parts[0].Text != "Routing complete." {
		t.Fatalf("expected single text part, got %+v", resp.Content.Parts)
	}

	// Third call: scenario is exhausted.
	resp = generateOnce(t, llm, userRequest("anything else"))
	if !strings.Contains(resp.Content.Parts[0].Text, "scenario completed") {
		t.Errorf("expected exhaustion message, got %q", resp.Content.Parts[0].Text)
	}

	log := llm.GetConversationLog()
	if len(log) != 3 {
		t.Fatalf("conversation log has %d entries, want 3", len(log))
	}
	if len(log[0].ToolCalls) != 1 || log[0].ToolCalls[0] != "route_symptoms" {
		t.Errorf("log[0].ToolCalls = %v, want [route_symptoms]", log[0].ToolCalls)
	}
}

func TestMockLLMReset(t *testing.T) {
	llm, err := NewMockLLMFromScenario(fastScenario())
	if err != nil {
		t.Fatalf("NewMockLLMFromScenario failed: %v", err)
	}

	generateOnce(t, llm, userRequest("first run"))
	if llm.matcher.CurrentStepIndex() != 1 {
		t.Fatalf("step index = %d after one call, want 1", llm.matcher.CurrentStepIndex())
	}

	llm.Reset()
	if llm.matcher.CurrentStepIndex() != 0 {
		t.Errorf("step index = %d after Reset, want 0", llm.matcher.CurrentStepIndex())
	}
	if len(llm.GetConversationLog()) != 0 {
		t.Error("conversation log not cleared by Reset")
	}

	// The scenario replays from the top.
	resp := generateOnce(t, llm, userRequest("second run"))
	if resp.Content.Parts[0].Text != "Taking command of the incident." {
		t.Errorf("after Reset, got %q", resp.Content.Parts[0].Text)
	}
}

func TestMockLLMCancelledContext(t *testing.T) {
	scenario := fastScenario()
	scenario.Settings.ThinkingDelayMs = 500

	llm, err := NewMockLLMFromScenario(scenario)
	if err != nil {
		t.Fatalf("NewMockLLMFromScenario failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var gotErr error
	for _, err := range llm.GenerateContent(ctx, userRequest("hello"), false) {
		gotErr = err
	}
	if gotErr == nil {
		t.Fatal("expected error from cancelled context")
	}
}

func TestNewMockLLMFromScenarioRejectsInvalid(t *testing.T) {
	if _, err := NewMockLLMFromScenario(&Scenario{Name: "no-steps"}); err == nil {
		t.Error("expected error for scenario without steps")
	}
	if _, err := NewMockLLMFromScenario(&Scenario{Steps: []ScenarioStep{{Text: "x"}}}); err == nil {
		t.Error("expected error for scenario without a name")
	}
}

func TestLoadScenarioAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "demo.yaml")

	raw := `name: demo
description: scripted run
steps:
  - trigger: user_message
    text: "Starting."
    tool_calls:
      - name: analyze_logs
        args:
          incident_id: inc-1
  - trigger: "tool_result:analyze_logs"
    text: "Done."
    delay_ms: 50
tool_responses:
  analyze_logs:
    success: true
    summary: canned analysis
`
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("writing scenario: %v", err)
	}

	scenario, err := LoadScenario(path)
	if err != nil {
		t.Fatalf("LoadScenario failed: %v", err)
	}

	if scenario.Name != "demo" {
		t.Errorf("Name = %q, want demo", scenario.Name)
	}
	if len(scenario.Steps) != 2 {
		t.Fatalf("got %d steps, want 2", len(scenario.Steps))
	}
	if scenario.Steps[0].ToolCalls[0].Name != "analyze_logs" {
		t.Errorf("tool call name = %q", scenario.Steps[0].ToolCalls[0].Name)
	}
	if got := scenario.Steps[0].ToolCalls[0].Args["incident_id"]; got != "inc-1" {
		t.Errorf("tool call args = %v", scenario.Steps[0].ToolCalls[0].Args)
	}

	// Unset timing falls back to defaults, per-step overrides survive.
	if scenario.Settings.ThinkingDelayMs != DefaultSettings().ThinkingDelayMs {
		t.Errorf("ThinkingDelayMs = %d, want default", scenario.Settings.ThinkingDelayMs)
	}
	if scenario.Settings.ToolDelayMs != DefaultSettings().ToolDelayMs {
		t.Errorf("ToolDelayMs = %d, want default", scenario.Settings.ToolDelayMs)
	}
	if scenario.GetThinkingDelay(1) != 50 {
		t.Errorf("GetThinkingDelay(1) = %d, want 50", scenario.GetThinkingDelay(1))
	}

	resp := scenario.GetToolResponse("analyze_logs")
	if resp == nil || !resp.Success || resp.Summary != "canned analysis" {
		t.Errorf("GetToolResponse = %+v", resp)
	}
	if scenario.GetToolResponse("route_symptoms") != nil {
		t.Error("expected nil for tool without a canned response")
	}
}

func TestLoadScenarioRejectsInvalidFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.yaml")

	raw := `name: broken
steps:
  - trigger: user_message
`
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("writing scenario: %v", err)
	}

	if _, err := LoadScenario(path); err == nil {
		t.Error("expected validation error for step without text or tool_calls")
	}

	if _, err := LoadScenario(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestScenarioValidate(t *testing.T) {
	tests := []struct {
		name     string
		scenario Scenario
		wantErr  bool
	}{
		{
			name:     "valid",
			scenario: Scenario{Name: "ok", Steps: []ScenarioStep{{Text: "hi"}}},
		},
		{
			name:     "missing name",
			scenario: Scenario{Steps: []ScenarioStep{{Text: "hi"}}},
			wantErr:  true,
		},
		{
			name:     "no steps",
			scenario: Scenario{Name: "empty"},
			wantErr:  true,
		},
		{
			name: "tool call without name",
			scenario: Scenario{
				Name:  "bad-tool",
				Steps: []ScenarioStep{{ToolCalls: []MockToolCall{{}}}},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.scenario.Validate()
			if tt.wantErr && err == nil {
				t.Error("expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestStepMatcherTriggers(t *testing.T) {
	m := NewStepMatcher(&Scenario{Name: "t", Steps: []ScenarioStep{{Text: "x"}}})

	tests := []struct {
		trigger string
		content string
		want    bool
	}{
		{"", "anything", true},
		{"user_message", "", true},
		{"tool_result:analyze_logs", `[tool_result:analyze_logs] {"success":true}`, true},
		{"tool_result:analyze_logs", "[tool_result:route_symptoms] {}", false},
		{"contains:Verdict", "the VERDICT is final", true},
		{"contains:verdict", "no match here", false},
		{"database", "Database timeouts observed", true},
	}

	for _, tt := range tests {
		if got := m.matchesTrigger(tt.trigger, tt.content); got != tt.want {
			t.Errorf("matchesTrigger(%q, %q) = %v, want %v", tt.trigger, tt.content, got, tt.want)
		}
	}
}

func TestStepMatcherSequence(t *testing.T) {
	scenario := &Scenario{
		Name: "seq",
		Steps: []ScenarioStep{
			{Trigger: "user_message", Text: "one"},
			{Trigger: "tool_result:alpha", Text: "two"},
			{Text: "three"},
		},
	}
	m := NewStepMatcher(scenario)

	step := m.NextStep("incident reported")
	if step == nil || step.Text != "one" {
		t.Fatalf("first NextStep = %+v, want step one", step)
	}

	// The second step's trigger does not match, and the scan does not
	// fall through to the auto-advance step behind it on this turn.
	if step := m.NextStep("unrelated content"); step == nil || step.Text != "three" {
		t.Fatalf("NextStep on non-matching content = %+v, want fall-through to step three", step)
	}

	// Step two was passed over, so the matcher is exhausted.
	if m.HasMoreSteps() {
		t.Error("expected no more steps after fall-through past final step")
	}
	if step := m.NextStep("[tool_result:alpha] {}"); step != nil {
		t.Errorf("NextStep after exhaustion = %+v, want nil", step)
	}

	m.Reset()
	if m.CurrentStepIndex() != 0 {
		t.Errorf("CurrentStepIndex after Reset = %d, want 0", m.CurrentStepIndex())
	}
	if step := m.NextStep("again"); step == nil || step.Text != "one" {
		t.Errorf("NextStep after Reset = %+v, want step one", step)
	}
}

func TestDemoScenario(t *testing.T) {
	scenario := DemoScenario("inc-db-5001")

	if err := scenario.Validate(); err != nil {
		t.Fatalf("demo scenario invalid: %v", err)
	}
	if len(scenario.Steps) != 9 {
		t.Fatalf("demo scenario has %d steps, want 9", len(scenario.Steps))
	}

	wantCalls := [][]string{
		{"route_symptoms"},
		{"transfer_to_agent"},
		{"analyze_logs"},
		{"transfer_to_agent"},
		{"transfer_to_agent"},
		{"analyze_metrics"},
		{"transfer_to_agent"},
		{"synthesize_verdict"},
		{},
	}
	for i, step := range scenario.Steps {
		var got []string
		for _, tc := range step.ToolCalls {
			got = append(got, tc.Name)
		}
		if len(got) != len(wantCalls[i]) {
			t.Errorf("step %d tool calls = %v, want %v", i, got, wantCalls[i])
			continue
		}
		for j := range got {
			if got[j] != wantCalls[i][j] {
				t.Errorf("step %d tool calls = %v, want %v", i, got, wantCalls[i])
			}
		}
	}

	final := scenario.Steps[len(scenario.Steps)-1]
	if !strings.Contains(final.Text, "inc-db-5001") {
		t.Error("final report does not name the incident")
	}
	if !strings.Contains(final.Text, "Root cause") {
		t.Error("final report does not state the root cause")
	}
	if !strings.Contains(final.Text, "connection pool exhaustion") {
		t.Error("final report does not name the exhaustion failure")
	}
}
