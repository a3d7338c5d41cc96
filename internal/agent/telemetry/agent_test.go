package telemetry

import (
	"strings"
	"testing"

	"github.com/incidentlab/responder/internal/agent/model"
	"github.com/incidentlab/responder/internal/agent/tools"
	"github.com/incidentlab/responder/internal/incident"
)

func TestNew(t *testing.T) {
	llm, err := model.NewMockLLMFromScenario(model.DemoScenario("inc-test"))
	if err != nil {
		t.Fatalf("failed to create mock LLM: %v", err)
	}

	a, err := New(llm, tools.NewMockRegistry())
	if err != nil {
		t.Fatalf("failed to create agent: %v", err)
	}
	if a == nil {
		t.Fatal("expected non-nil agent")
	}
}

func TestNew_MissingTools(t *testing.T) {
	llm, err := model.NewMockLLMFromScenario(model.DemoScenario("inc-test"))
	if err != nil {
		t.Fatalf("failed to create mock LLM: %v", err)
	}

	if _, err := New(llm, tools.NewRegistry(tools.Dependencies{})); err == nil {
		t.Error("expected error when analyze_metrics is not registered")
	}
}

func TestAgentNameMatchesRole(t *testing.T) {
	if AgentName != string(incident.RoleMetrics) {
		t.Errorf("AgentName = %q, want %q", AgentName, incident.RoleMetrics)
	}
}

func TestSystemPrompt(t *testing.T) {
	for _, want := range []string{"analyze_metrics", "get_observability_context", "transfer_to_agent", "NEVER analyze logs", "capacity, saturation, and scaling"} {
		if !strings.Contains(SystemPrompt, want) {
			t.Errorf("system prompt does not mention %q", want)
		}
	}
}
