package telemetry

import (
	"google.golang.org/adk/agent"
	"google.golang.org/adk/agent/llmagent"
	"google.golang.org/adk/model"

	"github.com/incidentlab/responder/internal/agent/tools"
)

// AgentName is the name of the Metric Analysis Agent. It matches the role
// the symptom router selects for capacity-shaped symptoms.
const AgentName = "metrics_agent"

// AgentDescription is the description of the Metric Analysis Agent for the commander.
const AgentDescription = "Telemetry analyst. Extracts capacity, saturation and scaling findings from incident metrics. Does not analyze logs."

// New creates a new Metric Analysis Agent backed by the given registry.
func New(llm model.LLM, registry *tools.Registry) (agent.Agent, error) {
	agentTools, err := tools.WrapTools(registry, "analyze_metrics", "get_observability_context")
	if err != nil {
		return nil, err
	}

	return llmagent.New(llmagent.Config{
		Name:        AgentName,
		Description: AgentDescription,
		Model:       llm,
		Instruction: SystemPrompt,
		Tools:       agentTools,
		// Include conversation history so the agent sees the commander's briefing
		IncludeContents: llmagent.IncludeContentsDefault,
	})
}
