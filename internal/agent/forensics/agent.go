package forensics

import (
	"google.golang.org/adk/agent"
	"google.golang.org/adk/agent/llmagent"
	"google.golang.org/adk/model"

	"github.com/incidentlab/responder/internal/agent/tools"
)

// AgentName is the name of the Log Analysis Agent. It matches the role
// the symptom router selects for log-shaped symptoms.
const AgentName = "logs_agent"

// AgentDescription is the description of the Log Analysis Agent for the commander.
const AgentDescription = "Forensic log expert. Extracts timeout, retry, connection and circuit breaker findings from incident logs. Does not analyze metrics."

// New creates a new Log Analysis Agent backed by the given registry.
func New(llm model.LLM, registry *tools.Registry) (agent.Agent, error) {
	agentTools, err := tools.WrapTools(registry, "analyze_logs", "get_observability_context")
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
