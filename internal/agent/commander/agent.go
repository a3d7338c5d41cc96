package commander

import (
	"google.golang.org/adk/agent"
	"google.golang.org/adk/agent/llmagent"
	"google.golang.org/adk/model"

	"github.com/incidentlab/responder/internal/agent/forensics"
	"github.com/incidentlab/responder/internal/agent/telemetry"
	"github.com/incidentlab/responder/internal/agent/tools"
)

// AgentName is the name of the Incident Commander.
const AgentName = "incident_commander"

// AgentDescription is the description of the Incident Commander.
const AgentDescription = "Commands the incident investigation. Routes symptoms to specialist agents, collects their findings and issues the authoritative verdict."

// New creates the Incident Commander with its specialist sub-agents.
//
// The commander:
// 1. Routes the reported symptoms via route_symptoms
// 2. Transfers to each selected specialist in turn
// 3. Synthesizes the verdict from the collected findings
//
// ADK creates the transfer_to_agent tool for the sub-agents automatically.
func New(llm model.LLM, registry *tools.Registry) (agent.Agent, error) {
	forensicsAgent, err := forensics.New(llm, registry)
	if err != nil {
		return nil, err
	}

	telemetryAgent, err := telemetry.New(llm, registry)
	if err != nil {
		return nil, err
	}

	agentTools, err := tools.WrapTools(registry, "route_symptoms", "synthesize_verdict")
	if err != nil {
		return nil, err
	}

	return llmagent.New(llmagent.Config{
		Name:        AgentName,
		Description: AgentDescription,
		Model:       llm,
		Instruction: SystemPrompt,
		Tools:       agentTools,
		SubAgents: []agent.Agent{
			forensicsAgent,
			telemetryAgent,
		},
		// Include conversation history for multi-turn interactions
		IncludeContents: llmagent.IncludeContentsDefault,
	})
}
