package runner

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/incidentlab/responder/internal/incident"
	"github.com/incidentlab/responder/internal/mockdata"
)

// buildBriefing assembles the commander's opening message for one
// incident: identity fields, reference topology and scenario context,
// the raw observability payloads and the investigation contract. The
// raw data is included so the commander can brief the specialists, not
// so it can analyze anything itself.
func buildBriefing(store *mockdata.Store, inc *incident.Incident) (string, error) {
	topology, err := store.LoadTopology()
	if err != nil {
		return "", fmt.Errorf("failed to load topology: %w", err)
	}
	scenario, err := store.LoadScenario(inc.ID)
	if err != nil {
		return "", fmt.Errorf("failed to load scenario: %w", err)
	}
	obs, err := store.LoadContext(inc.ID)
	if err != nil {
		return "", fmt.Errorf("failed to load observability context: %w", err)
	}

	topologyJSON, err := json.MarshalIndent(topology, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode topology: %w", err)
	}
	scenarioJSON, err := json.MarshalIndent(map[string]any{
		"incident_id":       scenario.IncidentID,
		"title":             scenario.Title,
		"category":          scenario.Category,
		"severity":          scenario.Severity,
		"environment":       scenario.Environment,
		"started_at":        scenario.StartedAt.Format(time.RFC3339),
		"affected_services": scenario.AffectedServices,
		"expected_symptoms": scenario.ExpectedSymptoms,
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode scenario: %w", err)
	}
	logsJSON, err := json.MarshalIndent(obs.Logs, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode logs: %w", err)
	}
	metricsJSON, err := json.MarshalIndent(obs.Metrics, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode metrics: %w", err)
	}

	var b strings.Builder

	b.WriteString("SYSTEM CONTEXT:\n")
	b.WriteString("You are the Commander Agent in an autonomous first responder system.\n")
	b.WriteString("You coordinate the investigation and reason ONLY over agent findings.\n")
	b.WriteString("DO NOT analyze raw logs or metrics directly.\n\n")

	b.WriteString("INCIDENT DETAILS:\n")
	fmt.Fprintf(&b, "- Incident ID: %s\n", inc.ID)
	fmt.Fprintf(&b, "- Severity: %s\n", inc.Severity)
	fmt.Fprintf(&b, "- Environment: %s\n\n", scenario.Environment)

	fmt.Fprintf(&b, "TOPOLOGY (REFERENCE ONLY):\n%s\n\n", topologyJSON)
	fmt.Fprintf(&b, "SCENARIO CONTEXT (REFERENCE ONLY):\n%s\n\n", scenarioJSON)

	b.WriteString("OBSERVABILITY DATA (FOR AGENT CONTEXT, NOT FOR DIRECT ANALYSIS):\n\n")
	fmt.Fprintf(&b, "LOGS:\n%s\n\n", logsJSON)
	fmt.Fprintf(&b, "METRICS:\n%s\n\n", metricsJSON)

	b.WriteString("AVAILABLE AGENTS:\n")
	b.WriteString("- Logs Agent (Forensic Expert)\n")
	b.WriteString("- Metrics Agent (Telemetry Analyst)\n\n")

	b.WriteString("TASK:\n")
	b.WriteString("1. Plan the investigation for this incident.\n")
	b.WriteString("2. Assign work to the specialist agents that match the symptoms.\n")
	b.WriteString("3. Wait for every assigned agent to report findings.\n")
	b.WriteString("4. Aggregate the findings into a coherent picture.\n")
	b.WriteString("5. Identify the most likely root cause.\n")
	b.WriteString("6. Recommend the ONE best mitigation action.\n")
	b.WriteString("7. Produce a concise incident summary.\n\n")

	b.WriteString("RULES:\n")
	b.WriteString("- Do NOT analyze logs or metrics yourself.\n")
	b.WriteString("- Trust sub-agent findings.\n")
	b.WriteString("- Be concise, structured, and explain your reasoning.\n")

	return b.String(), nil
}
