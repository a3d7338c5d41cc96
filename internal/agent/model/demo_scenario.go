package model

import "fmt"

// DemoScenario returns the built-in scripted scenario that replays the
// full commander flow for a recorded database-failure incident: symptom
// routing, delegation to the log and metric specialists, and the final
// verdict. Tool calls execute for real against the fixture store, so
// the replay exercises the same code path as a live model.
func DemoScenario(incidentID string) *Scenario {
	return &Scenario{
		Name:        "demo-database-failure",
		Description: "Scripted commander run for the recorded database failure incident",
		Settings: ScenarioSettings{
			ThinkingDelayMs: 400,
			ToolDelayMs:     150,
		},
		Steps: []ScenarioStep{
			{
				Trigger: "user_message",
				Text:    fmt.Sprintf("Taking command of incident %s. Routing the reported symptoms to the specialist agents before any analysis.", incidentID),
				ToolCalls: []MockToolCall{
					{Name: "route_symptoms", Args: map[string]interface{}{"incident_id": incidentID}},
				},
			},
			{
				Trigger: "tool_result:route_symptoms",
				Text:    "Symptom routing complete: the log and metric specialists are both relevant. Transferring to the forensic log analyst first.",
				ToolCalls: []MockToolCall{
					{Name: "transfer_to_agent", Args: map[string]interface{}{"agent_name": "logs_agent"}},
				},
			},
			{
				Text: "Starting the forensic sweep over the recorded log fixtures.",
				ToolCalls: []MockToolCall{
					{Name: "analyze_logs", Args: map[string]interface{}{"incident_id": incidentID}},
				},
			},
			{
				Trigger: "tool_result:analyze_logs",
				Text:    "Forensic sweep complete. The logs show database timeouts, retry storms, rejected connections at the configured limit, and circuit breaker activation. Returning to the commander.",
				ToolCalls: []MockToolCall{
					{Name: "transfer_to_agent", Args: map[string]interface{}{"agent_name": "incident_commander"}},
				},
			},
			{
				Text: "Log findings recorded. Transferring to the telemetry analyst for the metric side.",
				ToolCalls: []MockToolCall{
					{Name: "transfer_to_agent", Args: map[string]interface{}{"agent_name": "metrics_agent"}},
				},
			},
			{
				Text: "Reviewing the recorded telemetry for saturation and scaling signals.",
				ToolCalls: []MockToolCall{
					{Name: "analyze_metrics", Args: map[string]interface{}{"incident_id": incidentID}},
				},
			},
			{
				Trigger: "tool_result:analyze_metrics",
				Text:    "Telemetry review complete. Database connections reached the configured maximum while CPU stayed low, and the application autoscaled into the saturated database. Returning to the commander.",
				ToolCalls: []MockToolCall{
					{Name: "transfer_to_agent", Args: map[string]interface{}{"agent_name": "incident_commander"}},
				},
			},
			{
				Text: "All routed specialists have reported. Synthesizing the verdict from the collected findings.",
				ToolCalls: []MockToolCall{
					{Name: "synthesize_verdict", Args: map[string]interface{}{"incident_id": incidentID}},
				},
			},
			{
				Trigger: "tool_result:synthesize_verdict",
				Text:    demoVerdictReport(incidentID),
			},
		},
	}
}

// demoVerdictReport is the commander's closing report for the demo
// incident. It restates the synthesized verdict, which is deterministic
// for the bundled fixtures.
func demoVerdictReport(incidentID string) string {
	return fmt.Sprintf(`## Incident Verdict: %s

**Root cause:** Database connection pool exhaustion caused by application scaling without corresponding database capacity (confidence 0.92).

**What failed:**
- Database max_connections limit exceeded
- Retry storms amplified database pressure
- Application autoscaled without database capacity alignment

**Remediation plan:**

*Immediate*
- Increase database max_connections temporarily

*Short term*
- Reduce application replica count

*Long term*
- Introduce centralized connection pooling
- Implement capacity-aware autoscaling
- Add read replicas or shard database workload

The specialists' full findings records and the verdict are available in the audit trail.`, incidentID)
}
