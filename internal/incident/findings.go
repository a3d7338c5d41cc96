package incident

// Role identifies a diagnostic agent role.
type Role string

const (
	RoleLogs               Role = "logs_agent"
	RoleMetrics            Role = "metrics_agent"
	RoleDeployIntelligence Role = "deploy_intelligence_agent"
)

// KnownRoles returns every role the selector may emit, in selection order.
func KnownRoles() []Role {
	return []Role{RoleLogs, RoleMetrics, RoleDeployIntelligence}
}

// FindingsRecord is the structured output of one diagnostic agent
// invocation. Created once, immutable, consumed only by the verdict
// synthesizer.
type FindingsRecord struct {
	// Agent is the role that produced this record.
	Agent Role `json:"agent"`

	// IncidentID matches the Incident the record was derived from.
	IncidentID string `json:"incident_id"`

	// Findings is a set of distinct human-readable finding strings.
	// First-trigger order is preserved; duplicates are collapsed.
	Findings []string `json:"findings"`

	// Evidence maps a boolean signal name to true. Only fired signals
	// are recorded; absence means "not detected".
	Evidence map[string]bool `json:"evidence"`

	// Hypothesis is the agent's explanatory guess, distinct from the
	// commander's authoritative root cause.
	Hypothesis string `json:"hypothesis,omitempty"`

	// Confidence is the agent's confidence in [0,1].
	Confidence float64 `json:"confidence"`
}

// EmptyFindings returns the no-evidence record for a role.
// Drivers substitute it for any selected agent that produced nothing
// (timeout, unimplemented role) so synthesis always receives one record
// per selected role and the no-evidence path runs uniformly.
func EmptyFindings(role Role, incidentID string) FindingsRecord {
	return FindingsRecord{
		Agent:      role,
		IncidentID: incidentID,
		Findings:   []string{},
		Evidence:   map[string]bool{},
	}
}
