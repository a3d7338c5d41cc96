package incident

// RootCauseUndetermined is the sentinel root cause used when no
// synthesis rule matched. It is a valid terminal state, not an error.
const RootCauseUndetermined = "Undetermined"

// RecommendedActions holds the three remediation tiers. Each tier is an
// ordered list of distinct action strings.
type RecommendedActions struct {
	Immediate []string `json:"immediate"`
	ShortTerm []string `json:"short_term"`
	LongTerm  []string `json:"long_term"`
}

// Verdict is the commander's final synthesis for one investigation.
// It is a terminal artifact and is never mutated after creation.
type Verdict struct {
	// IncidentID and Severity are copied from the Incident.
	IncidentID string   `json:"incident_id"`
	Severity   Severity `json:"severity"`

	// RootCause is the single authoritative root-cause narrative, or
	// RootCauseUndetermined when no rule matched.
	RootCause string `json:"root_cause"`

	// FailureSummary is the ordered list of distinct contributing
	// factors.
	FailureSummary []string `json:"failure_summary"`

	// RecommendedActions is the tiered remediation plan.
	RecommendedActions RecommendedActions `json:"recommended_actions"`

	// Confidence is the synthesis confidence in [0,1].
	Confidence float64 `json:"confidence"`
}

// Undetermined reports whether no synthesis rule identified a root cause.
func (v *Verdict) Undetermined() bool {
	return v.RootCause == RootCauseUndetermined
}
