// Package incident defines the data model shared by the diagnosis engine,
// the agent tool layer, and the fixture loader: incidents, observability
// context, per-agent findings, and the final verdict.
package incident

import "fmt"

// Subsystem names used as expected_symptoms keys.
const (
	SubsystemApplication    = "application"
	SubsystemDatabase       = "database"
	SubsystemInfrastructure = "infrastructure"
)

// Log categories present in an ObservabilityContext.
const (
	LogCategoryHighLevel      = "high_level"
	LogCategoryApplication    = "application"
	LogCategoryDatabase       = "database"
	LogCategoryInfrastructure = "infrastructure"
)

// Metric categories present in an ObservabilityContext.
const (
	MetricCategoryApplication    = "application"
	MetricCategoryDatabase       = "database"
	MetricCategoryInfrastructure = "infrastructure"
)

// Incident identifies one investigation.
// It is constructed once from fixture data and never mutated downstream.
type Incident struct {
	// ID is the unique incident identifier (e.g. "inc-db-5001").
	ID string `json:"incident_id"`

	// Severity is the ordinal severity category (SEV-1..SEV-4).
	Severity Severity `json:"severity"`

	// ExpectedSymptoms maps a subsystem name (application/database/
	// infrastructure) to an ordered list of free-text symptom phrases.
	// It is used only for agent-selection keyword matching, never for
	// verdict content.
	ExpectedSymptoms map[string][]string `json:"expected_symptoms"`
}

// Validate checks that the identity fields are present.
// Identity fields are never defaulted; a missing one is a hard error.
func (i *Incident) Validate() error {
	if i.ID == "" {
		return fmt.Errorf("missing required field: incident_id")
	}
	if i.Severity == "" {
		return fmt.Errorf("missing required field: severity")
	}
	return nil
}

// ObservabilityContext holds the raw per-incident evidence.
// Content is opaque structured data; extractors only ever treat it as
// searchable text, so no schema is enforced beyond key presence.
type ObservabilityContext struct {
	// Logs maps a log category (high_level/application/database/
	// infrastructure) to arbitrary structured log content.
	Logs map[string]any `json:"logs"`

	// Metrics maps a metric category (application/database/
	// infrastructure) to arbitrary structured metric content.
	Metrics map[string]any `json:"metrics"`
}
