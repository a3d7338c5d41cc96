package incident

import (
	"fmt"
	"strings"
)

// Severity is the ordinal incident severity category.
type Severity string

const (
	SeverityCritical Severity = "SEV-1" // Customer-facing outage
	SeverityHigh     Severity = "SEV-2" // Major degradation
	SeverityMedium   Severity = "SEV-3" // Partial degradation
	SeverityLow      Severity = "SEV-4" // Minor or cosmetic
)

// severityRanks orders severities from most to least severe.
var severityRanks = map[Severity]int{
	SeverityCritical: 1,
	SeverityHigh:     2,
	SeverityMedium:   3,
	SeverityLow:      4,
}

// ParseSeverity normalizes a fixture severity string ("SEV-1", "sev1",
// "Sev 2") into a Severity. Unknown values are an error; severities are
// identity fields and are never defaulted.
func ParseSeverity(s string) (Severity, error) {
	normalized := strings.ToUpper(strings.TrimSpace(s))
	normalized = strings.ReplaceAll(normalized, " ", "-")
	if !strings.HasPrefix(normalized, "SEV-") && strings.HasPrefix(normalized, "SEV") {
		normalized = "SEV-" + strings.TrimPrefix(normalized, "SEV")
	}
	sev := Severity(normalized)
	if _, ok := severityRanks[sev]; !ok {
		return "", fmt.Errorf("unknown severity %q", s)
	}
	return sev, nil
}

// Valid reports whether s is one of the known severity categories.
func (s Severity) Valid() bool {
	_, ok := severityRanks[s]
	return ok
}

// Rank returns the ordinal position of s, 1 (most severe) to 4.
// Unknown severities rank 0.
func (s Severity) Rank() int {
	return severityRanks[s]
}
