package diagnosis

import (
	"strings"

	"github.com/incidentlab/responder/internal/incident"
)

// RoleRule maps a keyword group to a diagnostic role. Any keyword
// occurrence in the symptom text selects the role.
type RoleRule struct {
	Role     incident.Role
	Keywords []string
}

// roleRules is the canonical symptom-routing table. Groups are
// independent: a symptom text matching several groups selects all of
// their roles.
var roleRules = []RoleRule{
	{Role: incident.RoleLogs,
		Keywords: []string{"latency", "timeout", "retry", "error", "circuit", "failure"}},
	{Role: incident.RoleMetrics,
		Keywords: []string{"capacity", "exhaustion", "connections", "autoscaling", "saturation", "usage"}},
	{Role: incident.RoleDeployIntelligence,
		Keywords: []string{"deployment", "config", "change", "release"}},
}

// Selector decides which diagnostic roles apply to an incident based on
// its expected symptom profile.
type Selector struct {
	rules []RoleRule
}

// NewSelector returns a selector over the canonical routing table.
func NewSelector() *Selector {
	return &Selector{rules: roleRules}
}

// NewSelectorWithRules returns a selector over a custom routing table.
func NewSelectorWithRules(rules []RoleRule) *Selector {
	return &Selector{rules: rules}
}

// SelectAgents returns the ordered, deduplicated set of roles whose
// keyword group matches the incident's expected symptoms. An empty
// result is valid: no agent is relevant and the verdict defaults to
// Undetermined. Fails fast when the incident's identity fields are
// missing.
func (s *Selector) SelectAgents(inc incident.Incident) ([]incident.Role, error) {
	if err := inc.Validate(); err != nil {
		return nil, err
	}

	blob := searchableText(inc.ExpectedSymptoms)

	roles := make([]incident.Role, 0, len(s.rules))
	seen := make(map[incident.Role]struct{}, len(s.rules))
	for _, rule := range s.rules {
		if _, ok := seen[rule.Role]; ok {
			continue
		}
		for _, kw := range rule.Keywords {
			if strings.Contains(blob, kw) {
				roles = append(roles, rule.Role)
				seen[rule.Role] = struct{}{}
				break
			}
		}
	}
	return roles, nil
}
