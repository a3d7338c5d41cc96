package diagnosis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/incidentlab/responder/internal/incident"
)

func TestSelectAgents(t *testing.T) {
	tests := []struct {
		name     string
		symptoms map[string][]string
		want     []incident.Role
	}{
		{
			name: "database failure profile selects logs and metrics",
			symptoms: map[string][]string{
				incident.SubsystemApplication:    {"increased latency", "database timeouts", "retry storms"},
				incident.SubsystemDatabase:       {"high connection usage", "connection pool exhaustion"},
				incident.SubsystemInfrastructure: {"autoscaling mismatch"},
			},
			want: []incident.Role{incident.RoleLogs, incident.RoleMetrics},
		},
		{
			name: "release-only profile selects deploy intelligence only",
			symptoms: map[string][]string{
				incident.SubsystemInfrastructure: {"suspicious release"},
			},
			want: []incident.Role{incident.RoleDeployIntelligence},
		},
		{
			name: "groups are independent, one phrase can select two roles",
			symptoms: map[string][]string{
				incident.SubsystemApplication: {"timeout during capacity test"},
			},
			want: []incident.Role{incident.RoleLogs, incident.RoleMetrics},
		},
		{
			name: "all three groups fire",
			symptoms: map[string][]string{
				incident.SubsystemApplication:    {"error rate spike"},
				incident.SubsystemDatabase:       {"connection saturation"},
				incident.SubsystemInfrastructure: {"bad config deployment"},
			},
			want: []incident.Role{incident.RoleLogs, incident.RoleMetrics, incident.RoleDeployIntelligence},
		},
		{
			name: "no keyword match yields empty selection",
			symptoms: map[string][]string{
				incident.SubsystemApplication: {"users report the page looks odd"},
			},
			want: []incident.Role{},
		},
		{
			name:     "nil symptoms yield empty selection",
			symptoms: nil,
			want:     []incident.Role{},
		},
	}

	selector := NewSelector()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inc := incident.Incident{
				ID:               "inc-test-1",
				Severity:         incident.SeverityHigh,
				ExpectedSymptoms: tt.symptoms,
			}
			got, err := selector.SelectAgents(inc)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSelectAgentsSubsetProperty(t *testing.T) {
	known := map[incident.Role]bool{}
	for _, r := range incident.KnownRoles() {
		known[r] = true
	}

	inputs := []map[string][]string{
		{incident.SubsystemApplication: {"timeout retry circuit failure latency error"}},
		{incident.SubsystemDatabase: {"capacity exhaustion connections autoscaling saturation usage"}},
		{incident.SubsystemInfrastructure: {"deployment config change release"}},
		{incident.SubsystemApplication: {"everything is broken at once: timeout, saturation, release"}},
		{},
	}

	selector := NewSelector()
	for _, symptoms := range inputs {
		roles, err := selector.SelectAgents(incident.Incident{
			ID:               "inc-test-2",
			Severity:         incident.SeverityMedium,
			ExpectedSymptoms: symptoms,
		})
		require.NoError(t, err)
		for _, r := range roles {
			assert.True(t, known[r], "selector emitted unknown role %q", r)
		}
	}
}

func TestSelectAgentsShapeErrors(t *testing.T) {
	selector := NewSelector()

	_, err := selector.SelectAgents(incident.Incident{Severity: incident.SeverityHigh})
	assert.ErrorContains(t, err, "incident_id")

	_, err = selector.SelectAgents(incident.Incident{ID: "inc-test-3"})
	assert.ErrorContains(t, err, "severity")
}

func TestSelectAgentsCustomRules(t *testing.T) {
	selector := NewSelectorWithRules([]RoleRule{
		{Role: incident.RoleMetrics, Keywords: []string{"saturation"}},
		{Role: incident.RoleMetrics, Keywords: []string{"capacity"}}, // duplicate role entry
	})

	roles, err := selector.SelectAgents(incident.Incident{
		ID:       "inc-test-4",
		Severity: incident.SeverityLow,
		ExpectedSymptoms: map[string][]string{
			incident.SubsystemDatabase: {"saturation near capacity"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []incident.Role{incident.RoleMetrics}, roles, "duplicate table entries must not duplicate roles")
}
