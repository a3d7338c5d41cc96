package diagnosis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/incidentlab/responder/internal/incident"
)

func testIncident() incident.Incident {
	return incident.Incident{
		ID:       "inc-db-5001",
		Severity: incident.SeverityCritical,
	}
}

// record builds a findings record whose serialization contains exactly
// the given evidence flags, with no hypothesis text that could trip
// synthesis triggers on its own.
func record(role incident.Role, flags ...string) incident.FindingsRecord {
	rec := incident.EmptyFindings(role, "inc-db-5001")
	for _, f := range flags {
		rec.Evidence[f] = true
	}
	return rec
}

func TestSynthesizeConnectionRootCause(t *testing.T) {
	records := []incident.FindingsRecord{
		record(incident.RoleLogs, "connection_exhaustion"),
	}

	verdict, err := NewSynthesizer().Synthesize(testIncident(), records)
	require.NoError(t, err)

	assert.Equal(t, "inc-db-5001", verdict.IncidentID)
	assert.Equal(t, incident.SeverityCritical, verdict.Severity)
	assert.Equal(t,
		"Database connection pool exhaustion caused by application scaling without corresponding database capacity",
		verdict.RootCause)
	assert.Contains(t, verdict.FailureSummary, "Database max_connections limit exceeded")
	assert.Contains(t, verdict.RecommendedActions.Immediate, "Increase database max_connections temporarily")
	assert.InDelta(t, 0.92, verdict.Confidence, 1e-9)
}

func TestSynthesizeConnectionAndRetryOrder(t *testing.T) {
	records := []incident.FindingsRecord{
		record(incident.RoleLogs, "retry_storms", "connection_exhaustion"),
	}

	verdict, err := NewSynthesizer().Synthesize(testIncident(), records)
	require.NoError(t, err)

	// Chain order, not evidence order: max_connections first, retry second.
	require.Len(t, verdict.FailureSummary, 2)
	assert.Equal(t, "Database max_connections limit exceeded", verdict.FailureSummary[0])
	assert.Equal(t, "Retry storms amplified database pressure", verdict.FailureSummary[1])
}

func TestSynthesizeAccumulatesAcrossRecords(t *testing.T) {
	records := []incident.FindingsRecord{
		record(incident.RoleLogs, "retry_storms"),
		record(incident.RoleMetrics, "autoscaling_event"),
		record(incident.RoleDeployIntelligence, "deployment_suspected"),
	}

	verdict, err := NewSynthesizer().Synthesize(testIncident(), records)
	require.NoError(t, err)

	// No record tripped the connection rule, so no root cause, but every
	// matching rule still contributed its summary and actions.
	assert.Equal(t, incident.RootCauseUndetermined, verdict.RootCause)
	assert.Equal(t, []string{
		"Retry storms amplified database pressure",
		"Application autoscaled without database capacity alignment",
	}, verdict.FailureSummary)
	assert.Equal(t, []string{"Rollback recent configuration deployment"}, verdict.RecommendedActions.Immediate)
	assert.Equal(t, []string{"Reduce application replica count"}, verdict.RecommendedActions.ShortTerm)
}

func TestSynthesizeEmptyRecords(t *testing.T) {
	records := []incident.FindingsRecord{
		incident.EmptyFindings(incident.RoleLogs, "inc-db-5001"),
		incident.EmptyFindings(incident.RoleMetrics, "inc-db-5001"),
	}

	verdict, err := NewSynthesizer().Synthesize(testIncident(), records)
	require.NoError(t, err)

	assert.Equal(t, incident.RootCauseUndetermined, verdict.RootCause)
	assert.True(t, verdict.Undetermined())
	assert.Empty(t, verdict.FailureSummary)
	assert.Empty(t, verdict.RecommendedActions.Immediate)
	assert.Empty(t, verdict.RecommendedActions.ShortTerm)
	assert.Equal(t, []string{
		"Introduce centralized connection pooling",
		"Implement capacity-aware autoscaling",
		"Add read replicas or shard database workload",
	}, verdict.RecommendedActions.LongTerm)
	assert.InDelta(t, 0.92, verdict.Confidence, 1e-9)
}

func TestSynthesizeNoRecordsAtAll(t *testing.T) {
	verdict, err := NewSynthesizer().Synthesize(testIncident(), nil)
	require.NoError(t, err)

	assert.Equal(t, incident.RootCauseUndetermined, verdict.RootCause)
	assert.Empty(t, verdict.FailureSummary)
	assert.Len(t, verdict.RecommendedActions.LongTerm, 3)
}

func TestSynthesizeIsMonotonic(t *testing.T) {
	base := []incident.FindingsRecord{
		record(incident.RoleLogs, "retry_storms"),
	}
	extended := append(append([]incident.FindingsRecord{}, base...),
		record(incident.RoleMetrics, "autoscaling_event"))

	sy := NewSynthesizer()
	baseVerdict, err := sy.Synthesize(testIncident(), base)
	require.NoError(t, err)
	extVerdict, err := sy.Synthesize(testIncident(), extended)
	require.NoError(t, err)

	assert.Subset(t, extVerdict.FailureSummary, baseVerdict.FailureSummary)
	assert.Subset(t, extVerdict.RecommendedActions.Immediate, baseVerdict.RecommendedActions.Immediate)
	assert.Subset(t, extVerdict.RecommendedActions.ShortTerm, baseVerdict.RecommendedActions.ShortTerm)
	assert.Subset(t, extVerdict.RecommendedActions.LongTerm, baseVerdict.RecommendedActions.LongTerm)
}

func TestSynthesizeDeduplicatesAcrossRules(t *testing.T) {
	sy := NewSynthesizerWithRules([]SynthesisRule{
		{Triggers: []string{"retry"}, Summary: []string{"Retry storms amplified database pressure"}},
		{Triggers: []string{"storm"}, Summary: []string{"Retry storms amplified database pressure"}},
	}, []string{"Introduce centralized connection pooling", "Introduce centralized connection pooling"})

	verdict, err := sy.Synthesize(testIncident(), []incident.FindingsRecord{
		record(incident.RoleLogs, "retry_storms"),
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"Retry storms amplified database pressure"}, verdict.FailureSummary)
	assert.Equal(t, []string{"Introduce centralized connection pooling"}, verdict.RecommendedActions.LongTerm)
}

func TestSynthesizeShapeErrors(t *testing.T) {
	sy := NewSynthesizer()

	_, err := sy.Synthesize(incident.Incident{Severity: incident.SeverityHigh}, nil)
	assert.ErrorContains(t, err, "incident_id")

	_, err = sy.Synthesize(incident.Incident{ID: "inc-db-5001"}, nil)
	assert.ErrorContains(t, err, "severity")
}

func TestSynthesizeDbTimeoutTriggersRootCause(t *testing.T) {
	records := []incident.FindingsRecord{
		record(incident.RoleLogs, "dbtimeout_detected"),
	}

	verdict, err := NewSynthesizer().Synthesize(testIncident(), records)
	require.NoError(t, err)

	assert.Equal(t,
		"Database connection pool exhaustion caused by application scaling without corresponding database capacity",
		verdict.RootCause)
}

func TestSynthesizeWithComputedConfidence(t *testing.T) {
	sy := NewSynthesizer(WithSynthesisConfidence(EvidenceWeighted{Floor: 0.4, Span: 0.5}))

	// Two of four chain rules match: 0.4 + 0.5*2/4.
	verdict, err := sy.Synthesize(testIncident(), []incident.FindingsRecord{
		record(incident.RoleLogs, "retry_storms"),
		record(incident.RoleMetrics, "autoscaling_event"),
	})
	require.NoError(t, err)
	assert.InDelta(t, 0.65, verdict.Confidence, 1e-9)
}
