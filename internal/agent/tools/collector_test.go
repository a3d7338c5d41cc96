package tools

import (
	"testing"

	"github.com/incidentlab/responder/internal/incident"
)

func TestCollector_ReplacesSameAgentRecord(t *testing.T) {
	c := NewCollector()

	c.Record(incident.FindingsRecord{
		Agent:      incident.RoleLogs,
		IncidentID: "inc-db-5001",
		Findings:   []string{"first pass"},
		Confidence: 0.5,
	})
	c.Record(incident.FindingsRecord{
		Agent:      incident.RoleMetrics,
		IncidentID: "inc-db-5001",
		Findings:   []string{"metrics pass"},
		Confidence: 0.91,
	})
	c.Record(incident.FindingsRecord{
		Agent:      incident.RoleLogs,
		IncidentID: "inc-db-5001",
		Findings:   []string{"second pass"},
		Confidence: 0.93,
	})

	records := c.Records()
	if len(records) != 2 {
		t.Fatalf("expected 2 records after re-run, got %d", len(records))
	}

	var logs *incident.FindingsRecord
	for i := range records {
		if records[i].Agent == incident.RoleLogs {
			logs = &records[i]
		}
	}
	if logs == nil {
		t.Fatal("expected a logs record")
	}
	if len(logs.Findings) != 1 || logs.Findings[0] != "second pass" {
		t.Errorf("expected re-run to replace the logs record, got %v", logs.Findings)
	}
}

func TestCollector_HasRecord(t *testing.T) {
	c := NewCollector()
	if c.HasRecord(incident.RoleLogs) {
		t.Error("empty collector should have no records")
	}

	c.Record(incident.FindingsRecord{Agent: incident.RoleLogs, IncidentID: "inc-db-5001"})
	if !c.HasRecord(incident.RoleLogs) {
		t.Error("expected logs record")
	}
	if c.HasRecord(incident.RoleMetrics) {
		t.Error("did not expect metrics record")
	}
}

func TestCollector_RecordsReturnsCopy(t *testing.T) {
	c := NewCollector()
	c.Record(incident.FindingsRecord{Agent: incident.RoleLogs, IncidentID: "inc-db-5001"})

	records := c.Records()
	records[0].Agent = incident.RoleMetrics

	if !c.HasRecord(incident.RoleLogs) {
		t.Error("mutating the returned slice must not affect the collector")
	}
}

func TestCollector_Verdict(t *testing.T) {
	c := NewCollector()
	if _, ok := c.Verdict(); ok {
		t.Error("empty collector should have no verdict")
	}

	c.SetVerdict(incident.Verdict{IncidentID: "inc-db-5001", RootCause: "pool exhaustion"})
	verdict, ok := c.Verdict()
	if !ok {
		t.Fatal("expected stored verdict")
	}
	if verdict.RootCause != "pool exhaustion" {
		t.Errorf("unexpected root cause: %s", verdict.RootCause)
	}
}

func TestCollector_Reset(t *testing.T) {
	c := NewCollector()
	c.Record(incident.FindingsRecord{Agent: incident.RoleLogs, IncidentID: "inc-db-5001"})
	c.SetVerdict(incident.Verdict{IncidentID: "inc-db-5001"})

	c.Reset()

	if len(c.Records()) != 0 {
		t.Error("expected no records after reset")
	}
	if _, ok := c.Verdict(); ok {
		t.Error("expected no verdict after reset")
	}
}
