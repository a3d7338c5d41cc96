package tools

import (
	"sync"

	"github.com/incidentlab/responder/internal/incident"
)

// Collector accumulates findings records across tool calls within one
// diagnosis session. Specialist tools append their records as they run;
// the verdict tool reads them back so synthesis works even when the
// model does not echo findings through the conversation.
type Collector struct {
	mu      sync.Mutex
	records []incident.FindingsRecord
	verdict *incident.Verdict
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Record appends a findings record. A second record from the same agent
// replaces the first so a re-run tool does not double-count evidence.
func (c *Collector) Record(rec incident.FindingsRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.records {
		if c.records[i].Agent == rec.Agent {
			c.records[i] = rec
			return
		}
	}
	c.records = append(c.records, rec)
}

// Records returns a copy of the collected findings in arrival order.
func (c *Collector) Records() []incident.FindingsRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]incident.FindingsRecord{}, c.records...)
}

// HasRecord reports whether an agent has already contributed findings.
func (c *Collector) HasRecord(role incident.Role) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.records {
		if c.records[i].Agent == role {
			return true
		}
	}
	return false
}

// SetVerdict stores the synthesized verdict.
func (c *Collector) SetVerdict(v incident.Verdict) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.verdict = &v
}

// Verdict returns the synthesized verdict, if synthesis has run.
func (c *Collector) Verdict() (incident.Verdict, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.verdict == nil {
		return incident.Verdict{}, false
	}
	return *c.verdict, true
}

// Reset clears all collected state for a new session.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = nil
	c.verdict = nil
}
