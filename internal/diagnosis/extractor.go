package diagnosis

import (
	"github.com/incidentlab/responder/internal/incident"
)

// Default per-extractor confidences when no scorer is configured.
const (
	defaultLogConfidence    = 0.93
	defaultMetricConfidence = 0.91
)

// Per-extractor hypotheses. Fixed per agent type; a computed hypothesis
// can be swapped in via WithHypothesis.
const (
	logHypothesis    = "Log patterns indicate downstream database connection saturation triggering retries and circuit breaker activation"
	metricHypothesis = "Metrics indicate database capacity constrained by connection limits rather than compute resources, amplified by application autoscaling"
)

// logSignalRules is the canonical signal table for the log extractor.
// This is the single source of truth for log evidence detection.
var logSignalRules = []SignalRule{
	{Flag: "timeouts", Finding: "Application experienced database timeouts",
		AnyOf: []string{"timeout"}},
	{Flag: "retry_storms", Finding: "Retry storms detected in application logs",
		AnyOf: []string{"retry"}},
	{Flag: "connection_exhaustion", Finding: "Database rejected connections due to connection limit",
		AnyOf: []string{"too many connections", "connection pool exhausted"}},
	{Flag: "circuit_breaker", Finding: "Circuit breakers activated under load",
		AnyOf: []string{"circuit"}},
}

// metricSignalRules is the canonical signal table for the metric
// extractor.
var metricSignalRules = []SignalRule{
	{Flag: "db_connection_saturation", Finding: "Database active connections reached maximum capacity",
		AllOf: []string{"connection"}, AnyOf: []string{"1.0", "100"}},
	{Flag: "autoscaling_event", Finding: "Application autoscaled rapidly under traffic spike",
		AnyOf: []string{"replica", "autoscale"}},
	{Flag: "latency_spike", Finding: "Latency increased in correlation with load and saturation",
		AnyOf: []string{"latency", "p99", "p95"}},
	{Flag: "cpu_not_bottleneck", Finding: "Database CPU remained underutilized during incident",
		AllOf: []string{"cpu", "low"}},
}

// Extractor scans one slice of observability context for a fixed
// vocabulary of signals and emits a findings record. Extraction is
// monotonic over the table: a fired rule only ever adds a finding and an
// evidence flag, never removes or contradicts another.
type Extractor struct {
	role       incident.Role
	rules      []SignalRule
	hypothesis HypothesisFunc
	scorer     ConfidenceScorer
}

// ExtractorOption customizes an Extractor.
type ExtractorOption func(*Extractor)

// WithConfidence replaces the default fixed-confidence scorer.
func WithConfidence(s ConfidenceScorer) ExtractorOption {
	return func(e *Extractor) { e.scorer = s }
}

// WithHypothesis replaces the default fixed hypothesis.
func WithHypothesis(fn HypothesisFunc) ExtractorOption {
	return func(e *Extractor) { e.hypothesis = fn }
}

// NewExtractor builds an extractor for a role over an explicit signal
// table. The fixed hypothesis and confidence are the defaults; options
// swap in computed variants behind the same interface.
func NewExtractor(role incident.Role, rules []SignalRule, hypothesis string, confidence float64, opts ...ExtractorOption) *Extractor {
	e := &Extractor{
		role:       role,
		rules:      rules,
		hypothesis: FixedHypothesis(hypothesis),
		scorer:     FixedConfidence(confidence),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NewLogExtractor returns the log-tuned extractor over the canonical
// log signal table.
func NewLogExtractor(opts ...ExtractorOption) *Extractor {
	return NewExtractor(incident.RoleLogs, logSignalRules, logHypothesis, defaultLogConfidence, opts...)
}

// NewMetricExtractor returns the metric-tuned extractor over the
// canonical metric signal table.
func NewMetricExtractor(opts ...ExtractorOption) *Extractor {
	return NewExtractor(incident.RoleMetrics, metricSignalRules, metricHypothesis, defaultMetricConfidence, opts...)
}

// Role returns the diagnostic role this extractor produces records for.
func (e *Extractor) Role() incident.Role {
	return e.role
}

// Extract scans a category→content slice and returns the findings
// record. It is pure and never fails: malformed or missing content
// degrades to "no signals fired", not an error.
func (e *Extractor) Extract(incidentID string, slice map[string]any) incident.FindingsRecord {
	blob := searchableText(slice)

	findings := newDedupList()
	evidence := make(map[string]bool, len(e.rules))
	fired := make([]string, 0, len(e.rules))
	for _, rule := range e.rules {
		if !rule.Matches(blob) {
			continue
		}
		evidence[rule.Flag] = true
		fired = append(fired, rule.Flag)
		findings.add(rule.Finding)
	}

	return incident.FindingsRecord{
		Agent:      e.role,
		IncidentID: incidentID,
		Findings:   findings.items(),
		Evidence:   evidence,
		Hypothesis: e.hypothesis(fired),
		Confidence: e.scorer.Confidence(len(fired), len(e.rules)),
	}
}
