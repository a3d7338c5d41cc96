package diagnosis

import (
	"strings"

	"github.com/incidentlab/responder/internal/incident"
)

// defaultVerdictConfidence is reported when no scorer overrides it.
const defaultVerdictConfidence = 0.92

// SynthesisRule is one entry in the verdict chain. The rule matches
// when any trigger substring occurs in the findings blob.
type SynthesisRule struct {
	// Triggers lists alternative trigger substrings.
	Triggers []string

	// RootCause, when non-empty, is the narrative this rule nominates.
	// Only the FIRST matching rule in the chain that carries one sets
	// the verdict's root cause.
	RootCause string

	// Summary, Immediate, and ShortTerm entries accumulate from EVERY
	// matching rule, independent of root-cause selection.
	Summary   []string
	Immediate []string
	ShortTerm []string
}

// Matches reports whether any trigger occurs in the lowercased blob.
func (r SynthesisRule) Matches(blob string) bool {
	for _, kw := range r.Triggers {
		if strings.Contains(blob, kw) {
			return true
		}
	}
	return false
}

// verdictRules is the canonical synthesis chain. Order matters: the
// first matching rule that nominates a root cause wins that slot, while
// summary and remediation entries accumulate from all matching rules.
var verdictRules = []SynthesisRule{
	{
		Triggers:  []string{"connection", "dbtimeout"},
		RootCause: "Database connection pool exhaustion caused by application scaling without corresponding database capacity",
		Summary:   []string{"Database max_connections limit exceeded"},
		Immediate: []string{"Increase database max_connections temporarily"},
	},
	{
		Triggers: []string{"retry"},
		Summary:  []string{"Retry storms amplified database pressure"},
	},
	{
		Triggers:  []string{"autoscaling"},
		Summary:   []string{"Application autoscaled without database capacity alignment"},
		ShortTerm: []string{"Reduce application replica count"},
	},
	{
		Triggers:  []string{"deployment", "config"},
		Immediate: []string{"Rollback recent configuration deployment"},
	},
}

// longTermBaseline is appended to every verdict regardless of which
// rules matched.
var longTermBaseline = []string{
	"Introduce centralized connection pooling",
	"Implement capacity-aware autoscaling",
	"Add read replicas or shard database workload",
}

// Synthesizer combines the findings of every diagnostic agent that ran
// into the final verdict.
type Synthesizer struct {
	rules    []SynthesisRule
	longTerm []string
	scorer   ConfidenceScorer
}

// SynthesizerOption customizes a Synthesizer.
type SynthesizerOption func(*Synthesizer)

// WithSynthesisConfidence replaces the default fixed-confidence scorer.
func WithSynthesisConfidence(s ConfidenceScorer) SynthesizerOption {
	return func(sy *Synthesizer) { sy.scorer = s }
}

// NewSynthesizer returns a synthesizer over the canonical verdict chain.
func NewSynthesizer(opts ...SynthesizerOption) *Synthesizer {
	return NewSynthesizerWithRules(verdictRules, longTermBaseline, opts...)
}

// NewSynthesizerWithRules returns a synthesizer over a custom chain and
// long-term baseline.
func NewSynthesizerWithRules(rules []SynthesisRule, longTerm []string, opts ...SynthesizerOption) *Synthesizer {
	sy := &Synthesizer{
		rules:    rules,
		longTerm: longTerm,
		scorer:   FixedConfidence(defaultVerdictConfidence),
	}
	for _, opt := range opts {
		opt(sy)
	}
	return sy
}

// Synthesize evaluates the chain over the lowercased serialization of
// all findings records. Root-cause selection (first match wins) and
// summary/remediation accumulation (all matches apply) are two separate
// passes over the same table so the two semantics stay independent.
// Fails fast when the incident's identity fields are missing; an input
// that matches no rule is a valid outcome, not an error.
func (sy *Synthesizer) Synthesize(inc incident.Incident, records []incident.FindingsRecord) (incident.Verdict, error) {
	if err := inc.Validate(); err != nil {
		return incident.Verdict{}, err
	}

	blob := searchableText(records)

	// Pass 1: root cause goes to the first matching rule that carries one.
	rootCause := incident.RootCauseUndetermined
	for _, rule := range sy.rules {
		if rule.RootCause == "" || !rule.Matches(blob) {
			continue
		}
		rootCause = rule.RootCause
		break
	}

	// Pass 2: every matching rule contributes summary and remediation.
	summary := newDedupList()
	immediate := newDedupList()
	shortTerm := newDedupList()
	matched := 0
	for _, rule := range sy.rules {
		if !rule.Matches(blob) {
			continue
		}
		matched++
		summary.add(rule.Summary...)
		immediate.add(rule.Immediate...)
		shortTerm.add(rule.ShortTerm...)
	}

	longTerm := newDedupList()
	longTerm.add(sy.longTerm...)

	return incident.Verdict{
		IncidentID:     inc.ID,
		Severity:       inc.Severity,
		RootCause:      rootCause,
		FailureSummary: summary.items(),
		RecommendedActions: incident.RecommendedActions{
			Immediate: immediate.items(),
			ShortTerm: shortTerm.items(),
			LongTerm:  longTerm.items(),
		},
		Confidence: sy.scorer.Confidence(matched, len(sy.rules)),
	}, nil
}
