package diagnosis

// ConfidenceScorer maps an evidence profile (how many table entries
// fired out of how many exist) to a confidence value in [0,1].
type ConfidenceScorer interface {
	Confidence(fired, total int) float64
}

// FixedConfidence ignores the evidence profile and always returns its
// own value. It is the default scorer for both extractor types.
type FixedConfidence float64

// Confidence implements ConfidenceScorer.
func (f FixedConfidence) Confidence(fired, total int) float64 {
	return float64(f)
}

// EvidenceWeighted scales confidence with the fraction of table entries
// that fired: Floor when nothing fired, up to Floor+Span at full
// coverage, capped at 1.
type EvidenceWeighted struct {
	Floor float64
	Span  float64
}

// Confidence implements ConfidenceScorer.
func (e EvidenceWeighted) Confidence(fired, total int) float64 {
	if total <= 0 {
		return e.Floor
	}
	c := e.Floor + e.Span*float64(fired)/float64(total)
	if c > 1 {
		return 1
	}
	return c
}

// HypothesisFunc derives an agent hypothesis from the list of fired
// evidence flags.
type HypothesisFunc func(fired []string) string

// FixedHypothesis returns h regardless of which flags fired. This is
// the default behavior for both extractor types.
func FixedHypothesis(h string) HypothesisFunc {
	return func([]string) string { return h }
}
