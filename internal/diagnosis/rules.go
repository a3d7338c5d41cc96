// Package diagnosis implements the deterministic core of the incident
// commander: agent selection, evidence extraction, and verdict synthesis.
// Every rule set is an explicit ordered table injected at construction,
// and every operation is a pure function of its input.
package diagnosis

import (
	"encoding/json"
	"fmt"
	"strings"
)

// SignalRule is one entry in an evidence table. A rule fires when every
// AllOf substring occurs in the searchable text and, if AnyOf is
// non-empty, at least one AnyOf substring occurs as well.
type SignalRule struct {
	// Flag is the evidence flag recorded when the rule fires.
	Flag string

	// Finding is the human-readable finding contributed when the rule
	// fires. Distinct rules may share a finding; findings are collapsed
	// into a set.
	Finding string

	// AnyOf lists alternative trigger substrings. One occurrence fires
	// the rule (subject to AllOf).
	AnyOf []string

	// AllOf lists substrings that must all occur for the rule to fire.
	AllOf []string
}

// Matches reports whether the rule fires against the lowercased blob.
func (r SignalRule) Matches(blob string) bool {
	for _, kw := range r.AllOf {
		if !strings.Contains(blob, kw) {
			return false
		}
	}
	if len(r.AnyOf) == 0 {
		return len(r.AllOf) > 0
	}
	for _, kw := range r.AnyOf {
		if strings.Contains(blob, kw) {
			return true
		}
	}
	return false
}

// searchableText flattens arbitrary structured evidence into the
// lowercased text the rule tables match against. Content that cannot be
// re-serialized falls back to its printed form so matching degrades to
// "no signal" instead of erroring.
func searchableText(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return strings.ToLower(fmt.Sprintf("%v", v))
	}
	return strings.ToLower(string(b))
}

// dedupList accumulates strings preserving first-seen order.
type dedupList struct {
	seen map[string]struct{}
	out  []string
}

func newDedupList() *dedupList {
	return &dedupList{seen: map[string]struct{}{}, out: []string{}}
}

func (d *dedupList) add(items ...string) {
	for _, item := range items {
		if _, ok := d.seen[item]; ok {
			continue
		}
		d.seen[item] = struct{}{}
		d.out = append(d.out, item)
	}
}

func (d *dedupList) items() []string {
	return d.out
}
