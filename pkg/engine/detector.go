package engine

import (
	"mercator-hq/prism/pkg/attrs"
	"mercator-hq/prism/pkg/bundle"
)

// Detect finds the pattern an attribute map belongs to.
//
// The full key set is first looked up in the signature index; the entry is
// taken only if its required keys are all present and its value constraints
// hold. Span keys may contain the signature separator, so a signature hit
// alone does not prove the key sets are equal. Otherwise every pattern is tried
// in the index's fallback order and the first whose required keys are all
// present and whose constraints hold wins. The result depends only on the
// index and the map's contents.
func Detect(ix *bundle.Index, m attrs.Map) Match {
	if ix == nil || len(m) == 0 {
		return NoMatch
	}

	if e, ok := ix.Lookup(m.Signature()); ok {
		if p := ix.Pattern(e.PatternID); p != nil && m.HasAll(p.RequiredKeys) && constraintsHold(p, m) {
			return matchOf(p, PathExact)
		}
	}

	for _, p := range ix.FallbackOrder() {
		if m.HasAll(p.RequiredKeys) && constraintsHold(p, m) {
			return matchOf(p, PathFallback)
		}
	}
	return NoMatch
}

// constraintsHold reports whether every value constraint of p is met. An
// absent key never meets a constraint, even a null one.
func constraintsHold(p *bundle.PatternDescriptor, m attrs.Map) bool {
	for k, want := range p.ValueConstraints {
		got, ok := m[k]
		if !ok || !attrs.Equal(got, want) {
			return false
		}
	}
	return true
}

func matchOf(p *bundle.PatternDescriptor, path MatchPath) Match {
	return Match{
		OK:         true,
		Provider:   p.Provider,
		Source:     p.Source,
		PatternID:  p.ID,
		Confidence: p.Confidence,
		Priority:   p.Priority,
		Path:       path,
	}
}
