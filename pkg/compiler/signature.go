package compiler

import (
	"sort"

	"github.com/google/uuid"

	"mercator-hq/prism/pkg/attrs"
	"mercator-hq/prism/pkg/bundle"
)

// buildNamespace scopes build ids so they never collide with other SHA-1
// UUIDs derived from the same bytes.
var buildNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("prism:bundle"))

// buildSignatureIndex fills the signature index. Patterns sharing a required
// key set must each be told apart by a value constraint; the index keeps the
// one that comes first in fallback order.
func (st *build) buildSignatureIndex() {
	bundle.SortFallback(st.patterns)

	groups := make(map[string][]*bundle.PatternDescriptor)
	for _, p := range st.patterns {
		key := attrs.CanonicalKey(p.RequiredKeys)
		groups[key] = append(groups[key], p)
	}

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		group := groups[key]
		for i := 0; i < len(group); i++ {
			for j := i + 1; j < len(group); j++ {
				a, b := group[i], group[j]
				if distinguishable(a, b) {
					continue
				}
				st.fail(KindSignatureCollision, b.Provider, b.ID, "", st.locations[b.ID],
					"required keys [%s] collide with pattern %s of provider %s and no value constraint tells them apart",
					key, a.ID, a.Provider)
			}
		}

		first := group[0]
		st.b.SignatureIndex[key] = bundle.SignatureEntry{
			Provider:   first.Provider,
			Source:     first.Source,
			PatternID:  first.ID,
			Confidence: first.Confidence,
			Priority:   first.Priority,
		}
	}
}

// distinguishable reports whether some required key is constrained by both
// patterns to different values.
func distinguishable(a, b *bundle.PatternDescriptor) bool {
	for _, k := range a.RequiredKeys {
		va, okA := a.ValueConstraints[k]
		vb, okB := b.ValueConstraints[k]
		if okA && okB && !attrs.Equal(va, vb) {
			return true
		}
	}
	return false
}

// buildID derives a content-addressed id from the bundle with its build id
// cleared, so identical rules always produce the same id.
func buildID(b *bundle.Bundle) (string, error) {
	saved := b.BuildID
	b.BuildID = ""
	data, err := bundle.Marshal(b)
	b.BuildID = saved
	if err != nil {
		return "", err
	}
	return uuid.NewSHA1(buildNamespace, data).String(), nil
}
