package bundle

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"mercator-hq/prism/pkg/attrs"
)

// Index is the always-resident part of a bundle: everything detection needs,
// plus the transform catalog. In a split layout it is the index.json file.
type Index struct {
	Version        string                          `json:"version"`
	BuildID        string                          `json:"build_id,omitempty"`
	SignatureIndex map[string]SignatureEntry       `json:"signature_index"`
	PatternCatalog map[string][]*PatternDescriptor `json:"pattern_catalog"`
	Transforms     map[string]*TransformDescriptor `json:"transforms"`

	// Providers lists every provider with a section file, sorted.
	Providers []string `json:"providers"`

	patterns map[string]*PatternDescriptor
	fallback []*PatternDescriptor
}

// Lookup returns the signature index entry for a canonical key.
func (ix *Index) Lookup(canonicalKey string) (SignatureEntry, bool) {
	e, ok := ix.SignatureIndex[canonicalKey]
	return e, ok
}

// Pattern returns the pattern with the given id, or nil.
func (ix *Index) Pattern(id string) *PatternDescriptor {
	return ix.patterns[id]
}

// HasProvider reports whether the bundle has a section for provider.
func (ix *Index) HasProvider(provider string) bool {
	i := sort.SearchStrings(ix.Providers, provider)
	return i < len(ix.Providers) && ix.Providers[i] == provider
}

// FallbackOrder returns every catalog pattern in global fallback scan order:
// priority ascending, confidence descending, then provider and pattern id
// ascending.
func (ix *Index) FallbackOrder() []*PatternDescriptor {
	return ix.fallback
}

// PatternCount returns the number of patterns in the catalog.
func (ix *Index) PatternCount() int {
	return len(ix.patterns)
}

// seal validates the index and builds its derived lookups.
func (ix *Index) seal() error {
	switch {
	case ix.Version == "":
		return fmt.Errorf("missing version")
	case ix.SignatureIndex == nil:
		return fmt.Errorf("missing signature_index")
	case ix.PatternCatalog == nil:
		return fmt.Errorf("missing pattern_catalog")
	case ix.Transforms == nil:
		return fmt.Errorf("missing transforms")
	}

	ix.patterns = make(map[string]*PatternDescriptor)
	ix.fallback = ix.fallback[:0]
	for provider, patterns := range ix.PatternCatalog {
		for _, p := range patterns {
			if p == nil || p.ID == "" {
				return fmt.Errorf("pattern_catalog[%s]: pattern without id", provider)
			}
			if _, dup := ix.patterns[p.ID]; dup {
				return fmt.Errorf("pattern_catalog: duplicate pattern id %q", p.ID)
			}
			p.Provider = provider
			for k, v := range p.ValueConstraints {
				n, err := attrs.Normalize(v)
				if err != nil {
					return fmt.Errorf("pattern %q: constraint %q: %w", p.ID, k, err)
				}
				p.ValueConstraints[k] = n
			}
			ix.patterns[p.ID] = p
			ix.fallback = append(ix.fallback, p)
		}
	}
	if len(ix.patterns) == 0 {
		return fmt.Errorf("pattern_catalog has no patterns")
	}
	SortFallback(ix.fallback)

	for key, e := range ix.SignatureIndex {
		p := ix.patterns[e.PatternID]
		if p == nil || p.Provider != e.Provider {
			return fmt.Errorf("signature_index[%q]: unknown pattern %q for provider %q", key, e.PatternID, e.Provider)
		}
	}

	for name, t := range ix.Transforms {
		if t == nil || t.ImplementationID == "" {
			return fmt.Errorf("transforms[%s]: missing implementation_id", name)
		}
		params, err := normalizeParams(t.Params)
		if err != nil {
			return fmt.Errorf("transforms[%s]: %w", name, err)
		}
		t.Params = params
	}

	if ix.Providers == nil {
		ix.Providers = make([]string, 0, len(ix.PatternCatalog))
		for p := range ix.PatternCatalog {
			ix.Providers = append(ix.Providers, p)
		}
	}
	sort.Strings(ix.Providers)
	if len(ix.Providers) != len(ix.PatternCatalog) {
		return fmt.Errorf("providers does not match pattern_catalog")
	}
	for _, p := range ix.Providers {
		if _, ok := ix.PatternCatalog[p]; !ok {
			return fmt.Errorf("provider %q has no pattern_catalog entry", p)
		}
	}
	return nil
}

// SortCatalog orders one provider's patterns by priority ascending,
// confidence descending, then id.
func SortCatalog(patterns []*PatternDescriptor) {
	sort.SliceStable(patterns, func(i, j int) bool {
		a, b := patterns[i], patterns[j]
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		return a.ID < b.ID
	})
}

// SortFallback orders patterns of all providers in fallback scan order.
func SortFallback(patterns []*PatternDescriptor) {
	sort.SliceStable(patterns, func(i, j int) bool {
		a, b := patterns[i], patterns[j]
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		if a.Provider != b.Provider {
			return a.Provider < b.Provider
		}
		return a.ID < b.ID
	})
}

// seal validates a provider section and decodes its literals.
func (p *ProviderSection) seal(id string) error {
	if p.Provider == "" {
		p.Provider = id
	}
	if p.Provider != id {
		return fmt.Errorf("provider section names %q, expected %q", p.Provider, id)
	}
	if p.Extractors == nil {
		p.Extractors = map[string][]*StepDescriptor{}
	}
	if p.Mapping == nil {
		p.Mapping = MappingTable{}
	}

	for key, steps := range p.Extractors {
		provider, _, ok := SplitExtractorKey(key)
		if !ok || provider != id {
			return fmt.Errorf("extractors[%q]: key does not belong to provider %q", key, id)
		}
		for i, s := range steps {
			if s == nil {
				return fmt.Errorf("extractors[%q][%d]: empty step", key, i)
			}
			if err := s.fallback.decode(s.Fallback); err != nil {
				return fmt.Errorf("extractors[%q][%d]: fallback: %w", key, i, err)
			}
			params, err := normalizeParams(s.Params)
			if err != nil {
				return fmt.Errorf("extractors[%q][%d]: %w", key, i, err)
			}
			s.Params = params
		}
	}

	for section, fields := range p.Mapping {
		if !IsSection(section) {
			return fmt.Errorf("mapping: unknown section %q", section)
		}
		for field, m := range fields {
			if m == nil {
				return fmt.Errorf("mapping[%s][%s]: empty row", section, field)
			}
			if err := m.def.decode(m.Default); err != nil {
				return fmt.Errorf("mapping[%s][%s]: default: %w", section, field, err)
			}
		}
	}
	return nil
}

// literal is a decoded optional JSON value. An absent raw message is
// undefined; the raw text "null" is a defined nil.
type literal struct {
	set   bool
	value any
}

func (l *literal) decode(raw json.RawMessage) error {
	if len(bytes.TrimSpace(raw)) == 0 {
		*l = literal{}
		return nil
	}
	v, err := decodeValue(raw)
	if err != nil {
		return err
	}
	*l = literal{set: true, value: v}
	return nil
}

func decodeValue(raw []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return attrs.NormalizeValue(v)
}

func normalizeParams(params map[string]any) (map[string]any, error) {
	if len(params) == 0 {
		return nil, nil
	}
	v, err := attrs.NormalizeValue(params)
	if err != nil {
		return nil, fmt.Errorf("params: %w", err)
	}
	return v.(map[string]any), nil
}
