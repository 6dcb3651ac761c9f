package bundle

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"sort"
)

var gzipMagic = []byte{0x1f, 0x8b}

// Seal validates b and builds its lookups. It must be called once after a
// Bundle is assembled in memory; Decode and Load call it themselves.
func (b *Bundle) Seal() error {
	switch {
	case b.Extractors == nil:
		return fmt.Errorf("missing extractors")
	case b.Mappings == nil:
		return fmt.Errorf("missing mappings")
	}

	ix := &Index{
		Version:        b.Version,
		BuildID:        b.BuildID,
		SignatureIndex: b.SignatureIndex,
		PatternCatalog: b.PatternCatalog,
		Transforms:     b.Transforms,
	}
	if err := ix.seal(); err != nil {
		return err
	}

	sections := make(map[string]*ProviderSection, len(ix.Providers))
	for _, id := range ix.Providers {
		sections[id] = &ProviderSection{
			Provider:   id,
			Extractors: map[string][]*StepDescriptor{},
			Mapping:    b.Mappings[id],
		}
	}
	for key, steps := range b.Extractors {
		provider, _, ok := SplitExtractorKey(key)
		if !ok {
			return fmt.Errorf("extractors[%q]: malformed key", key)
		}
		ps := sections[provider]
		if ps == nil {
			return fmt.Errorf("extractors[%q]: provider %q has no patterns", key, provider)
		}
		ps.Extractors[key] = steps
	}
	for provider := range b.Mappings {
		if sections[provider] == nil {
			return fmt.Errorf("mappings[%q]: provider has no patterns", provider)
		}
	}
	for id, ps := range sections {
		if err := ps.seal(id); err != nil {
			return err
		}
	}

	b.index = ix
	b.providers = sections
	return nil
}

// Index returns the bundle's index. It panics if the bundle is not sealed.
func (b *Bundle) Index() *Index {
	if b.index == nil {
		panic("bundle: Index called on unsealed bundle")
	}
	return b.index
}

// Provider returns the section for id.
func (b *Bundle) Provider(id string) (*ProviderSection, error) {
	ps := b.providers[id]
	if ps == nil {
		return nil, &LoadError{Kind: KindProvider, Provider: id, Err: ErrUnknownProvider}
	}
	return ps, nil
}

// Split returns the bundle as an index and provider sections, the shape of
// the split layout.
func (b *Bundle) Split() (*Index, []*ProviderSection) {
	ix := b.Index()
	sections := make([]*ProviderSection, 0, len(b.providers))
	for _, id := range ix.Providers {
		sections = append(sections, b.providers[id])
	}
	return ix, sections
}

// Join assembles a bundle from an index and its provider sections.
func Join(ix *Index, sections []*ProviderSection) (*Bundle, error) {
	b := &Bundle{
		Version:        ix.Version,
		BuildID:        ix.BuildID,
		SignatureIndex: ix.SignatureIndex,
		PatternCatalog: ix.PatternCatalog,
		Transforms:     ix.Transforms,
		Extractors:     map[string][]*StepDescriptor{},
		Mappings:       map[string]MappingTable{},
	}
	for _, ps := range sections {
		for key, steps := range ps.Extractors {
			b.Extractors[key] = steps
		}
		if len(ps.Mapping) > 0 {
			b.Mappings[ps.Provider] = ps.Mapping
		}
	}
	if err := b.Seal(); err != nil {
		return nil, err
	}
	return b, nil
}

// Marshal encodes b as compact JSON. Map keys are sorted by encoding/json,
// so equal bundles encode to equal bytes.
func Marshal(b *Bundle) ([]byte, error) {
	return json.Marshal(b)
}

// Encode writes b as JSON, gzip compressed when compress is set.
func Encode(w io.Writer, b *Bundle, compress bool) error {
	data, err := Marshal(b)
	if err != nil {
		return fmt.Errorf("failed to encode bundle: %w", err)
	}
	if !compress {
		_, err = w.Write(data)
		return err
	}
	zw := gzip.NewWriter(w)
	if _, err := zw.Write(data); err != nil {
		return err
	}
	return zw.Close()
}

// Decode reads a single-document bundle, plain or gzip compressed, checks
// its version and seals it.
func Decode(r io.Reader) (*Bundle, error) {
	var b Bundle
	if err := decodeJSON(r, &b); err != nil {
		return nil, err
	}
	if b.Version == "" {
		return nil, fmt.Errorf("%w: missing version", ErrCorrupt)
	}
	if err := CheckVersion(b.Version); err != nil {
		return nil, err
	}
	if err := b.Seal(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return &b, nil
}

// decodeJSON decodes one JSON document from r into v, transparently
// decompressing gzip input. Numbers are kept exact until normalization.
func decodeJSON(r io.Reader, v any) error {
	br := bufio.NewReader(r)
	if magic, err := br.Peek(2); err == nil && bytes.Equal(magic, gzipMagic) {
		zr, err := gzip.NewReader(br)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		defer zr.Close()
		r = zr
	} else {
		r = br
	}

	dec := json.NewDecoder(r)
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data after bundle", ErrCorrupt)
	}
	return nil
}

// Summary describes a bundle for inspection.
type Summary struct {
	Version    string         `json:"version" yaml:"version"`
	BuildID    string         `json:"build_id" yaml:"build_id"`
	Providers  []string       `json:"providers" yaml:"providers"`
	Patterns   map[string]int `json:"patterns" yaml:"patterns"`
	Signatures int            `json:"signatures" yaml:"signatures"`
	Transforms []string       `json:"transforms" yaml:"transforms"`
}

// Summarize returns a summary of the index.
func Summarize(ix *Index) Summary {
	s := Summary{
		Version:    ix.Version,
		BuildID:    ix.BuildID,
		Providers:  append([]string(nil), ix.Providers...),
		Patterns:   make(map[string]int, len(ix.PatternCatalog)),
		Signatures: len(ix.SignatureIndex),
	}
	for p, patterns := range ix.PatternCatalog {
		s.Patterns[p] = len(patterns)
	}
	for name := range ix.Transforms {
		s.Transforms = append(s.Transforms, name)
	}
	sort.Strings(s.Transforms)
	return s
}
