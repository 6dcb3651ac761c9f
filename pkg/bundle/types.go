package bundle

import (
	"encoding/json"
	"strings"
)

// Extraction step operations.
const (
	OpDirectCopy       = "direct_copy"
	OpReconstructArray = "reconstruct_array"
	OpTransform        = "transform"
)

// Canonical event sections.
const (
	SectionInputs   = "inputs"
	SectionOutputs  = "outputs"
	SectionConfig   = "config"
	SectionMetadata = "metadata"
)

// Sections lists the canonical event sections in output order.
var Sections = []string{SectionInputs, SectionOutputs, SectionConfig, SectionMetadata}

// IsOp reports whether op is a known step operation.
func IsOp(op string) bool {
	switch op {
	case OpDirectCopy, OpReconstructArray, OpTransform:
		return true
	}
	return false
}

// IsSection reports whether s is a canonical event section.
func IsSection(s string) bool {
	switch s {
	case SectionInputs, SectionOutputs, SectionConfig, SectionMetadata:
		return true
	}
	return false
}

// ExtractorKey returns the extractor key for a provider and source.
func ExtractorKey(provider, source string) string {
	return provider + ":" + source
}

// SplitExtractorKey splits an extractor key into provider and source.
func SplitExtractorKey(key string) (provider, source string, ok bool) {
	provider, source, ok = strings.Cut(key, ":")
	if !ok || provider == "" || source == "" {
		return "", "", false
	}
	return provider, source, true
}

// Bundle is a compiled bundle with every provider resident.
type Bundle struct {
	Version        string                          `json:"version"`
	BuildID        string                          `json:"build_id,omitempty"`
	SignatureIndex map[string]SignatureEntry       `json:"signature_index"`
	PatternCatalog map[string][]*PatternDescriptor `json:"pattern_catalog"`
	Extractors     map[string][]*StepDescriptor    `json:"extractors"`
	Mappings       map[string]MappingTable         `json:"mappings"`
	Transforms     map[string]*TransformDescriptor `json:"transforms"`

	index     *Index
	providers map[string]*ProviderSection
}

// SignatureEntry is the signature index value for one canonical key set.
type SignatureEntry struct {
	Provider   string  `json:"provider"`
	Source     string  `json:"source"`
	PatternID  string  `json:"pattern_id"`
	Confidence float64 `json:"confidence"`
	Priority   int     `json:"priority"`
}

// PatternDescriptor is one compiled pattern.
type PatternDescriptor struct {
	ID               string         `json:"id"`
	Source           string         `json:"source"`
	RequiredKeys     []string       `json:"required_keys"`
	OptionalKeys     []string       `json:"optional_keys,omitempty"`
	ValueConstraints map[string]any `json:"value_constraints,omitempty"`
	Confidence       float64        `json:"confidence"`
	Priority         int            `json:"priority"`

	// Provider is implied by the catalog key and filled in on load.
	Provider string `json:"-"`
}

// StepDescriptor is one compiled extraction step.
type StepDescriptor struct {
	Op         string         `json:"op"`
	SourcePath string         `json:"source_path,omitempty"`
	Sources    []string       `json:"sources,omitempty"`
	Target     string         `json:"target"`
	Transform  string         `json:"transform,omitempty"`
	Fallback   json.RawMessage `json:"fallback,omitempty"`
	Params     map[string]any `json:"params,omitempty"`

	fallback literal
}

// FallbackValue returns the step's fallback and whether one is defined.
// A defined fallback may be nil.
func (s *StepDescriptor) FallbackValue() (any, bool) {
	return s.fallback.value, s.fallback.set
}

// SetFallback defines the step's fallback.
func (s *StepDescriptor) SetFallback(v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	s.Fallback = raw
	return s.fallback.decode(raw)
}

// MappingTable maps section to target field to mapping row.
type MappingTable map[string]map[string]*FieldMapping

// FieldMapping is one compiled mapping row.
type FieldMapping struct {
	SourceName string          `json:"source_name"`
	Required   bool            `json:"required"`
	Default    json.RawMessage `json:"default,omitempty"`

	def literal
}

// DefaultValue returns the row's default and whether one is defined.
func (m *FieldMapping) DefaultValue() (any, bool) {
	return m.def.value, m.def.set
}

// SetDefault defines the row's default.
func (m *FieldMapping) SetDefault(v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	m.Default = raw
	return m.def.decode(raw)
}

// TransformDescriptor is one transform catalog entry.
type TransformDescriptor struct {
	Description      string            `json:"description,omitempty"`
	ImplementationID string            `json:"implementation_id"`
	ParamSchema      map[string]string `json:"param_schema,omitempty"`
	Params           map[string]any    `json:"params,omitempty"`
}

// ProviderSection is the per-provider part of a bundle: its extraction steps
// keyed "provider:source" and its mapping table.
type ProviderSection struct {
	Provider   string                       `json:"provider"`
	Extractors map[string][]*StepDescriptor `json:"extractors"`
	Mapping    MappingTable                 `json:"mapping"`
}

// Steps returns the extraction steps for source, or nil.
func (p *ProviderSection) Steps(source string) []*StepDescriptor {
	return p.Extractors[ExtractorKey(p.Provider, source)]
}

// Source is the read-only view of a bundle the engine depends on.
type Source interface {
	// Index returns the always-resident part of the bundle.
	Index() *Index

	// Provider returns the extraction and mapping section for a provider,
	// loading it if necessary.
	Provider(id string) (*ProviderSection, error)
}
