package engine

import (
	"mercator-hq/prism/pkg/bundle"
)

// MatchPath records how a match was found.
type MatchPath string

const (
	PathExact    MatchPath = "exact"
	PathFallback MatchPath = "fallback"
	PathNone     MatchPath = "none"
)

// Match is the detector's result. OK is false for NoMatch.
type Match struct {
	OK         bool      `json:"ok"`
	Provider   string    `json:"provider,omitempty"`
	Source     string    `json:"source,omitempty"`
	PatternID  string    `json:"pattern_id,omitempty"`
	Confidence float64   `json:"confidence,omitempty"`
	Priority   int       `json:"priority,omitempty"`
	Path       MatchPath `json:"path"`
}

// NoMatch is the zero match.
var NoMatch = Match{Path: PathNone}

// Fields is the intermediate field map built by extraction. A key that is
// present with a nil value was explicitly null.
type Fields map[string]any

// CanonicalEvent is the translation target. A field absent from a section
// was not resolved; a field present with a nil value was explicitly null.
type CanonicalEvent struct {
	Inputs   map[string]any `json:"inputs"`
	Outputs  map[string]any `json:"outputs"`
	Config   map[string]any `json:"config"`
	Metadata map[string]any `json:"metadata"`
}

// NewCanonicalEvent returns an event with four empty sections.
func NewCanonicalEvent() *CanonicalEvent {
	return &CanonicalEvent{
		Inputs:   map[string]any{},
		Outputs:  map[string]any{},
		Config:   map[string]any{},
		Metadata: map[string]any{},
	}
}

// Section returns the map for a section name, or nil.
func (e *CanonicalEvent) Section(name string) map[string]any {
	switch name {
	case bundle.SectionInputs:
		return e.Inputs
	case bundle.SectionOutputs:
		return e.Outputs
	case bundle.SectionConfig:
		return e.Config
	case bundle.SectionMetadata:
		return e.Metadata
	}
	return nil
}

// IsEmpty reports whether every section is empty.
func (e *CanonicalEvent) IsEmpty() bool {
	return len(e.Inputs) == 0 && len(e.Outputs) == 0 && len(e.Config) == 0 && len(e.Metadata) == 0
}

// DiagnosticKind classifies a recovered per-span problem.
type DiagnosticKind string

const (
	// KindExtractionAnomaly covers a transform missing from this runtime, a
	// step input never populated, or a step that failed.
	KindExtractionAnomaly DiagnosticKind = "extraction_anomaly"

	// KindMappingGap is a required field that resolved to nothing.
	KindMappingGap DiagnosticKind = "mapping_gap"
)

// Diagnostic describes one recovered problem.
type Diagnostic struct {
	Kind     DiagnosticKind `json:"kind"`
	Provider string         `json:"provider,omitempty"`
	Pattern  string         `json:"pattern,omitempty"`

	// Step is the extraction target involved, Field the section.field.
	Step  string `json:"step,omitempty"`
	Field string `json:"field,omitempty"`

	Message string `json:"message"`
}

// Status summarizes a translation.
type Status string

const (
	StatusMatched   Status = "matched"
	StatusUnmatched Status = "unmatched"
	StatusFailed    Status = "failed"
)

// Result is the outcome of translating one span.
type Result struct {
	Event       *CanonicalEvent `json:"event"`
	Match       Match           `json:"match"`
	Diagnostics []Diagnostic    `json:"diagnostics,omitempty"`
	Status      Status          `json:"status"`

	// BundleVersion and BuildID identify the bundle snapshot used.
	BundleVersion string `json:"bundle_version,omitempty"`
	BuildID       string `json:"build_id,omitempty"`

	// Err is set when Status is StatusFailed.
	Err error `json:"-"`
}
