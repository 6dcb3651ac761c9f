package rules

import "fmt"

// Default pattern ranking values applied when a rule omits them.
const (
	DefaultPriority   = 100
	DefaultConfidence = 1.0
)

// Location is the source position of a rule element.
type Location struct {
	File   string // Path to the rule file
	Line   int    // Line number (1-based)
	Column int    // Column number (1-based)
}

// String returns "file:line:column".
func (l Location) String() string {
	if l.File == "" {
		return "<unknown>"
	}
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
}

// IsValid returns true if the location has file and line information.
func (l Location) IsValid() bool {
	return l.File != "" && l.Line > 0
}

// RuleSet is the parsed form of one rule file.
type RuleSet struct {
	Provider    string
	Description string

	// Transforms are aliases keyed by name.
	Transforms map[string]*TransformAlias

	Patterns []*Pattern

	// Extractors are step lists keyed by source id.
	Extractors map[string][]*Step

	// Mappings are keyed by section, then target field.
	Mappings map[string]map[string]*Mapping

	SourceFile string
	Location   Location
}

// TransformAlias binds a rule-local transform name to a registered
// implementation id, optionally with fixed parameters.
type TransformAlias struct {
	Name           string
	Implementation string
	Description    string
	Params         map[string]any
	Location       Location
}

// Pattern identifies spans produced by one source of a provider.
type Pattern struct {
	ID               string
	Source           string
	RequiredKeys     []string
	OptionalKeys     []string
	ValueConstraints map[string]any
	Confidence       float64
	Priority         int
	Location         Location
}

// Literal is a rule value that may be absent. Set distinguishes an explicit
// null (Set with a nil Value) from no value at all.
type Literal struct {
	Set   bool
	Value any
}

// Step is one extraction step.
type Step struct {
	Op         string
	SourcePath string
	Sources    []string
	Target     string
	Transform  string
	Fallback   Literal
	Params     map[string]any
	Location   Location
}

// Mapping routes one intermediate value to a canonical event field.
type Mapping struct {
	Section  string
	Field    string
	Source   string
	Required bool
	Default  Literal
	Location Location
}
