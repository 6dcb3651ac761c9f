package compiler

import (
	"fmt"
	"strings"

	"mercator-hq/prism/pkg/rules"
)

// ErrorKind classifies a compile error.
type ErrorKind string

const (
	KindInvalidProvider       ErrorKind = "invalid_provider"
	KindDuplicateProvider     ErrorKind = "duplicate_provider"
	KindDuplicatePattern      ErrorKind = "duplicate_pattern"
	KindEmptyRequiredKeys     ErrorKind = "empty_required_keys"
	KindInvalidKey            ErrorKind = "invalid_key"
	KindConfidence            ErrorKind = "invalid_confidence"
	KindSignatureCollision    ErrorKind = "signature_collision"
	KindMissingExtractor      ErrorKind = "missing_extractor"
	KindUnknownOp             ErrorKind = "unknown_op"
	KindMissingSourcePath     ErrorKind = "missing_source_path"
	KindDuplicateTarget       ErrorKind = "duplicate_target"
	KindUnknownSource         ErrorKind = "unknown_source"
	KindUnknownTransform      ErrorKind = "unknown_transform"
	KindUnknownImplementation ErrorKind = "unknown_implementation"
	KindTransformConflict     ErrorKind = "transform_conflict"
	KindInvalidParams         ErrorKind = "invalid_params"
	KindUnknownSection        ErrorKind = "unknown_section"
	KindMalformedRules        ErrorKind = "malformed_rules"
)

// CompileError is one reason a build failed. It names the provider, pattern
// and step involved where they apply.
type CompileError struct {
	Kind     ErrorKind
	Provider string
	Pattern  string
	Step     string
	Reason   string
	Location rules.Location
}

// Error implements the error interface.
func (e *CompileError) Error() string {
	var parts []string
	if e.Provider != "" {
		parts = append(parts, "provider "+e.Provider)
	}
	if e.Pattern != "" {
		parts = append(parts, "pattern "+e.Pattern)
	}
	if e.Step != "" {
		parts = append(parts, "step "+e.Step)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("[%s] ", e.Kind))
	if len(parts) > 0 {
		sb.WriteString(strings.Join(parts, " "))
		sb.WriteString(": ")
	}
	sb.WriteString(e.Reason)
	if e.Location.IsValid() {
		sb.WriteString(" (")
		sb.WriteString(e.Location.String())
		sb.WriteString(")")
	}
	return sb.String()
}

// ErrorList collects every compile error of a build.
type ErrorList struct {
	Errors []*CompileError
}

// Add appends an error.
func (el *ErrorList) Add(err *CompileError) {
	el.Errors = append(el.Errors, err)
}

// HasErrors returns true if the list contains any errors.
func (el *ErrorList) HasErrors() bool {
	return len(el.Errors) > 0
}

// Count returns the number of errors.
func (el *ErrorList) Count() int {
	return len(el.Errors)
}

// ByKind returns all errors of the given kind.
func (el *ErrorList) ByKind(kind ErrorKind) []*CompileError {
	var result []*CompileError
	for _, e := range el.Errors {
		if e.Kind == kind {
			result = append(result, e)
		}
	}
	return result
}

// Error implements the error interface.
func (el *ErrorList) Error() string {
	if !el.HasErrors() {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("compile failed with %d error(s):\n", el.Count()))
	for _, e := range el.Errors {
		sb.WriteString("  ")
		sb.WriteString(e.Error())
		sb.WriteString("\n")
	}
	return sb.String()
}

// ToError returns nil if the list is empty, otherwise the list itself.
func (el *ErrorList) ToError() error {
	if !el.HasErrors() {
		return nil
	}
	return el
}
