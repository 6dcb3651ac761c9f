package transforms

import (
	"errors"
	"fmt"
	"sort"

	"mercator-hq/prism/pkg/attrs"
)

// Built-in implementation ids.
const (
	IDDirectCopy       = "direct_copy"
	IDFirstNonNull     = "first_non_null"
	IDPreserveString   = "preserve_string"
	IDToString         = "to_string"
	IDReconstructArray = "reconstruct_array"
	IDParseJSON        = "parse_json"
	IDJoin             = "join"
)

// ErrUnknownTransform is returned when an implementation id is not registered.
var ErrUnknownTransform = errors.New("unknown transform")

// Value is one transform input taken from the extraction accumulator.
// Present is false when the named source was never populated.
type Value struct {
	V       any
	Present bool
}

// Input carries everything a transform may read.
type Input struct {
	// Args are the accumulator values named by the step, in declared order.
	Args []Value

	// Params are the merged catalog and step parameters.
	Params map[string]any

	// Attributes is the span's attribute map. Only reconstruct_array reads it.
	Attributes attrs.Map

	// Warn records a non-fatal anomaly. It may be nil.
	Warn func(format string, args ...any)
}

func (in Input) warn(format string, args ...any) {
	if in.Warn != nil {
		in.Warn(format, args...)
	}
}

// Func is a pure transform implementation.
type Func func(in Input) (any, error)

// Definition describes a registered transform.
type Definition struct {
	ID          string
	Description string

	// ParamSchema maps parameter names to a type description
	// ("string", "bool", "[]string").
	ParamSchema map[string]string

	Fn Func
}

// Registry maps implementation ids to definitions. A Registry is immutable
// after construction and safe for concurrent use.
type Registry struct {
	defs map[string]*Definition
}

// NewRegistry builds a registry from definitions. Duplicate ids are an error.
func NewRegistry(defs ...*Definition) (*Registry, error) {
	r := &Registry{defs: make(map[string]*Definition, len(defs))}
	for _, d := range defs {
		if d == nil || d.ID == "" || d.Fn == nil {
			return nil, fmt.Errorf("transform definition must have an id and a function")
		}
		if _, dup := r.defs[d.ID]; dup {
			return nil, fmt.Errorf("transform %q registered twice", d.ID)
		}
		r.defs[d.ID] = d
	}
	return r, nil
}

var defaultRegistry = mustRegistry(builtins()...)

func mustRegistry(defs ...*Definition) *Registry {
	r, err := NewRegistry(defs...)
	if err != nil {
		panic(err)
	}
	return r
}

// Default returns the registry of built-in transforms.
func Default() *Registry {
	return defaultRegistry
}

// Lookup returns the definition for id, or nil if it is not registered.
func (r *Registry) Lookup(id string) *Definition {
	return r.defs[id]
}

// Has reports whether id is registered.
func (r *Registry) Has(id string) bool {
	_, ok := r.defs[id]
	return ok
}

// IDs returns all registered ids in ascending order.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.defs))
	for id := range r.defs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Apply runs the transform registered under id.
func (r *Registry) Apply(id string, in Input) (any, error) {
	d := r.defs[id]
	if d == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTransform, id)
	}
	return d.Fn(in)
}
