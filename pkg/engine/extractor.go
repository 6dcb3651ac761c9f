package engine

import (
	"errors"
	"maps"

	"mercator-hq/prism/pkg/attrs"
	"mercator-hq/prism/pkg/bundle"
	"mercator-hq/prism/pkg/transforms"
)

// Extractor runs extraction steps. It is stateless apart from its registry
// and safe for concurrent use.
type Extractor struct {
	registry *transforms.Registry
}

// NewExtractor creates an extractor. A nil registry means
// transforms.Default().
func NewExtractor(registry *transforms.Registry) *Extractor {
	if registry == nil {
		registry = transforms.Default()
	}
	return &Extractor{registry: registry}
}

// Extract runs the steps of the matched source in order and returns the
// accumulated fields. catalog is the bundle's transform catalog.
func (x *Extractor) Extract(catalog map[string]*bundle.TransformDescriptor, ps *bundle.ProviderSection, match Match, m attrs.Map) (Fields, []Diagnostic) {
	d := newDiagnostics(match, 0)
	fields := x.extract(catalog, ps, match, m, d)
	return fields, d.list
}

func (x *Extractor) extract(catalog map[string]*bundle.TransformDescriptor, ps *bundle.ProviderSection, match Match, m attrs.Map, d *diagnostics) Fields {
	fields := Fields{}
	steps := ps.Steps(match.Source)
	if steps == nil {
		d.anomaly("", "no extraction steps for source %q", match.Source)
		return fields
	}

	for _, s := range steps {
		switch s.Op {
		case bundle.OpDirectCopy:
			x.directCopy(s, m, fields)
		case bundle.OpReconstructArray:
			x.reconstruct(s, m, fields, d)
		case bundle.OpTransform:
			x.transform(catalog, s, m, fields, d)
		default:
			d.anomaly(s.Target, "unknown op %q", s.Op)
			storeFallback(s, fields)
		}
	}
	return fields
}

// directCopy stores the attribute at source_path, nil included. A missing
// attribute falls back to the step's fallback when one is defined.
func (x *Extractor) directCopy(s *bundle.StepDescriptor, m attrs.Map, fields Fields) {
	if v, ok := m[s.SourcePath]; ok {
		fields[s.Target] = v
		return
	}
	storeFallback(s, fields)
}

func (x *Extractor) reconstruct(s *bundle.StepDescriptor, m attrs.Map, fields Fields, d *diagnostics) {
	params := s.Params
	if s.SourcePath != "" {
		params = maps.Clone(s.Params)
		if params == nil {
			params = make(map[string]any, 1)
		}
		params[transforms.ParamPrefix] = s.SourcePath
	}

	v, err := x.registry.Apply(transforms.IDReconstructArray, transforms.Input{
		Params:     params,
		Attributes: m,
		Warn: func(format string, args ...any) {
			d.anomaly(s.Target, format, args...)
		},
	})
	if err != nil {
		d.anomaly(s.Target, "reconstruct_array: %v", err)
		if !storeFallback(s, fields) {
			fields[s.Target] = []any{}
		}
		return
	}
	fields[s.Target] = v
}

// transform applies a catalog transform to accumulator values. Failures store
// the fallback, or null when none is defined.
func (x *Extractor) transform(catalog map[string]*bundle.TransformDescriptor, s *bundle.StepDescriptor, m attrs.Map, fields Fields, d *diagnostics) {
	desc := catalog[s.Transform]
	if desc == nil {
		d.anomaly(s.Target, "transform %q is not in the bundle catalog", s.Transform)
		storeFallbackOrNull(s, fields)
		return
	}

	names := s.Sources
	if len(names) == 0 && s.SourcePath != "" {
		names = []string{s.SourcePath}
	}
	args := make([]transforms.Value, len(names))
	for i, name := range names {
		v, ok := fields[name]
		if !ok {
			d.anomaly(s.Target, "source %q was never populated", name)
		}
		args[i] = transforms.Value{V: v, Present: ok}
	}

	v, err := x.registry.Apply(desc.ImplementationID, transforms.Input{
		Args:       args,
		Params:     transforms.MergeParams(desc.Params, s.Params),
		Attributes: m,
		Warn: func(format string, args ...any) {
			d.anomaly(s.Target, format, args...)
		},
	})
	switch {
	case errors.Is(err, transforms.ErrUnknownTransform):
		d.anomaly(s.Target, "implementation %q of transform %q is not available in this runtime", desc.ImplementationID, s.Transform)
		storeFallbackOrNull(s, fields)
	case err != nil:
		d.anomaly(s.Target, "transform %q: %v", s.Transform, err)
		storeFallbackOrNull(s, fields)
	case v == nil:
		storeFallbackOrNull(s, fields)
	default:
		fields[s.Target] = v
	}
}

// storeFallback stores the step's fallback if one is defined.
func storeFallback(s *bundle.StepDescriptor, fields Fields) bool {
	v, ok := s.FallbackValue()
	if ok {
		fields[s.Target] = detach(v)
	}
	return ok
}

func storeFallbackOrNull(s *bundle.StepDescriptor, fields Fields) {
	if !storeFallback(s, fields) {
		fields[s.Target] = nil
	}
}

// detach deep-copies structured literals so that events never alias bundle
// state.
func detach(v any) any {
	switch x := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = detach(e)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = detach(e)
		}
		return out
	default:
		return v
	}
}
