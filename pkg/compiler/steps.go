package compiler

import (
	"fmt"
	"maps"
	"sort"

	"mercator-hq/prism/pkg/bundle"
	"mercator-hq/prism/pkg/rules"
	"mercator-hq/prism/pkg/transforms"
)

// buildSteps compiles one step list. Targets produced by the list are added
// to produced, which the mapping check reads afterwards.
func (st *build) buildSteps(provider, source string, steps []*rules.Step, produced map[string]bool) []*bundle.StepDescriptor {
	out := make([]*bundle.StepDescriptor, 0, len(steps))
	local := make(map[string]bool, len(steps))

	for i, s := range steps {
		s := s
		name := fmt.Sprintf("%s[%d]", source, i)
		if s.Target != "" {
			name = fmt.Sprintf("%s[%d] %s", source, i, s.Target)
		}
		fail := func(kind ErrorKind, format string, args ...any) {
			st.fail(kind, provider, "", name, s.Location, format, args...)
		}

		if !bundle.IsOp(s.Op) {
			fail(KindUnknownOp, "unknown op %q (want direct_copy, reconstruct_array or transform)", s.Op)
			continue
		}
		if s.Target == "" {
			fail(KindMalformedRules, "step has no target")
			continue
		}
		if local[s.Target] {
			fail(KindDuplicateTarget, "target %q is already written by an earlier step", s.Target)
		}

		d := &bundle.StepDescriptor{
			Op:         s.Op,
			SourcePath: s.SourcePath,
			Target:     s.Target,
		}
		if len(s.Sources) > 0 {
			d.Sources = append([]string(nil), s.Sources...)
		}
		if len(s.Params) > 0 {
			d.Params = maps.Clone(s.Params)
		}
		if s.Fallback.Set {
			if err := d.SetFallback(s.Fallback.Value); err != nil {
				fail(KindMalformedRules, "fallback cannot be encoded: %v", err)
			}
		}

		switch s.Op {
		case bundle.OpDirectCopy:
			if s.SourcePath == "" {
				fail(KindMissingSourcePath, "direct_copy needs a source_path")
			}
			st.checkParams(transforms.IDDirectCopy, nil, d.Params, fail)

		case bundle.OpReconstructArray:
			if s.SourcePath == "" {
				if prefix, _ := d.Params[transforms.ParamPrefix].(string); prefix == "" {
					fail(KindMissingSourcePath, "reconstruct_array needs a source_path or a prefix param")
				}
			}
			st.checkParams(transforms.IDReconstructArray, nil, d.Params, fail)

		case bundle.OpTransform:
			d.Transform = s.Transform
			desc := st.b.Transforms[s.Transform]
			if desc == nil {
				fail(KindUnknownTransform, "transform %q is not in the catalog", s.Transform)
				break
			}
			inputs := d.Sources
			if len(inputs) == 0 && d.SourcePath != "" {
				inputs = []string{d.SourcePath}
			}
			if len(inputs) == 0 {
				fail(KindMissingSourcePath, "transform step needs sources or a source_path")
			}
			for _, in := range inputs {
				if !local[in] {
					fail(KindUnknownSource, "input %q is not produced by an earlier step", in)
				}
			}
			st.checkParams(desc.ImplementationID, desc.Params, d.Params, fail)
		}

		local[s.Target] = true
		produced[s.Target] = true
		out = append(out, d)
	}
	return out
}

// checkParams validates the merged catalog and step params of a step against
// the implementation's schema.
func (st *build) checkParams(implementation string, base, step map[string]any, fail func(ErrorKind, string, ...any)) {
	def := st.registry.Lookup(implementation)
	if def == nil {
		fail(KindUnknownImplementation, "implementation %q is not registered", implementation)
		return
	}
	if err := transforms.CheckParams(def, transforms.MergeParams(base, step)); err != nil {
		fail(KindInvalidParams, "%v", err)
	}
}

func (st *build) buildMappings(rs *rules.RuleSet, produced map[string]bool) bundle.MappingTable {
	table := bundle.MappingTable{}

	sections := make([]string, 0, len(rs.Mappings))
	for s := range rs.Mappings {
		sections = append(sections, s)
	}
	sort.Strings(sections)

	for _, section := range sections {
		rows := rs.Mappings[section]
		if !bundle.IsSection(section) {
			st.fail(KindUnknownSection, rs.Provider, "", "", rs.Location,
				"mapping section %q is not one of inputs, outputs, config, metadata", section)
			continue
		}

		fields := make(map[string]*bundle.FieldMapping, len(rows))
		for field, m := range rows {
			step := section + "." + field
			if m.Source == "" {
				st.fail(KindMalformedRules, rs.Provider, "", step, m.Location, "mapping has no source")
				continue
			}
			if !produced[m.Source] {
				st.fail(KindUnknownSource, rs.Provider, "", step, m.Location,
					"source %q is not produced by any extractor of this provider", m.Source)
				continue
			}
			fm := &bundle.FieldMapping{SourceName: m.Source, Required: m.Required}
			if m.Default.Set {
				if err := fm.SetDefault(m.Default.Value); err != nil {
					st.fail(KindMalformedRules, rs.Provider, "", step, m.Location, "default cannot be encoded: %v", err)
					continue
				}
			}
			fields[field] = fm
		}
		if len(fields) > 0 {
			table[section] = fields
		}
	}
	return table
}
