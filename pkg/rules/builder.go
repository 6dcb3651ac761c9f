package rules

import (
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"mercator-hq/prism/pkg/attrs"
)

// builder turns the intermediate YAML structures into a RuleSet, collecting
// every structural problem it finds.
type builder struct {
	sourcePath string
	errors     *ErrorList
}

func newBuilder(sourcePath string) *builder {
	return &builder{
		sourcePath: sourcePath,
		errors:     NewErrorList(),
	}
}

func (b *builder) loc(line, column int) Location {
	return Location{File: b.sourcePath, Line: line, Column: column}
}

func (b *builder) structural(loc Location, format string, args ...any) {
	b.errors.AddError(ErrorTypeStructural, fmt.Sprintf(format, args...), loc)
}

func (b *builder) buildRuleSet(y *yamlRuleSet) (*RuleSet, error) {
	rs := &RuleSet{
		Provider:    y.Provider,
		Description: y.Description,
		Transforms:  make(map[string]*TransformAlias, len(y.Transforms)),
		Patterns:    make([]*Pattern, 0, len(y.Patterns)),
		Extractors:  make(map[string][]*Step, len(y.Extractors)),
		Mappings:    make(map[string]map[string]*Mapping, len(y.Mappings)),
		SourceFile:  b.sourcePath,
		Location:    b.loc(1, 1),
	}

	b.checkTopLevelKeys(y.node)

	if rs.Provider == "" {
		b.errors.AddErrorWithSuggestion(ErrorTypeStructural, "Rule set is missing 'provider'",
			rs.Location, "Add a top-level 'provider: <id>' key")
	}

	for _, name := range sortedKeys(y.Transforms) {
		if alias := b.buildTransform(name, y.Transforms[name]); alias != nil {
			rs.Transforms[name] = alias
		}
	}

	for i := range y.Patterns {
		if p := b.buildPattern(i, &y.Patterns[i]); p != nil {
			rs.Patterns = append(rs.Patterns, p)
		}
	}

	for _, source := range sortedKeys(y.Extractors) {
		ys := y.Extractors[source]
		steps := make([]*Step, 0, len(ys))
		for i := range ys {
			if s := b.buildStep(source, i, &ys[i]); s != nil {
				steps = append(steps, s)
			}
		}
		rs.Extractors[source] = steps
	}

	for _, section := range sortedKeys(y.Mappings) {
		rows := y.Mappings[section]
		fields := make(map[string]*Mapping, len(rows))
		for _, field := range sortedKeys(rows) {
			if m := b.buildMapping(section, field, rows[field]); m != nil {
				fields[field] = m
			}
		}
		rs.Mappings[section] = fields
	}

	if b.errors.HasErrors() {
		return nil, b.errors
	}
	return rs, nil
}

func (b *builder) checkTopLevelKeys(doc *yaml.Node) {
	root := rootMapping(doc)
	if root == nil {
		return
	}
	for i := 0; i+1 < len(root.Content); i += 2 {
		k := root.Content[i]
		if !ruleSetKeys[k.Value] {
			b.structural(b.loc(k.Line, k.Column), "Unknown top-level key %q", k.Value)
		}
	}
}

func (b *builder) buildTransform(name string, y yamlTransform) *TransformAlias {
	loc := b.loc(y.line, y.column)
	if y.Implementation == "" {
		b.errors.AddErrorWithSuggestion(ErrorTypeStructural,
			fmt.Sprintf("Transform %q is missing 'implementation'", name), loc,
			"Name a registered implementation such as first_non_null")
		return nil
	}
	params, err := normalizeParams(y.Params)
	if err != nil {
		b.structural(loc, "Transform %q has invalid params: %v", name, err)
		return nil
	}
	return &TransformAlias{
		Name:           name,
		Implementation: y.Implementation,
		Description:    y.Description,
		Params:         params,
		Location:       loc,
	}
}

func (b *builder) buildPattern(index int, y *yamlPattern) *Pattern {
	loc := b.loc(y.line, y.column)
	ok := true
	if y.ID == "" {
		b.structural(loc, "Pattern at index %d is missing 'id'", index)
		ok = false
	}
	if y.Source == "" {
		b.structural(loc, "Pattern %q is missing 'source'", y.ID)
		ok = false
	}

	constraints := make(map[string]any, len(y.ValueConstraints))
	for _, key := range sortedKeys(y.ValueConstraints) {
		v, err := attrs.Normalize(y.ValueConstraints[key])
		if err != nil {
			b.structural(loc, "Pattern %q: value constraint on %q must be a scalar: %v", y.ID, key, err)
			ok = false
			continue
		}
		constraints[key] = v
	}
	if !ok {
		return nil
	}

	p := &Pattern{
		ID:               y.ID,
		Source:           y.Source,
		RequiredKeys:     y.RequiredKeys,
		OptionalKeys:     y.OptionalKeys,
		ValueConstraints: constraints,
		Confidence:       DefaultConfidence,
		Priority:         DefaultPriority,
		Location:         loc,
	}
	if y.Confidence != nil {
		p.Confidence = *y.Confidence
	}
	if y.Priority != nil {
		p.Priority = *y.Priority
	}
	return p
}

func (b *builder) buildStep(source string, index int, y *yamlStep) *Step {
	loc := b.loc(y.line, y.column)
	ok := true
	if y.Op == "" {
		b.structural(loc, "Step %d of extractor %q is missing 'op'", index, source)
		ok = false
	}
	if y.Target == "" {
		b.structural(loc, "Step %d of extractor %q is missing 'target'", index, source)
		ok = false
	}
	fallback, err := literal(&y.Fallback)
	if err == nil && fallback.Set {
		fallback.Value, err = attrs.NormalizeValue(fallback.Value)
	}
	if err != nil {
		b.structural(loc, "Step %d of extractor %q has an invalid fallback: %v", index, source, err)
		ok = false
	}
	params, err := normalizeParams(y.Params)
	if err != nil {
		b.structural(loc, "Step %d of extractor %q has invalid params: %v", index, source, err)
		ok = false
	}
	if !ok {
		return nil
	}
	return &Step{
		Op:         y.Op,
		SourcePath: y.SourcePath,
		Sources:    y.Sources,
		Target:     y.Target,
		Transform:  y.Transform,
		Fallback:   fallback,
		Params:     params,
		Location:   loc,
	}
}

func (b *builder) buildMapping(section, field string, y yamlMapping) *Mapping {
	loc := b.loc(y.line, y.column)
	if y.Source == "" {
		b.errors.AddErrorWithSuggestion(ErrorTypeStructural,
			fmt.Sprintf("Mapping %s.%s is missing 'source'", section, field), loc,
			"Write the row as 'field: source_name' or '{source: source_name}'")
		return nil
	}
	def, err := literal(&y.Default)
	if err == nil && def.Set {
		def.Value, err = attrs.NormalizeValue(def.Value)
	}
	if err != nil {
		b.structural(loc, "Mapping %s.%s has an invalid default: %v", section, field, err)
		return nil
	}
	return &Mapping{
		Section:  section,
		Field:    field,
		Source:   y.Source,
		Required: y.Required,
		Default:  def,
		Location: loc,
	}
}

func normalizeParams(params map[string]any) (map[string]any, error) {
	if len(params) == 0 {
		return nil, nil
	}
	v, err := attrs.NormalizeValue(params)
	if err != nil {
		return nil, err
	}
	return v.(map[string]any), nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
