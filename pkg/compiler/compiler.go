package compiler

import (
	"fmt"
	"log/slog"
	"maps"
	"math"
	"reflect"
	"sort"
	"strings"

	"mercator-hq/prism/pkg/attrs"
	"mercator-hq/prism/pkg/bundle"
	"mercator-hq/prism/pkg/rules"
	"mercator-hq/prism/pkg/transforms"
)

// Options configures a Compiler.
type Options struct {
	// Registry resolves implementation ids. Defaults to transforms.Default().
	Registry *transforms.Registry

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Compiler turns rule sets into a bundle.
type Compiler struct {
	registry *transforms.Registry
	logger   *slog.Logger
}

// New creates a compiler.
func New(opts Options) *Compiler {
	if opts.Registry == nil {
		opts.Registry = transforms.Default()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Compiler{
		registry: opts.Registry,
		logger:   opts.Logger.With("component", "compiler"),
	}
}

// Compile compiles rule sets with the default registry.
func Compile(sets []*rules.RuleSet) (*bundle.Bundle, error) {
	return New(Options{}).Compile(sets)
}

// build holds the state of one compilation.
type build struct {
	registry *transforms.Registry
	errs     *ErrorList
	b        *bundle.Bundle

	providers   map[string]*rules.RuleSet
	patternIDs  map[string]string // pattern id -> provider
	patterns    []*bundle.PatternDescriptor
	aliasOwners map[string]string // alias name -> provider
	locations   map[string]rules.Location
}

// Compile validates sets and builds a sealed bundle. Every problem found is
// reported in a single *ErrorList; no bundle is returned unless there are
// none. Compiling the same rule sets twice yields identical bundles,
// including the build id.
func (c *Compiler) Compile(sets []*rules.RuleSet) (*bundle.Bundle, error) {
	st := &build{
		registry: c.registry,
		errs:     &ErrorList{},
		b: &bundle.Bundle{
			Version:        bundle.CurrentVersion,
			SignatureIndex: map[string]bundle.SignatureEntry{},
			PatternCatalog: map[string][]*bundle.PatternDescriptor{},
			Extractors:     map[string][]*bundle.StepDescriptor{},
			Mappings:       map[string]bundle.MappingTable{},
			Transforms:     map[string]*bundle.TransformDescriptor{},
		},
		providers:   map[string]*rules.RuleSet{},
		patternIDs:  map[string]string{},
		aliasOwners: map[string]string{},
		locations:   map[string]rules.Location{},
	}

	ordered := make([]*rules.RuleSet, 0, len(sets))
	for _, rs := range sets {
		if rs != nil {
			ordered = append(ordered, rs)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Provider < ordered[j].Provider })

	st.buildTransforms(ordered)
	for _, rs := range ordered {
		st.buildProvider(rs)
	}
	st.buildSignatureIndex()
	if len(st.patterns) == 0 && !st.errs.HasErrors() {
		st.fail(KindMalformedRules, "", "", "", rules.Location{}, "rule sets declare no patterns")
	}

	if st.errs.HasErrors() {
		c.logger.Error("Compile failed", "errors", st.errs.Count())
		return nil, st.errs
	}

	id, err := buildID(st.b)
	if err != nil {
		return nil, fmt.Errorf("failed to compute build id: %w", err)
	}
	st.b.BuildID = id
	if err := st.b.Seal(); err != nil {
		return nil, fmt.Errorf("compiler produced an invalid bundle: %w", err)
	}

	c.logger.Info("Bundle compiled",
		"bundle_version", st.b.Version,
		"build_id", st.b.BuildID,
		"providers", len(st.b.PatternCatalog),
		"patterns", len(st.patterns),
		"signatures", len(st.b.SignatureIndex),
	)
	return st.b, nil
}

func (st *build) fail(kind ErrorKind, provider, pattern, step string, loc rules.Location, format string, args ...any) {
	st.errs.Add(&CompileError{
		Kind:     kind,
		Provider: provider,
		Pattern:  pattern,
		Step:     step,
		Reason:   fmt.Sprintf(format, args...),
		Location: loc,
	})
}

// buildTransforms fills the transform catalog: every registered
// implementation under its own id, then rule set aliases.
func (st *build) buildTransforms(sets []*rules.RuleSet) {
	for _, id := range st.registry.IDs() {
		def := st.registry.Lookup(id)
		st.b.Transforms[id] = &bundle.TransformDescriptor{
			Description:      def.Description,
			ImplementationID: id,
			ParamSchema:      maps.Clone(def.ParamSchema),
		}
	}

	for _, rs := range sets {
		names := make([]string, 0, len(rs.Transforms))
		for name := range rs.Transforms {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			alias := rs.Transforms[name]
			def := st.registry.Lookup(alias.Implementation)
			if def == nil {
				st.fail(KindUnknownImplementation, rs.Provider, "", "", alias.Location,
					"transform %q names unknown implementation %q", name, alias.Implementation)
				continue
			}
			params, err := attrs.NormalizeValue(alias.Params)
			if err != nil {
				st.fail(KindInvalidParams, rs.Provider, "", "", alias.Location, "transform %q: %v", name, err)
				continue
			}
			p, _ := params.(map[string]any)
			if len(p) == 0 {
				p = nil
			}
			if err := transforms.CheckParams(def, p); err != nil {
				st.fail(KindInvalidParams, rs.Provider, "", "", alias.Location, "%v", err)
				continue
			}

			desc := &bundle.TransformDescriptor{
				Description:      alias.Description,
				ImplementationID: alias.Implementation,
				ParamSchema:      maps.Clone(def.ParamSchema),
				Params:           p,
			}
			if existing, ok := st.b.Transforms[name]; ok {
				if existing.ImplementationID != desc.ImplementationID || !reflect.DeepEqual(existing.Params, desc.Params) {
					owner := st.aliasOwners[name]
					if owner == "" {
						owner = "the registry"
					}
					st.fail(KindTransformConflict, rs.Provider, "", "", alias.Location,
						"transform %q is already defined differently by %s", name, owner)
				}
				continue
			}
			st.b.Transforms[name] = desc
			st.aliasOwners[name] = rs.Provider
		}
	}
}

func (st *build) buildProvider(rs *rules.RuleSet) {
	provider := rs.Provider
	if !bundle.ValidProviderID(provider) {
		st.fail(KindInvalidProvider, provider, "", "", rs.Location,
			"provider id %q may only contain letters, digits, '.', '_' and '-'", provider)
		return
	}
	if prev, dup := st.providers[provider]; dup {
		st.fail(KindDuplicateProvider, provider, "", "", rs.Location,
			"provider is also defined in %s", prev.SourceFile)
		return
	}
	st.providers[provider] = rs

	catalog := make([]*bundle.PatternDescriptor, 0, len(rs.Patterns))
	for _, p := range rs.Patterns {
		if d := st.buildPattern(rs, p); d != nil {
			catalog = append(catalog, d)
		}
	}
	bundle.SortCatalog(catalog)
	st.b.PatternCatalog[provider] = catalog
	st.patterns = append(st.patterns, catalog...)

	produced := make(map[string]bool)
	sources := make([]string, 0, len(rs.Extractors))
	for source := range rs.Extractors {
		sources = append(sources, source)
	}
	sort.Strings(sources)
	for _, source := range sources {
		steps := st.buildSteps(provider, source, rs.Extractors[source], produced)
		st.b.Extractors[bundle.ExtractorKey(provider, source)] = steps
	}

	if table := st.buildMappings(rs, produced); len(table) > 0 {
		st.b.Mappings[provider] = table
	}
}

func (st *build) buildPattern(rs *rules.RuleSet, p *rules.Pattern) *bundle.PatternDescriptor {
	provider := rs.Provider
	ok := true

	if owner, dup := st.patternIDs[p.ID]; dup {
		st.fail(KindDuplicatePattern, provider, p.ID, "", p.Location,
			"pattern id is already used by provider %s", owner)
		ok = false
	}

	required := attrs.SortedSet(p.RequiredKeys)
	if len(required) == 0 {
		st.fail(KindEmptyRequiredKeys, provider, p.ID, "", p.Location, "required_keys must not be empty")
		ok = false
	}
	for _, k := range required {
		if k == "" || strings.Contains(k, attrs.KeySetSeparator) {
			st.fail(KindInvalidKey, provider, p.ID, "", p.Location,
				"required key %q must be non-empty and must not contain %q", k, attrs.KeySetSeparator)
			ok = false
		}
	}

	if math.IsNaN(p.Confidence) || p.Confidence < 0 || p.Confidence > 1 {
		st.fail(KindConfidence, provider, p.ID, "", p.Location,
			"confidence %v is outside [0, 1]", p.Confidence)
		ok = false
	}

	if _, has := rs.Extractors[p.Source]; !has {
		st.fail(KindMissingExtractor, provider, p.ID, "", p.Location,
			"source %q has no extractor", p.Source)
		ok = false
	}

	var constraints map[string]any
	if len(p.ValueConstraints) > 0 {
		constraints = make(map[string]any, len(p.ValueConstraints))
		for k, v := range p.ValueConstraints {
			n, err := attrs.Normalize(v)
			if err != nil {
				st.fail(KindMalformedRules, provider, p.ID, "", p.Location,
					"value constraint on %q: %v", k, err)
				ok = false
				continue
			}
			constraints[k] = n
		}
	}

	if p.ID != "" {
		if _, dup := st.patternIDs[p.ID]; !dup {
			st.patternIDs[p.ID] = provider
		}
	}
	if !ok {
		return nil
	}

	st.locations[p.ID] = p.Location

	var optional []string
	if len(p.OptionalKeys) > 0 {
		optional = attrs.SortedSet(p.OptionalKeys)
	}
	return &bundle.PatternDescriptor{
		ID:               p.ID,
		Source:           p.Source,
		RequiredKeys:     required,
		OptionalKeys:     optional,
		ValueConstraints: constraints,
		Confidence:       p.Confidence,
		Priority:         p.Priority,
		Provider:         provider,
	}
}
