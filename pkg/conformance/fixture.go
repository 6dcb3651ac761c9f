package conformance

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"mercator-hq/prism/pkg/attrs"
	"mercator-hq/prism/pkg/bundle"
	"mercator-hq/prism/pkg/compiler"
	"mercator-hq/prism/pkg/rules"
)

// Fixture is one golden file.
type Fixture struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`

	// Rules is a rule directory, relative to the fixture file.
	Rules string `yaml:"rules"`

	// Bundle is a bundle file or split directory, relative to the fixture
	// file. Exactly one of Rules and Bundle is set.
	Bundle string `yaml:"bundle"`

	Cases []Case `yaml:"cases"`

	// Path is the file the fixture was read from.
	Path string `yaml:"-"`
}

// Case is one input and its expected translation.
type Case struct {
	Name       string         `yaml:"name"`
	Attributes map[string]any `yaml:"attributes"`
	Expect     Expectation    `yaml:"expect"`
}

// Expectation describes the expected result. Empty Provider and Pattern are
// not checked; a nil Event is not checked. Sections missing from Event are
// expected to be empty.
type Expectation struct {
	Status      string         `yaml:"status"`
	Provider    string         `yaml:"provider"`
	Pattern     string         `yaml:"pattern"`
	Path        string         `yaml:"path"`
	Event       map[string]any `yaml:"event"`
	Diagnostics []string       `yaml:"diagnostics"`
}

// LoadFixture reads and checks one fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture: %w", err)
	}

	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("fixture %s: %w", path, err)
	}
	f.Path = path
	if f.Name == "" {
		f.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if err := f.validate(); err != nil {
		return nil, fmt.Errorf("fixture %s: %w", path, err)
	}
	return &f, nil
}

// LoadDir reads every *.yaml and *.yml fixture in dir, sorted by file name.
func LoadDir(dir string) ([]*Fixture, error) {
	files, err := rules.ListFiles(dir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no fixtures found in %s", dir)
	}
	sort.Strings(files)

	fixtures := make([]*Fixture, 0, len(files))
	for _, file := range files {
		f, err := LoadFixture(file)
		if err != nil {
			return nil, err
		}
		fixtures = append(fixtures, f)
	}
	return fixtures, nil
}

func (f *Fixture) validate() error {
	if (f.Rules == "") == (f.Bundle == "") {
		return fmt.Errorf("exactly one of rules and bundle must be set")
	}
	if len(f.Cases) == 0 {
		return fmt.Errorf("no cases")
	}
	seen := make(map[string]bool, len(f.Cases))
	for i, c := range f.Cases {
		if c.Name == "" {
			return fmt.Errorf("case %d has no name", i)
		}
		if seen[c.Name] {
			return fmt.Errorf("duplicate case %q", c.Name)
		}
		seen[c.Name] = true
		switch c.Expect.Status {
		case "matched", "unmatched", "failed":
		default:
			return fmt.Errorf("case %q: status must be matched, unmatched or failed", c.Name)
		}
		for section := range c.Expect.Event {
			if !bundle.IsSection(section) {
				return fmt.Errorf("case %q: unknown event section %q", c.Name, section)
			}
		}
	}
	return nil
}

// Source compiles the fixture's rules, or loads its bundle.
func (f *Fixture) Source(ctx context.Context) (bundle.Source, error) {
	base := filepath.Dir(f.Path)
	if f.Bundle != "" {
		b, err := bundle.Load(filepath.Join(base, f.Bundle))
		if err != nil {
			return nil, err
		}
		return b, nil
	}

	sets, err := rules.LoadDirectory(ctx, filepath.Join(base, f.Rules))
	if err != nil {
		return nil, err
	}
	b, err := compiler.Compile(sets)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// attributes returns the case's attribute map with YAML numbers normalized.
func (c *Case) attributes() (attrs.Map, error) {
	m := make(attrs.Map, len(c.Attributes))
	for k, v := range c.Attributes {
		n, err := attrs.NormalizeValue(v)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", k, err)
		}
		m[k] = n
	}
	return m, nil
}
