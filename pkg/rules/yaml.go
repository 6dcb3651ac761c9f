package rules

import (
	"gopkg.in/yaml.v3"
)

// yamlRuleSet is the intermediate structure a rule file decodes into before
// it is checked and turned into a RuleSet.
type yamlRuleSet struct {
	Provider    string                            `yaml:"provider"`
	Description string                            `yaml:"description"`
	Transforms  map[string]yamlTransform          `yaml:"transforms"`
	Patterns    []yamlPattern                     `yaml:"patterns"`
	Extractors  map[string][]yamlStep             `yaml:"extractors"`
	Mappings    map[string]map[string]yamlMapping `yaml:"mappings"`

	node *yaml.Node
}

var ruleSetKeys = map[string]bool{
	"provider":    true,
	"description": true,
	"transforms":  true,
	"patterns":    true,
	"extractors":  true,
	"mappings":    true,
}

type yamlTransform struct {
	Implementation string         `yaml:"implementation"`
	Description    string         `yaml:"description"`
	Params         map[string]any `yaml:"params"`

	line, column int
}

func (t *yamlTransform) UnmarshalYAML(n *yaml.Node) error {
	type plain yamlTransform
	var v plain
	if err := n.Decode(&v); err != nil {
		return err
	}
	*t = yamlTransform(v)
	t.line, t.column = n.Line, n.Column
	return nil
}

type yamlPattern struct {
	ID               string         `yaml:"id"`
	Source           string         `yaml:"source"`
	RequiredKeys     []string       `yaml:"required_keys"`
	OptionalKeys     []string       `yaml:"optional_keys"`
	ValueConstraints map[string]any `yaml:"value_constraints"`
	Confidence       *float64       `yaml:"confidence"` // Pointer to distinguish unset vs 0
	Priority         *int           `yaml:"priority"`

	line, column int
}

func (p *yamlPattern) UnmarshalYAML(n *yaml.Node) error {
	type plain yamlPattern
	var v plain
	if err := n.Decode(&v); err != nil {
		return err
	}
	*p = yamlPattern(v)
	p.line, p.column = n.Line, n.Column
	return nil
}

type yamlStep struct {
	Op         string         `yaml:"op"`
	SourcePath string         `yaml:"source_path"`
	Sources    []string       `yaml:"sources"`
	Target     string         `yaml:"target"`
	Transform  string         `yaml:"transform"`
	Params     map[string]any `yaml:"params"`

	// Kept as a node: a zero Kind means the key was absent, while
	// "fallback: null" is a defined null.
	Fallback yaml.Node `yaml:"fallback"`

	line, column int
}

func (s *yamlStep) UnmarshalYAML(n *yaml.Node) error {
	type plain yamlStep
	var v plain
	if err := n.Decode(&v); err != nil {
		return err
	}
	*s = yamlStep(v)
	s.line, s.column = n.Line, n.Column
	return nil
}

type yamlMapping struct {
	Source   string    `yaml:"source"`
	Required bool      `yaml:"required"`
	Default  yaml.Node `yaml:"default"`

	line, column int
}

// UnmarshalYAML accepts either a full row or a bare source name.
func (m *yamlMapping) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.ScalarNode && n.ShortTag() == "!!str" {
		*m = yamlMapping{Source: n.Value, line: n.Line, column: n.Column}
		return nil
	}
	type plain yamlMapping
	var v plain
	if err := n.Decode(&v); err != nil {
		return err
	}
	*m = yamlMapping(v)
	m.line, m.column = n.Line, n.Column
	return nil
}

// parseYAMLBytes parses rule YAML into the intermediate structure, keeping the
// document node for locations.
func parseYAMLBytes(data []byte) (*yamlRuleSet, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, err
	}

	var rs yamlRuleSet
	if node.Kind != 0 {
		if err := node.Decode(&rs); err != nil {
			return nil, err
		}
	}

	rs.node = &node
	return &rs, nil
}

// rootMapping returns the top-level mapping node of a document, or nil.
func rootMapping(doc *yaml.Node) *yaml.Node {
	if doc == nil {
		return nil
	}
	if doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 {
		doc = doc.Content[0]
	}
	if doc.Kind != yaml.MappingNode {
		return nil
	}
	return doc
}

// literal converts an optional YAML node into a Literal.
func literal(n *yaml.Node) (Literal, error) {
	if n == nil || n.Kind == 0 {
		return Literal{}, nil
	}
	var v any
	if err := n.Decode(&v); err != nil {
		return Literal{}, err
	}
	return Literal{Set: true, Value: v}, nil
}
