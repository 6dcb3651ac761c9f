// Package rules parses rule sets, the authoring format the bundle compiler
// consumes.
//
// A rule set describes one provider: the patterns that identify its spans,
// the extraction steps that pull values out of the flattened attributes, and
// the mapping from extracted values to canonical event fields. Rule sets are
// YAML files, one provider per file.
//
// # Basic Usage
//
// Parse a single file:
//
//	p := rules.NewParser()
//	rs, err := p.Parse("rules/openai.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Load a directory of rule files:
//
//	sets, err := rules.LoadDirectory(ctx, "rules/")
//
// # Format
//
//	provider: openai
//	transforms:
//	  coalesce_model: {implementation: first_non_null}
//	patterns:
//	  - id: openai.chat
//	    source: chat_completion
//	    required_keys: [gen_ai.system, gen_ai.response.model]
//	    value_constraints: {gen_ai.system: openai}
//	    confidence: 0.9
//	    priority: 10
//	extractors:
//	  chat_completion:
//	    - {op: direct_copy, source_path: gen_ai.response.model, target: model}
//	mappings:
//	  outputs:
//	    model: model
//	  config:
//	    temperature: {source: temperature, default: null}
//
// A mapping row may be written as a bare source name. The keys fallback and
// default are significant when present, even when their value is null.
//
// # Errors
//
// Parse errors are returned as an *ErrorList of *Error values carrying the
// file, line and column of the offending node. Semantic checks (signature
// collisions, unknown transforms) belong to the compiler.
package rules
