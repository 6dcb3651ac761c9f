package rules

import (
	"fmt"
	"os"
)

// Parser parses rule files into RuleSets.
type Parser struct {
	maxFileSize int64 // Maximum file size in bytes (default: 10MB)
}

// NewParser creates a new parser with default configuration.
func NewParser() *Parser {
	return &Parser{
		maxFileSize: 10 * 1024 * 1024,
	}
}

// WithMaxFileSize sets the maximum file size limit.
func (p *Parser) WithMaxFileSize(size int64) *Parser {
	p.maxFileSize = size
	return p
}

// Parse parses the rule file at path. Structural problems are returned
// together as an *ErrorList with source context attached.
func (p *Parser) Parse(path string) (*RuleSet, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &Error{
			Type:     ErrorTypeIO,
			Message:  fmt.Sprintf("Failed to access file: %v", err),
			Location: Location{File: path},
		}
	}
	if info.Size() > p.maxFileSize {
		return nil, &Error{
			Type:     ErrorTypeIO,
			Message:  fmt.Sprintf("File size %d exceeds maximum %d bytes", info.Size(), p.maxFileSize),
			Location: Location{File: path},
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{
			Type:     ErrorTypeIO,
			Message:  fmt.Sprintf("Failed to read file: %v", err),
			Location: Location{File: path},
		}
	}

	rs, err := p.ParseBytes(data, path)
	if el, ok := err.(*ErrorList); ok {
		addContext(el)
	}
	return rs, err
}

// ParseBytes parses rule YAML held in memory. sourcePath is only used for
// locations in errors.
func (p *Parser) ParseBytes(data []byte, sourcePath string) (*RuleSet, error) {
	if int64(len(data)) > p.maxFileSize {
		return nil, &Error{
			Type:     ErrorTypeIO,
			Message:  fmt.Sprintf("Data size %d exceeds maximum %d bytes", len(data), p.maxFileSize),
			Location: Location{File: sourcePath},
		}
	}

	y, err := parseYAMLBytes(data)
	if err != nil {
		return nil, &Error{
			Type:       ErrorTypeSyntax,
			Message:    fmt.Sprintf("YAML parsing failed: %v", err),
			Location:   Location{File: sourcePath, Line: 1, Column: 1},
			Suggestion: "Check YAML syntax (indentation, colons, quotes)",
		}
	}

	return newBuilder(sourcePath).buildRuleSet(y)
}
