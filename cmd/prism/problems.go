package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"mercator-hq/prism/pkg/bundle"
	"mercator-hq/prism/pkg/compiler"
	"mercator-hq/prism/pkg/rules"
)

// Problem is one rule or compile error in command output.
type Problem struct {
	Kind     string `json:"kind" yaml:"kind"`
	Provider string `json:"provider,omitempty" yaml:"provider,omitempty"`
	Pattern  string `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	Step     string `json:"step,omitempty" yaml:"step,omitempty"`
	Message  string `json:"message" yaml:"message"`
	File     string `json:"file,omitempty" yaml:"file,omitempty"`
	Line     int    `json:"line,omitempty" yaml:"line,omitempty"`
	Column   int    `json:"column,omitempty" yaml:"column,omitempty"`
}

func (p Problem) String() string {
	where := ""
	switch {
	case p.Line > 0:
		where = fmt.Sprintf("%s:%d:%d: ", p.File, p.Line, p.Column)
	case p.File != "":
		where = p.File + ": "
	}
	subject := ""
	if p.Provider != "" {
		subject += "provider " + p.Provider + " "
	}
	if p.Pattern != "" {
		subject += "pattern " + p.Pattern + " "
	}
	if p.Step != "" {
		subject += "step " + p.Step + " "
	}
	return fmt.Sprintf("%s[%s] %s%s", where, p.Kind, subject, p.Message)
}

// problemsOf flattens rule and compile error lists. ok is false for any
// other error, which is returned as is by callers.
func problemsOf(err error) (problems []Problem, ok bool) {
	var (
		rl *rules.ErrorList
		re *rules.Error
		cl *compiler.ErrorList
	)
	switch {
	case errors.As(err, &rl):
		for _, e := range rl.Errors {
			problems = append(problems, ruleProblem(e))
		}
	case errors.As(err, &re):
		problems = append(problems, ruleProblem(re))
	case errors.As(err, &cl):
		for _, e := range cl.Errors {
			problems = append(problems, Problem{
				Kind:     string(e.Kind),
				Provider: e.Provider,
				Pattern:  e.Pattern,
				Step:     e.Step,
				Message:  e.Reason,
				File:     e.Location.File,
				Line:     e.Location.Line,
				Column:   e.Location.Column,
			})
		}
	default:
		return nil, false
	}
	return problems, true
}

func ruleProblem(e *rules.Error) Problem {
	return Problem{
		Kind:    string(e.Type),
		Message: e.Message,
		File:    e.Location.File,
		Line:    e.Location.Line,
		Column:  e.Location.Column,
	}
}

// buildBundle loads and compiles a rules directory. Rule and compile errors
// come back as problems with a nil error.
func buildBundle(ctx context.Context, rulesDir string, logger *slog.Logger) (*bundle.Bundle, []Problem, error) {
	sets, err := rules.LoadDirectory(ctx, rulesDir)
	if err == nil {
		var b *bundle.Bundle
		b, err = compiler.New(compiler.Options{Logger: logger}).Compile(sets)
		if err == nil {
			return b, nil, nil
		}
	}
	if problems, ok := problemsOf(err); ok {
		return nil, problems, nil
	}
	return nil, nil, err
}

func writeProblems(w io.Writer, problems []Problem) {
	for _, p := range problems {
		fmt.Fprintln(w, p.String())
	}
}
