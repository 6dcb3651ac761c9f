package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"mercator-hq/prism/pkg/cli"
)

var validateFlags struct {
	rules  string
	format string
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check rule sets without writing a bundle",
	Long: `Validate every rule set in a directory.

Runs the full compile (YAML syntax, structure, patterns, steps, mappings and
signature collisions) and reports all problems, without writing anything.

Examples:
  # Validate a rules directory
  prism validate --rules rules/

  # JSON output for CI/CD
  prism validate --rules rules/ --format json`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVarP(&validateFlags.rules, "rules", "r", "", "rules directory (default from config: ./rules)")
	validateCmd.Flags().StringVar(&validateFlags.format, "format", "text", "output format: text, json, yaml")
}

// ValidationResult is the outcome of validating a rules directory.
type ValidationResult struct {
	RulesDir  string    `json:"rules_dir" yaml:"rules_dir"`
	Valid     bool      `json:"valid" yaml:"valid"`
	Providers []string  `json:"providers,omitempty" yaml:"providers,omitempty"`
	Patterns  int       `json:"patterns" yaml:"patterns"`
	Problems  []Problem `json:"problems,omitempty" yaml:"problems,omitempty"`
}

func (r ValidationResult) String() string {
	var sb strings.Builder
	if r.Valid {
		fmt.Fprintf(&sb, "%s: valid (%d providers, %d patterns)\n", r.RulesDir, len(r.Providers), r.Patterns)
		return sb.String()
	}
	fmt.Fprintf(&sb, "%s: %d problems\n", r.RulesDir, len(r.Problems))
	for _, p := range r.Problems {
		fmt.Fprintf(&sb, "  %s\n", p)
	}
	return sb.String()
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	formatter, err := cli.NewFormatter(cli.OutputFormat(validateFlags.format))
	if err != nil {
		return err
	}

	rulesDir := firstNonEmpty(validateFlags.rules, cfg.Compiler.RulesDir)
	b, problems, err := buildBundle(context.Background(), rulesDir, logger.Slog())
	if err != nil {
		return err
	}

	result := ValidationResult{RulesDir: rulesDir, Valid: len(problems) == 0, Problems: problems}
	if b != nil {
		ix := b.Index()
		result.Providers = ix.Providers
		result.Patterns = ix.PatternCount()
	}

	if err := formatter.FormatTo(stdout(cmd), result); err != nil {
		return err
	}
	if !result.Valid {
		return &cli.FailureError{What: "problem", Count: len(problems)}
	}
	return nil
}
