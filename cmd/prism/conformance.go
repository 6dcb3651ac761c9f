package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"mercator-hq/prism/pkg/cli"
	"mercator-hq/prism/pkg/conformance"
	"mercator-hq/prism/pkg/engine"
)

var conformanceFlags struct {
	fixtures string
	format   string
}

var conformanceCmd = &cobra.Command{
	Use:   "conformance",
	Short: "Run golden translation fixtures",
	Long: `Run every fixture in a directory and compare translations with the
expected status, match, event and diagnostics.

Each fixture names a rules directory, compiled on the fly, or a prebuilt
bundle. Any other implementation of the translation engine can be checked
against the same fixtures.

Examples:
  prism conformance --fixtures testdata/fixtures
  prism conformance --fixtures testdata/fixtures --format json`,
	RunE: runConformance,
}

func init() {
	rootCmd.AddCommand(conformanceCmd)

	conformanceCmd.Flags().StringVarP(&conformanceFlags.fixtures, "fixtures", "f", "", "fixture directory")
	conformanceCmd.Flags().StringVar(&conformanceFlags.format, "format", "text", "output format: text, json, yaml")
}

// ConformanceResult collects the reports of a fixture directory.
type ConformanceResult struct {
	Reports []conformance.Report `json:"reports" yaml:"reports"`
	Passed  int                  `json:"passed" yaml:"passed"`
	Failed  int                  `json:"failed" yaml:"failed"`
}

func (r ConformanceResult) String() string {
	var sb strings.Builder
	for _, rep := range r.Reports {
		sb.WriteString(rep.String())
	}
	fmt.Fprintf(&sb, "\n%d passed, %d failed\n", r.Passed, r.Failed)
	return sb.String()
}

func runConformance(cmd *cobra.Command, args []string) error {
	if conformanceFlags.fixtures == "" {
		return fmt.Errorf("--fixtures must be specified")
	}
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	formatter, err := cli.NewFormatter(cli.OutputFormat(conformanceFlags.format))
	if err != nil {
		return err
	}

	ctx := context.Background()
	fixtures, err := conformance.LoadDir(conformanceFlags.fixtures)
	if err != nil {
		return err
	}

	var result ConformanceResult
	for _, f := range fixtures {
		src, err := f.Source(ctx)
		if err != nil {
			return cli.NewCommandError("conformance", fmt.Errorf("fixture %s: %w", f.Name, err))
		}
		tr := engine.New(src,
			engine.WithLogger(logger.Slog()),
			engine.WithConfig(cfg.Engine.Translator()),
		)
		report := conformance.Run(ctx, tr, f)
		result.Reports = append(result.Reports, report)
		result.Passed += report.Passed
		result.Failed += report.Failed
	}

	if err := formatter.FormatTo(stdout(cmd), result); err != nil {
		return err
	}
	if result.Failed > 0 {
		return &cli.FailureError{What: "failing case", Count: result.Failed}
	}
	return nil
}
