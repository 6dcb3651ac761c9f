package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"mercator-hq/prism/pkg/bundle"
	"mercator-hq/prism/pkg/cli"
)

var inspectFlags struct {
	bundle string
	format string
}

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Describe a compiled bundle",
	Long: `Print a bundle's version, build id, providers, patterns and transforms.

Patterns are listed per provider in catalog order, which is the order the
detector tries them when no exact signature matches. A split bundle is
opened lazily, so only its index is read.

Examples:
  prism inspect --bundle bundle.json
  prism inspect --bundle bundle/ --format yaml`,
	RunE: runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)

	inspectCmd.Flags().StringVarP(&inspectFlags.bundle, "bundle", "b", "", "bundle file or split directory (default: bundle.path, then compiler.output from config)")
	inspectCmd.Flags().StringVar(&inspectFlags.format, "format", "text", "output format: text, json, yaml")
}

// PatternRow is one catalog entry in inspect output.
type PatternRow struct {
	ID           string   `json:"id" yaml:"id"`
	Source       string   `json:"source" yaml:"source"`
	RequiredKeys []string `json:"required_keys" yaml:"required_keys"`
	Constrained  []string `json:"constrained,omitempty" yaml:"constrained,omitempty"`
	Confidence   float64  `json:"confidence" yaml:"confidence"`
	Priority     int      `json:"priority" yaml:"priority"`
}

// Inspection describes a bundle.
type Inspection struct {
	bundle.Summary `yaml:",inline"`
	Path           string                  `json:"path" yaml:"path"`
	Catalog        map[string][]PatternRow `json:"catalog" yaml:"catalog"`
}

func (in Inspection) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Bundle:     %s\n", in.Path)
	fmt.Fprintf(&sb, "Version:    %s\n", in.Version)
	fmt.Fprintf(&sb, "Build ID:   %s\n", in.BuildID)
	fmt.Fprintf(&sb, "Signatures: %d\n", in.Signatures)
	fmt.Fprintf(&sb, "Transforms: %s\n", strings.Join(in.Transforms, ", "))
	for _, p := range in.Providers {
		fmt.Fprintf(&sb, "\nProvider %s (%d patterns)\n", p, in.Patterns[p])
		for _, row := range in.Catalog[p] {
			fmt.Fprintf(&sb, "  %-28s priority=%-4d confidence=%.2f source=%s\n",
				row.ID, row.Priority, row.Confidence, row.Source)
			fmt.Fprintf(&sb, "    required: %s\n", strings.Join(row.RequiredKeys, ", "))
			if len(row.Constrained) > 0 {
				fmt.Fprintf(&sb, "    constrained: %s\n", strings.Join(row.Constrained, ", "))
			}
		}
	}
	return sb.String()
}

func runInspect(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	formatter, err := cli.NewFormatter(cli.OutputFormat(inspectFlags.format))
	if err != nil {
		return err
	}

	path := firstNonEmpty(inspectFlags.bundle, cfg.Bundle.Path, cfg.Compiler.Output)
	src, err := openIndex(path, bundle.WithLogger(logger.Slog()))
	if err != nil {
		return err
	}
	return formatter.FormatTo(stdout(cmd), inspect(path, src.Index()))
}

// openIndex opens a split directory lazily and loads a file eagerly.
func openIndex(path string, opts ...bundle.LazyOption) (bundle.Source, error) {
	info, err := os.Stat(path)
	if err == nil && info.IsDir() {
		l, err := bundle.OpenLazy(path, opts...)
		if err != nil {
			return nil, err
		}
		return l, nil
	}
	b, err := bundle.Load(path)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func inspect(path string, ix *bundle.Index) Inspection {
	in := Inspection{
		Summary: bundle.Summarize(ix),
		Path:    path,
		Catalog: make(map[string][]PatternRow, len(ix.PatternCatalog)),
	}
	for provider, patterns := range ix.PatternCatalog {
		rows := make([]PatternRow, 0, len(patterns))
		for _, p := range patterns {
			row := PatternRow{
				ID:           p.ID,
				Source:       p.Source,
				RequiredKeys: p.RequiredKeys,
				Confidence:   p.Confidence,
				Priority:     p.Priority,
			}
			for k := range p.ValueConstraints {
				row.Constrained = append(row.Constrained, k)
			}
			sort.Strings(row.Constrained)
			rows = append(rows, row)
		}
		in.Catalog[provider] = rows
	}
	return in
}
