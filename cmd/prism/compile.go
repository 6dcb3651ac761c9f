package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"mercator-hq/prism/internal/fswatch"
	"mercator-hq/prism/pkg/bundle"
	"mercator-hq/prism/pkg/cli"
	"mercator-hq/prism/pkg/config"
	"mercator-hq/prism/pkg/rules/git"
)

var compileFlags struct {
	rules     string
	out       string
	format    string
	watch     bool
	gitRepo   string
	gitBranch string
	gitPath   string
	schedule  string
}

var compileCmd = &cobra.Command{
	Use:   "compile",
	Short: "Compile rule sets into a bundle",
	Long: `Compile every rule set in a directory into one bundle artifact.

The compiler checks all rule sets together and reports every problem it
finds. Nothing is written unless the whole build succeeds, and compiling the
same rules twice produces the same bundle and build id.

Output formats:
  json     single JSON document
  json.gz  gzip-compressed JSON document
  split    directory with index.json and one file per provider, for lazy loading

Examples:
  # Compile into a JSON bundle
  prism compile --rules rules/ --out bundle.json

  # Split layout for lazy loading
  prism compile --rules rules/ --out bundle/ --format split

  # Recompile whenever a rule file changes
  prism compile --rules rules/ --out bundle.json --watch

  # Compile rules from a git repository, polling it every five minutes
  prism compile --git-repo https://github.com/acme/span-rules.git --git-path rules \
    --out bundle.json --watch --schedule "*/5 * * * *"`,
	RunE: runCompile,
}

func init() {
	rootCmd.AddCommand(compileCmd)

	compileCmd.Flags().StringVarP(&compileFlags.rules, "rules", "r", "", "rules directory (default from config: ./rules)")
	compileCmd.Flags().StringVarP(&compileFlags.out, "out", "o", "", "output path (default from config: ./bundle.json)")
	compileCmd.Flags().StringVar(&compileFlags.format, "format", "", "output format: json, json.gz, split (inferred from --out when empty)")
	compileCmd.Flags().BoolVarP(&compileFlags.watch, "watch", "w", false, "recompile when rule files change")
	compileCmd.Flags().StringVar(&compileFlags.gitRepo, "git-repo", "", "fetch rules from this git repository instead of --rules")
	compileCmd.Flags().StringVar(&compileFlags.gitBranch, "git-branch", "", "git branch (default from config: main)")
	compileCmd.Flags().StringVar(&compileFlags.gitPath, "git-path", "", "rules directory inside the repository")
	compileCmd.Flags().StringVar(&compileFlags.schedule, "schedule", "", "cron schedule for polling the repository with --watch (default from config: @every 1m)")
}

type compileOptions struct {
	rulesDir string
	out      string
	format   bundle.Format
}

func runCompile(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}

	opts := compileOptions{
		rulesDir: firstNonEmpty(compileFlags.rules, cfg.Compiler.RulesDir),
		out:      firstNonEmpty(compileFlags.out, cfg.Compiler.Output),
	}
	opts.format, err = resolveFormat(firstNonEmpty(compileFlags.format, cfg.Compiler.Format), opts.out)
	if err != nil {
		return err
	}

	w := stdout(cmd)

	gitCfg := cfg.Compiler.Git
	gitCfg.Repository = firstNonEmpty(compileFlags.gitRepo, gitCfg.Repository)
	gitCfg.Branch = firstNonEmpty(compileFlags.gitBranch, gitCfg.Branch)
	gitCfg.Path = firstNonEmpty(compileFlags.gitPath, gitCfg.Path)
	gitCfg.Schedule = firstNonEmpty(compileFlags.schedule, gitCfg.Schedule)
	if gitCfg.Enabled() {
		cfg.Compiler.Git = gitCfg
		if err := config.Validate(cfg); err != nil {
			return err
		}
		return compileFromGit(&gitCfg, opts, compileFlags.watch, w, logger.Slog())
	}

	if !compileFlags.watch {
		return compileOnce(context.Background(), opts, w, logger.Slog())
	}

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	if err := compileOnce(ctx, opts, w, logger.Slog()); err != nil {
		logger.Warn("Initial compile failed, waiting for changes", "error", err)
	}

	watcher, err := fswatch.New(&fswatch.Config{
		Path:             opts.rulesDir,
		DebounceInterval: cfg.Bundle.DebounceInterval,
		Extensions:       []string{".yaml", ".yml"},
		SkipHidden:       true,
	}, logger.Slog())
	if err != nil {
		return cli.NewCommandError("compile", err)
	}
	defer watcher.Stop()

	logger.Info("Watching rules for changes", "rules_dir", opts.rulesDir, "output", opts.out)
	err = watcher.Watch(ctx, func() error {
		return compileOnce(ctx, opts, w, logger.Slog())
	})
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// compileFromGit syncs the repository and compiles its rules. With watch it
// keeps polling on cfg.Schedule and recompiles when a pull brings changes.
func compileFromGit(cfg *config.GitConfig, opts compileOptions, watch bool, w io.Writer, logger *slog.Logger) error {
	repo, err := git.NewRepository(cfg, logger)
	if err != nil {
		return cli.NewCommandError("compile", err)
	}
	opts.rulesDir = repo.RulesDir()

	if !watch {
		if _, err := repo.Sync(context.Background()); err != nil {
			return cli.NewCommandError("compile", err)
		}
		return compileOnce(context.Background(), opts, w, logger)
	}

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	poll := func(force bool) {
		res, err := repo.Sync(ctx)
		if err != nil {
			logger.Error("Rules repository sync failed", "error", err)
			return
		}
		if !force && !res.HadChanges {
			return
		}
		logger.Info("Rules changed, recompiling",
			"commit", res.ToSHA,
			"changed_files", len(res.ChangedFiles),
		)
		if err := compileOnce(ctx, opts, w, logger); err != nil {
			logger.Warn("Compile failed, waiting for changes", "error", err)
		}
	}
	poll(true)

	c := cron.New()
	if _, err := c.AddFunc(cfg.Schedule, func() { poll(false) }); err != nil {
		return cli.NewCommandError("compile", fmt.Errorf("invalid schedule %q: %w", cfg.Schedule, err))
	}
	c.Start()
	logger.Info("Polling rules repository", "schedule", cfg.Schedule, "output", opts.out)

	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}

func resolveFormat(name, out string) (bundle.Format, error) {
	if name == "" {
		return bundle.FormatForPath(out), nil
	}
	return bundle.ParseFormat(name)
}

// compileOnce compiles opts.rulesDir and writes the bundle. Problems are
// printed to w and reported as a *cli.FailureError.
func compileOnce(ctx context.Context, opts compileOptions, w io.Writer, logger *slog.Logger) error {
	b, problems, err := buildBundle(ctx, opts.rulesDir, logger)
	if err != nil {
		return err
	}
	if len(problems) > 0 {
		writeProblems(w, problems)
		return &cli.FailureError{What: "compile error", Count: len(problems)}
	}

	if err := bundle.Write(opts.out, b, opts.format); err != nil {
		return fmt.Errorf("failed to write bundle: %w", err)
	}

	ix := b.Index()
	fmt.Fprintf(w, "Compiled %d providers, %d patterns into %s (%s, build %s)\n",
		len(ix.Providers), ix.PatternCount(), opts.out, opts.format, ix.BuildID)
	logger.Info("Bundle compiled",
		"output", opts.out,
		"format", string(opts.format),
		"bundle_version", ix.Version,
		"build_id", ix.BuildID,
	)
	return nil
}
