package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"mercator-hq/prism/pkg/attrs"
	"mercator-hq/prism/pkg/bundle"
	"mercator-hq/prism/pkg/cli"
	"mercator-hq/prism/pkg/config"
	"mercator-hq/prism/pkg/engine"
	"mercator-hq/prism/pkg/server"
	"mercator-hq/prism/pkg/telemetry/health"
	"mercator-hq/prism/pkg/telemetry/metrics"
)

const (
	// maxLineSize bounds one JSON attribute line on stdin.
	maxLineSize = 4 << 20

	healthCheckTimeout = 2 * time.Second
)

var serveFlags struct {
	bundle   string
	mode     string
	watch    bool
	schedule string
	listen   string
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Translate a stream of spans with hot bundle reload",
	Long: `Read one JSON object of span attributes per line from stdin and write one
JSON result per line to stdout, until stdin closes or a signal arrives.

The bundle can be reloaded while serving, on file changes (--watch) or on a
cron schedule (--schedule). A failed reload keeps the previous bundle. In lazy
mode a split bundle's provider sections are read on first use.

With --listen, /metrics serves Prometheus metrics and /healthz and /readyz
serve probes.

Examples:
  prism serve --bundle bundle.json --watch < spans.jsonl
  prism serve --bundle bundle/ --mode lazy --schedule "*/5 * * * *" --listen :9090`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&serveFlags.bundle, "bundle", "b", "", "bundle file or split directory (default: bundle.path, then compiler.output from config)")
	serveCmd.Flags().StringVar(&serveFlags.mode, "mode", "", "load mode: eager, lazy (default from config)")
	serveCmd.Flags().BoolVar(&serveFlags.watch, "watch", false, "reload the bundle when it changes on disk")
	serveCmd.Flags().StringVar(&serveFlags.schedule, "schedule", "", "cron expression for periodic reloads")
	serveCmd.Flags().StringVar(&serveFlags.listen, "listen", "", "address for /metrics, /healthz and /readyz")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}

	cfg.Bundle.Path = firstNonEmpty(serveFlags.bundle, cfg.Bundle.Path, cfg.Compiler.Output)
	cfg.Bundle.Mode = firstNonEmpty(serveFlags.mode, cfg.Bundle.Mode)
	cfg.Bundle.Schedule = firstNonEmpty(serveFlags.schedule, cfg.Bundle.Schedule)
	cfg.Bundle.Watch = cfg.Bundle.Watch || serveFlags.watch
	cfg.Telemetry.ListenAddress = firstNonEmpty(serveFlags.listen, cfg.Telemetry.ListenAddress)
	if err := config.Validate(cfg); err != nil {
		return err
	}

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	var in io.Reader = os.Stdin
	if cmd != nil {
		in = cmd.InOrStdin()
	}
	return serve(ctx, cfg, logger.Slog(), in, stdout(cmd))
}

// loaderFor returns the bundle loader for a load mode. hook, if set,
// observes lazy provider reads.
func loaderFor(mode string, preload bool, hook func(string, time.Duration, error), logger *slog.Logger) bundle.LoadFunc {
	if mode != config.ModeLazy {
		return bundle.EagerLoader
	}
	opts := []bundle.LazyOption{bundle.WithLogger(logger)}
	if hook != nil {
		opts = append(opts, bundle.WithLoadHook(hook))
	}
	lazy := bundle.LazyLoader(opts...)
	if !preload {
		return lazy
	}
	return func(path string) (bundle.Source, error) {
		src, err := lazy(path)
		if err != nil {
			return nil, err
		}
		if l, ok := src.(*bundle.LazyBundle); ok {
			if err := l.Preload(context.Background()); err != nil {
				return nil, err
			}
		}
		return src, nil
	}
}

// serve loads the bundle, starts reloading and the telemetry listener, and
// translates in until it is exhausted or ctx is cancelled.
func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger, in io.Reader, out io.Writer) error {
	collector := metrics.NewCollector(cfg.Telemetry.Metrics.Collector(), prometheus.NewRegistry())
	load := loaderFor(cfg.Bundle.Mode, cfg.Bundle.Preload, collector.RecordProviderLoad, logger)

	src, err := load(cfg.Bundle.Path)
	collector.RecordBundleLoad(cfg.Bundle.Mode, src, err)
	if err != nil {
		return err
	}
	ix := src.Index()
	logger.Info("Bundle loaded",
		"path", cfg.Bundle.Path,
		"mode", cfg.Bundle.Mode,
		"bundle_version", ix.Version,
		"build_id", ix.BuildID,
		"providers", len(ix.Providers),
		"patterns", ix.PatternCount(),
	)

	holder := bundle.NewHolder(src)
	reloader := bundle.NewReloader(holder, load, bundle.ReloaderConfig{
		Path:             cfg.Bundle.Path,
		Watch:            cfg.Bundle.Watch,
		DebounceInterval: cfg.Bundle.DebounceInterval,
		Schedule:         cfg.Bundle.Schedule,
	}, logger)
	reloader.OnReload = collector.ReloadHook(cfg.Bundle.Mode)
	if cfg.Bundle.Watch || cfg.Bundle.Schedule != "" {
		if err := reloader.Start(ctx); err != nil {
			return err
		}
		defer reloader.Stop()
	}

	if addr := cfg.Telemetry.ListenAddress; addr != "" {
		srv := telemetryServer(addr, cfg.Telemetry.Metrics.Path, collector, holder, logger)
		go func() {
			if err := srv.Start(ctx); err != nil {
				logger.Error("Telemetry listener failed", "address", addr, "error", err)
			}
		}()
		defer srv.Shutdown(context.Background())
	}

	tr := engine.New(holder,
		engine.WithLogger(logger),
		engine.WithRecorder(collector),
		engine.WithConfig(cfg.Engine.Translator()),
	)

	done := make(chan error, 1)
	go func() {
		done <- translateStream(ctx, tr, in, out)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		logger.Info("Shutting down")
		return nil
	}
}

// telemetryServer serves metrics and probes for a held bundle.
func telemetryServer(addr, metricsPath string, collector *metrics.Collector, holder *bundle.Holder, logger *slog.Logger) *server.Server {
	checker := health.New(healthCheckTimeout)
	checker.Register("bundle", health.BundleCheck(holder))

	return server.New(server.Config{
		ListenAddress: addr,
		MetricsPath:   metricsPath,
	}, collector.Handler(), checker, logger)
}

// translateStream translates one JSON object per line. A line that cannot be
// decoded produces an error line and does not stop the stream.
func translateStream(ctx context.Context, tr *engine.Translator, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	bw := bufio.NewWriter(w)
	defer bw.Flush()
	enc := json.NewEncoder(bw)

	for n := 1; scanner.Scan(); n++ {
		if ctx.Err() != nil {
			return nil
		}
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		m, err := decodeLine(line)
		if err != nil {
			if err := enc.Encode(map[string]any{"line": n, "error": err.Error()}); err != nil {
				return err
			}
		} else if err := enc.Encode(newResultLine(tr.Translate(ctx, m))); err != nil {
			return err
		}
		if err := bw.Flush(); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}
	return nil
}

func decodeLine(line []byte) (attrs.Map, error) {
	dec := json.NewDecoder(bytes.NewReader(line))
	dec.UseNumber()
	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if dec.More() {
		return nil, errors.New("invalid JSON: trailing data")
	}
	return attrs.Flatten("", doc)
}
