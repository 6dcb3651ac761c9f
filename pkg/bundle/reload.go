package bundle

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"mercator-hq/prism/internal/fswatch"
)

// LoadFunc loads a runtime source from path.
type LoadFunc func(path string) (Source, error)

// EagerLoader loads path with Load.
func EagerLoader(path string) (Source, error) {
	b, err := Load(path)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// LazyLoader returns a LoadFunc that opens split bundles lazily and falls
// back to Load for single-document bundles.
func LazyLoader(opts ...LazyOption) LoadFunc {
	return func(path string) (Source, error) {
		info, err := os.Stat(path)
		if err != nil || !info.IsDir() {
			return EagerLoader(path)
		}
		l, err := OpenLazy(path, opts...)
		if err != nil {
			return nil, err
		}
		return l, nil
	}
}

// ReloaderConfig configures a Reloader.
type ReloaderConfig struct {
	// Path is the bundle artifact to reload.
	Path string

	// Watch reloads when the artifact changes on disk.
	Watch bool

	// DebounceInterval is the quiet period for file events.
	DebounceInterval time.Duration

	// Schedule is a standard cron expression for periodic reloads. Empty
	// disables scheduled reloads.
	Schedule string
}

// Reloader reloads a bundle into a Holder. A failed reload keeps the
// previous bundle.
type Reloader struct {
	holder *Holder
	load   LoadFunc
	config ReloaderConfig
	logger *slog.Logger

	// OnReload, when set, is called after every reload attempt.
	OnReload func(src Source, err error)

	mu      sync.Mutex
	reload  sync.Mutex
	cron    *cron.Cron
	watcher *fswatch.Watcher
	running bool
	wg      sync.WaitGroup
}

// NewReloader creates a reloader. load defaults to EagerLoader.
func NewReloader(holder *Holder, load LoadFunc, config ReloaderConfig, logger *slog.Logger) *Reloader {
	if load == nil {
		load = EagerLoader
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Reloader{
		holder: holder,
		load:   load,
		config: config,
		logger: logger.With("component", "bundle.reloader", "path", config.Path),
	}
}

// Reload loads the artifact and swaps it in on success.
func (r *Reloader) Reload() error {
	r.reload.Lock()
	defer r.reload.Unlock()

	src, err := r.load(r.config.Path)
	if r.OnReload != nil {
		r.OnReload(src, err)
	}
	if err != nil {
		r.logger.Error("Bundle reload failed, keeping previous bundle", "error", err)
		return err
	}

	prev := r.holder.Current().Index()
	next := src.Index()
	r.holder.Store(src)
	r.logger.Info("Bundle reloaded",
		"previous_version", prev.Version,
		"previous_build_id", prev.BuildID,
		"bundle_version", next.Version,
		"build_id", next.BuildID,
	)
	return nil
}

// Start begins watching and/or the reload schedule. It returns once they
// are running; they stop when ctx is cancelled or Stop is called.
func (r *Reloader) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return fmt.Errorf("reloader already running")
	}

	if r.config.Schedule != "" {
		if _, err := cron.ParseStandard(r.config.Schedule); err != nil {
			return fmt.Errorf("invalid reload schedule %q: %w", r.config.Schedule, err)
		}
		c := cron.New()
		if _, err := c.AddFunc(r.config.Schedule, func() { _ = r.Reload() }); err != nil {
			return fmt.Errorf("failed to schedule reload: %w", err)
		}
		c.Start()
		r.cron = c
		r.logger.Info("Bundle reload scheduled", "schedule", r.config.Schedule)
	}

	if r.config.Watch {
		w, err := fswatch.New(&fswatch.Config{
			Path:             r.config.Path,
			DebounceInterval: r.config.DebounceInterval,
			WatchParent:      true,
		}, r.logger)
		if err != nil {
			r.stopCron()
			return err
		}
		r.watcher = w
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			if err := w.Watch(ctx, r.Reload); err != nil {
				r.logger.Error("Bundle watcher stopped", "error", err)
			}
		}()
	}

	r.running = true
	go func() {
		<-ctx.Done()
		r.Stop()
	}()
	return nil
}

// Stop stops watching and scheduling and waits for running reloads.
func (r *Reloader) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running {
		return
	}
	r.stopCron()
	if r.watcher != nil {
		_ = r.watcher.Stop()
		r.watcher = nil
	}
	r.wg.Wait()
	r.running = false
}

// NextRun returns the next scheduled reload, or nil.
func (r *Reloader) NextRun() *time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cron == nil {
		return nil
	}
	entries := r.cron.Entries()
	if len(entries) == 0 {
		return nil
	}
	next := entries[0].Next
	return &next
}

func (r *Reloader) stopCron() {
	if r.cron != nil {
		<-r.cron.Stop().Done()
		r.cron = nil
	}
}
