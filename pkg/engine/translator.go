package engine

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"mercator-hq/prism/pkg/attrs"
	"mercator-hq/prism/pkg/bundle"
	"mercator-hq/prism/pkg/telemetry/logging"
	"mercator-hq/prism/pkg/transforms"
)

// Recorder receives translation measurements. The metrics collector
// implements it.
type Recorder interface {
	// RecordTranslation is called once per span.
	RecordTranslation(provider string, status Status, elapsed time.Duration)

	// RecordDetection is called once per span with the detector's path.
	RecordDetection(provider string, path MatchPath)

	// RecordDiagnostic is called for each diagnostic kept for a span.
	RecordDiagnostic(provider string, kind DiagnosticKind)
}

// Config holds translator settings.
type Config struct {
	// MaxDiagnostics bounds the diagnostics kept per span. Extra ones are
	// counted and dropped.
	// Default: 64.
	MaxDiagnostics int

	// LogDiagnostics logs every diagnostic at debug level.
	// Default: true.
	LogDiagnostics bool
}

// DefaultConfig returns the default translator configuration.
func DefaultConfig() Config {
	return Config{
		MaxDiagnostics: DefaultMaxDiagnostics,
		LogDiagnostics: true,
	}
}

// Validate validates the configuration.
func (c Config) Validate() error {
	if c.MaxDiagnostics < 0 {
		return fmt.Errorf("max diagnostics must be >= 0, got %d", c.MaxDiagnostics)
	}
	return nil
}

// Option configures a Translator.
type Option func(*Translator)

// WithLogger sets the logger. Provider, pattern and bundle version are
// carried in the log context (see package logging), not as record
// attributes, so a plain handler will not show them.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Translator) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// WithRegistry sets the transform registry.
func WithRegistry(r *transforms.Registry) Option {
	return func(t *Translator) {
		if r != nil {
			t.extractor = NewExtractor(r)
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(t *Translator) {
		t.recorder = r
	}
}

// WithConfig sets the translator configuration.
func WithConfig(cfg Config) Option {
	return func(t *Translator) {
		t.config = cfg
	}
}

// snapshotter is a source that can be swapped at runtime, such as
// *bundle.Holder.
type snapshotter interface {
	Current() bundle.Source
}

// Translator runs detection, extraction and mapping for one span at a time.
// It holds no per-span state and is safe for concurrent use.
type Translator struct {
	src       bundle.Source
	extractor *Extractor
	recorder  Recorder
	config    Config
	logger    *slog.Logger
}

// New creates a translator over src, which may be a *bundle.Bundle, a
// *bundle.LazyBundle or a *bundle.Holder.
func New(src bundle.Source, opts ...Option) *Translator {
	t := &Translator{
		src:       src,
		extractor: NewExtractor(nil),
		config:    DefaultConfig(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.logger = t.logger.With("component", "engine")
	return t
}

// Detect runs detection against the current bundle.
func (t *Translator) Detect(m attrs.Map) Match {
	return Detect(t.snapshot().Index(), m)
}

// Translate converts one span's attributes into a canonical event. It never
// panics and never returns nil.
//
// ctx is only used for logging; translation does not block.
func (t *Translator) Translate(ctx context.Context, m attrs.Map) (res *Result) {
	start := time.Now()
	res = &Result{Event: NewCanonicalEvent(), Match: NoMatch}

	defer func() {
		if r := recover(); r != nil {
			res.Event = NewCanonicalEvent()
			res.Diagnostics = nil
			res.Status = StatusFailed
			res.Err = &PanicError{Value: r}
			t.logger.ErrorContext(ctx, "Translation panicked",
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()),
			)
		}
		t.finish(ctx, res, start)
	}()

	src := t.snapshot()
	ix := src.Index()
	res.BundleVersion = ix.Version
	res.BuildID = ix.BuildID
	ctx = logging.WithBundleVersion(ctx, ix.Version)

	match := Detect(ix, m)
	res.Match = match
	if !match.OK {
		res.Status = StatusUnmatched
		return res
	}
	ctx = logging.WithProvider(ctx, match.Provider)
	ctx = logging.WithPattern(ctx, match.PatternID)

	ps, err := src.Provider(match.Provider)
	if err != nil {
		res.Status = StatusFailed
		res.Err = &ProviderError{Provider: match.Provider, Err: err}
		t.logger.WarnContext(ctx, "Provider section unavailable",
			"error", err,
		)
		return res
	}

	d := newDiagnostics(match, t.config.MaxDiagnostics)
	fields := t.extractor.extract(ix.Transforms, ps, match, m, d)
	res.Event = mapFields(ps.Mapping, fields, d)
	res.Diagnostics = d.list
	res.Status = StatusMatched

	if d.dropped > 0 {
		t.logger.WarnContext(ctx, "Diagnostics dropped",
			"dropped", d.dropped,
		)
	}
	return res
}

func (t *Translator) snapshot() bundle.Source {
	if s, ok := t.src.(snapshotter); ok {
		return s.Current()
	}
	return t.src
}

func (t *Translator) finish(ctx context.Context, res *Result, start time.Time) {
	provider := res.Match.Provider
	if t.config.LogDiagnostics {
		for _, d := range res.Diagnostics {
			t.logger.DebugContext(ctx, "Translation diagnostic",
				"kind", string(d.Kind),
				"step", d.Step,
				"field", d.Field,
				"message", d.Message,
			)
		}
	}
	if t.recorder == nil {
		return
	}
	t.recorder.RecordDetection(provider, res.Match.Path)
	for _, d := range res.Diagnostics {
		t.recorder.RecordDiagnostic(provider, d.Kind)
	}
	t.recorder.RecordTranslation(provider, res.Status, time.Since(start))
}
