package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/prism/pkg/bundle"
	"mercator-hq/prism/pkg/engine"
)

// Label values shared across metrics.
const (
	ResultSuccess = "success"
	ResultError   = "error"

	// ProviderNone labels spans no pattern matched.
	ProviderNone = "none"

	// ProviderOther replaces provider labels beyond the cardinality limit.
	ProviderOther = "other"
)

// Config configures a Collector.
type Config struct {
	// Enabled turns recording on. A disabled collector registers its
	// metrics but never updates them.
	Enabled bool

	// Namespace prefixes every metric name.
	// Default: "prism".
	Namespace string

	// Subsystem is inserted between namespace and name when set.
	Subsystem string

	// DurationBuckets are the translation latency histogram buckets.
	// Default: 10µs to 100ms.
	DurationBuckets []float64

	// MaxProviders bounds distinct provider label values.
	// Default: 256.
	MaxProviders int
}

// DefaultConfig returns the default collector configuration.
func DefaultConfig() Config {
	return Config{
		Enabled:         true,
		Namespace:       "prism",
		DurationBuckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.1},
		MaxProviders:    256,
	}
}

// Collector records translation and bundle metrics. It implements
// engine.Recorder and is safe for concurrent use.
type Collector struct {
	config   Config
	registry *prometheus.Registry

	translation *TranslationMetrics
	bundle      *BundleMetrics

	providers *CardinalityLimiter
}

var _ engine.Recorder = (*Collector)(nil)

// NewCollector creates a collector registering into registry. A nil
// registry gets a fresh one. Zero config fields take their defaults.
//
// Example:
//
//	collector := metrics.NewCollector(metrics.DefaultConfig(), nil)
//	tr := engine.New(holder, engine.WithRecorder(collector))
func NewCollector(cfg Config, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	def := DefaultConfig()
	if cfg.Namespace == "" {
		cfg.Namespace = def.Namespace
	}
	if len(cfg.DurationBuckets) == 0 {
		cfg.DurationBuckets = def.DurationBuckets
	}
	if cfg.MaxProviders <= 0 {
		cfg.MaxProviders = def.MaxProviders
	}

	return &Collector{
		config:      cfg,
		registry:    registry,
		translation: NewTranslationMetrics(cfg, registry),
		bundle:      NewBundleMetrics(cfg, registry),
		providers:   NewCardinalityLimiter(cfg.MaxProviders),
	}
}

// RecordTranslation implements engine.Recorder.
func (c *Collector) RecordTranslation(provider string, status engine.Status, elapsed time.Duration) {
	if !c.config.Enabled {
		return
	}
	c.translation.RecordTranslation(c.providerLabel(provider), string(status), elapsed)
}

// RecordDetection implements engine.Recorder.
func (c *Collector) RecordDetection(provider string, path engine.MatchPath) {
	if !c.config.Enabled {
		return
	}
	c.translation.RecordDetection(c.providerLabel(provider), string(path))
}

// RecordDiagnostic implements engine.Recorder.
func (c *Collector) RecordDiagnostic(provider string, kind engine.DiagnosticKind) {
	if !c.config.Enabled {
		return
	}
	c.translation.RecordAnomaly(c.providerLabel(provider), string(kind))
}

// RecordBundleLoad records a bundle load and, on success, updates
// prism_bundle_info. mode is "eager" or "lazy".
func (c *Collector) RecordBundleLoad(mode string, src bundle.Source, err error) {
	if !c.config.Enabled {
		return
	}
	if err != nil || src == nil {
		c.bundle.RecordLoad(mode, ResultError)
		return
	}
	c.bundle.RecordLoad(mode, ResultSuccess)
	ix := src.Index()
	c.bundle.SetInfo(ix.Version, ix.BuildID)
}

// RecordProviderLoad records a lazy provider section load. Its signature
// matches bundle.WithLoadHook.
func (c *Collector) RecordProviderLoad(provider string, elapsed time.Duration, err error) {
	if !c.config.Enabled {
		return
	}
	result := ResultSuccess
	if err != nil {
		result = ResultError
	}
	c.bundle.RecordProviderLoad(c.providerLabel(provider), result, elapsed)
}

// ReloadHook returns a callback for bundle.Reloader.OnReload.
func (c *Collector) ReloadHook(mode string) func(bundle.Source, error) {
	return func(src bundle.Source, err error) {
		c.RecordBundleLoad(mode, src, err)
	}
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) providerLabel(provider string) string {
	if provider == "" {
		return ProviderNone
	}
	if !c.providers.Allow(provider) {
		return ProviderOther
	}
	return provider
}

// CardinalityLimiter prevents metric cardinality explosion by limiting
// the number of distinct label values.
type CardinalityLimiter struct {
	maxCardinality int
	current        map[string]struct{}
	mu             sync.RWMutex
}

// NewCardinalityLimiter creates a new cardinality limiter with the specified
// maximum cardinality.
func NewCardinalityLimiter(maxCardinality int) *CardinalityLimiter {
	return &CardinalityLimiter{
		maxCardinality: maxCardinality,
		current:        make(map[string]struct{}),
	}
}

// Allow reports whether value may be used as a label. Values already seen
// are always allowed; new ones are allowed until the limit is reached.
func (cl *CardinalityLimiter) Allow(value string) bool {
	cl.mu.RLock()
	if _, exists := cl.current[value]; exists {
		cl.mu.RUnlock()
		return true
	}
	cl.mu.RUnlock()

	cl.mu.Lock()
	defer cl.mu.Unlock()

	// Double-check after acquiring write lock
	if _, exists := cl.current[value]; exists {
		return true
	}
	if len(cl.current) >= cl.maxCardinality {
		return false
	}
	cl.current[value] = struct{}{}
	return true
}

// Count returns the current cardinality.
func (cl *CardinalityLimiter) Count() int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return len(cl.current)
}
