package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// TranslationMetrics tracks per-span translation metrics.
//
// Metrics:
//   - prism_translations_total: Translations by provider and status
//   - prism_translation_duration_seconds: Translation duration histogram
//   - prism_detections_total: Detections by provider and path
//   - prism_anomalies_total: Diagnostics by provider and kind
type TranslationMetrics struct {
	translationsTotal *prometheus.CounterVec

	duration *prometheus.HistogramVec

	detectionsTotal *prometheus.CounterVec

	anomaliesTotal *prometheus.CounterVec
}

// NewTranslationMetrics creates and registers translation metrics with the
// provided registry.
func NewTranslationMetrics(cfg Config, registry prometheus.Registerer) *TranslationMetrics {
	tm := &TranslationMetrics{
		translationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "translations_total",
				Help:      "Total number of spans translated",
			},
			[]string{"provider", "status"},
		),

		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "translation_duration_seconds",
				Help:      "Duration of span translation in seconds",
				Buckets:   cfg.DurationBuckets,
			},
			[]string{"status"},
		),

		detectionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "detections_total",
				Help:      "Total number of detections by lookup path",
			},
			[]string{"provider", "path"},
		),

		anomaliesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "anomalies_total",
				Help:      "Total number of extraction anomalies and mapping gaps",
			},
			[]string{"provider", "kind"},
		),
	}

	registry.MustRegister(
		tm.translationsTotal,
		tm.duration,
		tm.detectionsTotal,
		tm.anomaliesTotal,
	)

	return tm
}

// RecordTranslation records one translated span.
func (tm *TranslationMetrics) RecordTranslation(provider, status string, elapsed time.Duration) {
	tm.translationsTotal.WithLabelValues(provider, status).Inc()
	tm.duration.WithLabelValues(status).Observe(elapsed.Seconds())
}

// RecordDetection records which detector path resolved a span.
func (tm *TranslationMetrics) RecordDetection(provider, path string) {
	tm.detectionsTotal.WithLabelValues(provider, path).Inc()
}

// RecordAnomaly records one diagnostic.
func (tm *TranslationMetrics) RecordAnomaly(provider, kind string) {
	tm.anomaliesTotal.WithLabelValues(provider, kind).Inc()
}
