package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// BundleMetrics tracks bundle loading.
//
// Metrics:
//   - prism_bundle_loads_total: Bundle loads by mode and result
//   - prism_provider_loads_total: Lazy provider section loads
//   - prism_provider_load_duration_seconds: Lazy provider load latency
//   - prism_bundle_info: Always 1, labelled with the serving bundle
type BundleMetrics struct {
	loadsTotal *prometheus.CounterVec

	providerLoadsTotal *prometheus.CounterVec

	providerLoadDuration *prometheus.HistogramVec

	info *prometheus.GaugeVec
}

// NewBundleMetrics creates and registers bundle metrics with the provided
// registry.
func NewBundleMetrics(cfg Config, registry prometheus.Registerer) *BundleMetrics {
	bm := &BundleMetrics{
		loadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "bundle_loads_total",
				Help:      "Total number of bundle loads",
			},
			[]string{"mode", "result"},
		),

		providerLoadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "provider_loads_total",
				Help:      "Total number of lazy provider section loads",
			},
			[]string{"provider", "result"},
		),

		providerLoadDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "provider_load_duration_seconds",
				Help:      "Duration of lazy provider section loads in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8), // 0.5ms to ~8s
			},
			[]string{"provider"},
		),

		info: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "bundle_info",
				Help:      "Version and build id of the serving bundle",
			},
			[]string{"version", "build_id"},
		),
	}

	registry.MustRegister(
		bm.loadsTotal,
		bm.providerLoadsTotal,
		bm.providerLoadDuration,
		bm.info,
	)

	return bm
}

// RecordLoad records a bundle load attempt.
func (bm *BundleMetrics) RecordLoad(mode, result string) {
	bm.loadsTotal.WithLabelValues(mode, result).Inc()
}

// RecordProviderLoad records a lazy provider section load.
func (bm *BundleMetrics) RecordProviderLoad(provider, result string, elapsed time.Duration) {
	bm.providerLoadsTotal.WithLabelValues(provider, result).Inc()
	if result == ResultSuccess {
		bm.providerLoadDuration.WithLabelValues(provider).Observe(elapsed.Seconds())
	}
}

// SetInfo replaces the serving bundle's info series.
func (bm *BundleMetrics) SetInfo(version, buildID string) {
	bm.info.Reset()
	bm.info.WithLabelValues(version, buildID).Set(1)
}
