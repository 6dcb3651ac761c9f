package metrics

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mercator-hq/prism/pkg/attrs"
	"mercator-hq/prism/pkg/compiler"
	"mercator-hq/prism/pkg/engine"
	"mercator-hq/prism/pkg/rules"
)

const nsRules = `
provider: ns
patterns:
  - id: ns.message
    source: message
    required_keys: [ns.role]
extractors:
  message:
    - {op: direct_copy, source_path: ns.role, target: role}
mappings:
  outputs:
    role: role
    content: {source: role, required: false}
  metadata:
    missing: {source: role, required: true}
`

func testCollector(t *testing.T) *Collector {
	t.Helper()
	return NewCollector(Config{Enabled: true}, prometheus.NewRegistry())
}

func TestCollector_NewCollectorDefaults(t *testing.T) {
	c := NewCollector(Config{Enabled: true}, nil)
	require.NotNil(t, c.Registry())
	assert.Equal(t, "prism", c.config.Namespace)
	assert.Equal(t, DefaultConfig().DurationBuckets, c.config.DurationBuckets)
	assert.Equal(t, 256, c.config.MaxProviders)
}

func TestCollector_RecordsTranslations(t *testing.T) {
	c := testCollector(t)

	c.RecordTranslation("openai", engine.StatusMatched, 50*time.Microsecond)
	c.RecordTranslation("openai", engine.StatusMatched, 70*time.Microsecond)
	c.RecordTranslation("", engine.StatusUnmatched, time.Microsecond)
	c.RecordDetection("openai", engine.PathExact)
	c.RecordDetection("", engine.PathNone)
	c.RecordDiagnostic("openai", engine.KindMappingGap)

	tm := c.translation
	assert.Equal(t, 2.0, testutil.ToFloat64(tm.translationsTotal.WithLabelValues("openai", "matched")))
	assert.Equal(t, 1.0, testutil.ToFloat64(tm.translationsTotal.WithLabelValues(ProviderNone, "unmatched")))
	assert.Equal(t, 1.0, testutil.ToFloat64(tm.detectionsTotal.WithLabelValues("openai", "exact")))
	assert.Equal(t, 1.0, testutil.ToFloat64(tm.detectionsTotal.WithLabelValues(ProviderNone, "none")))
	assert.Equal(t, 1.0, testutil.ToFloat64(tm.anomaliesTotal.WithLabelValues("openai", "mapping_gap")))
	assert.Equal(t, 2, testutil.CollectAndCount(tm.duration))
}

func TestCollector_Disabled(t *testing.T) {
	c := NewCollector(Config{}, nil)
	c.RecordTranslation("openai", engine.StatusMatched, time.Millisecond)
	c.RecordBundleLoad("eager", nil, errors.New("boom"))
	assert.Equal(t, 0, testutil.CollectAndCount(c.translation.translationsTotal))
	assert.Equal(t, 0, testutil.CollectAndCount(c.bundle.loadsTotal))
}

func TestCollector_ProviderCardinality(t *testing.T) {
	c := NewCollector(Config{Enabled: true, MaxProviders: 2}, nil)
	for i := 0; i < 5; i++ {
		c.RecordDetection(fmt.Sprintf("p%d", i), engine.PathFallback)
	}
	c.RecordDetection("p0", engine.PathFallback)

	dm := c.translation.detectionsTotal
	assert.Equal(t, 2.0, testutil.ToFloat64(dm.WithLabelValues("p0", "fallback")))
	assert.Equal(t, 1.0, testutil.ToFloat64(dm.WithLabelValues("p1", "fallback")))
	assert.Equal(t, 3.0, testutil.ToFloat64(dm.WithLabelValues(ProviderOther, "fallback")))
	assert.Equal(t, 2, c.providers.Count())
}

func TestCollector_BundleLoads(t *testing.T) {
	c := testCollector(t)
	rs, err := rules.NewParser().ParseBytes([]byte(nsRules), "ns.yaml")
	require.NoError(t, err)
	b, err := compiler.Compile([]*rules.RuleSet{rs})
	require.NoError(t, err)

	hook := c.ReloadHook("eager")
	hook(b, nil)
	hook(nil, errors.New("corrupt"))
	c.RecordProviderLoad("ns", 2*time.Millisecond, nil)
	c.RecordProviderLoad("ns", time.Millisecond, errors.New("missing"))

	bm := c.bundle
	assert.Equal(t, 1.0, testutil.ToFloat64(bm.loadsTotal.WithLabelValues("eager", ResultSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(bm.loadsTotal.WithLabelValues("eager", ResultError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(bm.info.WithLabelValues(b.Version, b.BuildID)))
	assert.Equal(t, 1, testutil.CollectAndCount(bm.info))
	assert.Equal(t, 1.0, testutil.ToFloat64(bm.providerLoadsTotal.WithLabelValues("ns", ResultError)))
	assert.Equal(t, 1, testutil.CollectAndCount(bm.providerLoadDuration))

	bm.SetInfo("9.9.9", "other")
	assert.Equal(t, 1, testutil.CollectAndCount(bm.info))
}

func TestCollector_AsRecorder(t *testing.T) {
	c := testCollector(t)
	rs, err := rules.NewParser().ParseBytes([]byte(nsRules), "ns.yaml")
	require.NoError(t, err)
	b, err := compiler.Compile([]*rules.RuleSet{rs})
	require.NoError(t, err)

	tr := engine.New(b, engine.WithRecorder(c))
	res := tr.Translate(context.Background(), attrs.Map{"ns.role": "user"})
	require.Equal(t, engine.StatusMatched, res.Status)
	tr.Translate(context.Background(), attrs.Map{"http.method": "GET"})

	tm := c.translation
	assert.Equal(t, 1.0, testutil.ToFloat64(tm.translationsTotal.WithLabelValues("ns", "matched")))
	assert.Equal(t, 1.0, testutil.ToFloat64(tm.translationsTotal.WithLabelValues(ProviderNone, "unmatched")))
	assert.Equal(t, 1.0, testutil.ToFloat64(tm.detectionsTotal.WithLabelValues("ns", "exact")))
	assert.Equal(t, float64(len(res.Diagnostics)), testutil.ToFloat64(tm.anomaliesTotal.WithLabelValues("ns", "mapping_gap")))
}

func TestCollector_Handler(t *testing.T) {
	c := testCollector(t)
	c.RecordTranslation("openai", engine.StatusFailed, time.Millisecond)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), `prism_translations_total{provider="openai",status="failed"} 1`), string(body))
}

func TestCardinalityLimiter(t *testing.T) {
	cl := NewCardinalityLimiter(2)
	assert.True(t, cl.Allow("a"))
	assert.True(t, cl.Allow("b"))
	assert.False(t, cl.Allow("c"))
	assert.True(t, cl.Allow("a"))
	assert.Equal(t, 2, cl.Count())
}
