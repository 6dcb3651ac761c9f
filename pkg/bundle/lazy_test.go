package bundle

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// manyProviders builds a bundle with n providers, each with one pattern.
func manyProviders(t *testing.T, n int) *Bundle {
	t.Helper()

	b := &Bundle{
		Version:        CurrentVersion,
		SignatureIndex: map[string]SignatureEntry{},
		PatternCatalog: map[string][]*PatternDescriptor{},
		Extractors:     map[string][]*StepDescriptor{},
		Mappings:       map[string]MappingTable{},
		Transforms:     map[string]*TransformDescriptor{},
	}
	for i := 0; i < n; i++ {
		provider := fmt.Sprintf("p%02d", i)
		key := provider + ".model"
		b.SignatureIndex[key] = SignatureEntry{Provider: provider, Source: "s", PatternID: provider + ".s", Confidence: 1, Priority: 100}
		b.PatternCatalog[provider] = []*PatternDescriptor{{ID: provider + ".s", Source: "s", RequiredKeys: []string{key}, Confidence: 1, Priority: 100}}
		b.Extractors[ExtractorKey(provider, "s")] = []*StepDescriptor{{Op: OpDirectCopy, SourcePath: key, Target: "model"}}
		b.Mappings[provider] = MappingTable{SectionOutputs: {"model": {SourceName: "model"}}}
	}
	require.NoError(t, b.Seal())
	return b
}

func TestOpenLazy_ConcurrentFirstUseLoadsOnce(t *testing.T) {
	const providers = 16
	const callersPerProvider = 8

	dir := filepath.Join(t.TempDir(), "bundle")
	require.NoError(t, WriteSplit(dir, manyProviders(t, providers)))

	var mu sync.Mutex
	loads := map[string]int{}
	lb, err := OpenLazy(dir, WithLoadHook(func(provider string, _ time.Duration, err error) {
		assert.NoError(t, err)
		mu.Lock()
		loads[provider]++
		mu.Unlock()
	}))
	require.NoError(t, err)
	assert.Empty(t, lb.Loaded())

	start := make(chan struct{})
	var wg sync.WaitGroup
	var failures atomic.Int32
	for i := 0; i < providers; i++ {
		provider := fmt.Sprintf("p%02d", i)
		for j := 0; j < callersPerProvider; j++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				ps, err := lb.Provider(provider)
				if err != nil || ps == nil || len(ps.Steps("s")) != 1 || ps.Mapping[SectionOutputs]["model"] == nil {
					failures.Add(1)
				}
			}()
		}
	}
	close(start)
	wg.Wait()

	assert.Zero(t, failures.Load(), "a caller observed a missing or partial provider")
	assert.Len(t, loads, providers)
	for provider, n := range loads {
		assert.Equal(t, 1, n, "provider %s loaded %d times", provider, n)
	}
	assert.Len(t, lb.Loaded(), providers)
}

func TestOpenLazy_UnknownProvider(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "bundle")
	require.NoError(t, WriteSplit(dir, testBundle(t, "b1")))

	lb, err := OpenLazy(dir)
	require.NoError(t, err)

	_, err = lb.Provider("cohere")
	var le *LoadError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, KindProvider, le.Kind)
}

func TestOpenLazy_FailedLoadIsRetried(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "bundle")
	require.NoError(t, WriteSplit(dir, testBundle(t, "b1")))

	file := filepath.Join(dir, ProvidersDir, "openai.json")
	saved, err := os.ReadFile(file)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(file, []byte("{not json"), 0o644))

	lb, err := OpenLazy(dir)
	require.NoError(t, err)

	_, err = lb.Provider("openai")
	assert.True(t, errors.Is(err, ErrCorrupt))
	assert.Empty(t, lb.Loaded())

	// Other providers are unaffected.
	_, err = lb.Provider("anthropic")
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(file, saved, 0o644))
	ps, err := lb.Provider("openai")
	require.NoError(t, err)
	assert.Equal(t, "openai", ps.Provider)
}

func TestOpenLazy_RejectsBadIndex(t *testing.T) {
	_, err := OpenLazy(t.TempDir())
	var le *LoadError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, KindMissing, le.Kind)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, IndexFile), []byte(`{"version":"3.0.0"}`), 0o644))
	_, err = OpenLazy(dir)
	assert.True(t, errors.Is(err, ErrUnsupportedVersion))
}

func TestLazyBundle_Preload(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "bundle")
	require.NoError(t, WriteSplit(dir, manyProviders(t, 5)))

	lb, err := OpenLazy(dir)
	require.NoError(t, err)
	require.NoError(t, lb.Preload(context.Background()))
	assert.Len(t, lb.Loaded(), 5)
}

func TestCache(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "bundle.json")
	split := filepath.Join(dir, "split")
	b := testBundle(t, "b1")
	require.NoError(t, WriteFile(file, b, false))
	require.NoError(t, WriteSplit(split, b))

	c := NewCache()

	var wg sync.WaitGroup
	results := make([]*Bundle, 8)
	for i := range results {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], _ = c.Load(file)
		}()
	}
	wg.Wait()
	for _, r := range results {
		assert.Same(t, results[0], r)
	}

	l1, err := c.OpenLazy(split)
	require.NoError(t, err)
	l2, err := c.OpenLazy(split + "/")
	require.NoError(t, err)
	assert.Same(t, l1, l2)

	c.Forget(file)
	again, err := c.Load(file)
	require.NoError(t, err)
	assert.NotSame(t, results[0], again)

	_, err = c.Load(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}
