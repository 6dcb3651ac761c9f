package bundle

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// LazyBundle is a split bundle whose provider sections are read on first
// use. The index is resident from OpenLazy on.
//
// Each provider is read exactly once even when many goroutines ask for it at
// the same time; callers asking for an already cached provider never wait,
// including while another provider is being read. A failed read is not
// cached and is retried on the next request.
type LazyBundle struct {
	dir   string
	index *Index

	providers sync.Map // provider id -> *ProviderSection
	group     singleflight.Group

	logger *slog.Logger
	onLoad func(provider string, elapsed time.Duration, err error)
}

// LazyOption configures a LazyBundle.
type LazyOption func(*LazyBundle)

// WithLogger sets the logger used for provider loads.
func WithLogger(logger *slog.Logger) LazyOption {
	return func(l *LazyBundle) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithLoadHook registers fn to be called after every provider read attempt.
func WithLoadHook(fn func(provider string, elapsed time.Duration, err error)) LazyOption {
	return func(l *LazyBundle) {
		l.onLoad = fn
	}
}

// OpenLazy opens the split bundle directory dir. The index is read and
// version checked immediately; errors are *LoadError.
func OpenLazy(dir string, opts ...LazyOption) (*LazyBundle, error) {
	l := &LazyBundle{
		dir:    dir,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}

	ix, err := readIndex(dir)
	if err != nil {
		return nil, loadError(dir, "", err)
	}
	l.index = ix
	l.logger = l.logger.With("component", "bundle.lazy", "bundle_version", ix.Version)
	return l, nil
}

// Index returns the resident index.
func (l *LazyBundle) Index() *Index {
	return l.index
}

// Provider returns the section for id, reading it on first use.
func (l *LazyBundle) Provider(id string) (*ProviderSection, error) {
	if v, ok := l.providers.Load(id); ok {
		return v.(*ProviderSection), nil
	}
	if !l.index.HasProvider(id) {
		return nil, &LoadError{Kind: KindProvider, Path: l.dir, Provider: id, Err: ErrUnknownProvider}
	}

	v, err, _ := l.group.Do(id, func() (any, error) {
		if v, ok := l.providers.Load(id); ok {
			return v, nil
		}

		start := time.Now()
		ps, err := readProvider(l.dir, id)
		elapsed := time.Since(start)
		if l.onLoad != nil {
			l.onLoad(id, elapsed, err)
		}
		if err != nil {
			l.logger.Error("Provider load failed", "provider", id, "error", err)
			return nil, loadError(l.dir, id, err)
		}

		l.providers.Store(id, ps)
		l.logger.Debug("Provider loaded", "provider", id, "duration_ms", elapsed.Milliseconds())
		return ps, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*ProviderSection), nil
}

// Loaded returns the ids of the providers read so far, sorted.
func (l *LazyBundle) Loaded() []string {
	var ids []string
	l.providers.Range(func(k, _ any) bool {
		ids = append(ids, k.(string))
		return true
	})
	sort.Strings(ids)
	return ids
}

// Preload reads every provider section concurrently.
func (l *LazyBundle) Preload(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for _, id := range l.index.Providers {
		id := id
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			_, err := l.Provider(id)
			return err
		})
	}
	return g.Wait()
}
