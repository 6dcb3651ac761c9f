package bundle

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Load reads the bundle at path eagerly. path is a single-document bundle
// (.json or .json.gz) or a split directory. Errors are *LoadError.
func Load(path string) (*Bundle, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, loadError(path, "", statErr(err))
	}

	var b *Bundle
	if info.IsDir() {
		b, err = loadSplit(path)
	} else {
		b, err = loadFile(path)
	}
	if err != nil {
		return nil, loadError(path, "", err)
	}
	return b, nil
}

func loadFile(path string) (*Bundle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, statErr(err)
	}
	defer f.Close()
	return Decode(f)
}

func loadSplit(dir string) (*Bundle, error) {
	ix, err := readIndex(dir)
	if err != nil {
		return nil, err
	}
	sections := make([]*ProviderSection, 0, len(ix.Providers))
	for _, id := range ix.Providers {
		ps, err := readProvider(dir, id)
		if err != nil {
			return nil, err
		}
		sections = append(sections, ps)
	}
	b, err := Join(ix, sections)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return b, nil
}

func readIndex(dir string) (*Index, error) {
	f, err := os.Open(filepath.Join(dir, IndexFile))
	if err != nil {
		return nil, statErr(err)
	}
	defer f.Close()

	var ix Index
	if err := decodeJSON(f, &ix); err != nil {
		return nil, err
	}
	if ix.Version == "" {
		return nil, fmt.Errorf("%w: missing version", ErrCorrupt)
	}
	if err := CheckVersion(ix.Version); err != nil {
		return nil, err
	}
	if ix.Providers == nil {
		return nil, fmt.Errorf("%w: missing providers", ErrCorrupt)
	}
	if err := ix.seal(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	for _, id := range ix.Providers {
		if !validProviderID(id) {
			return nil, fmt.Errorf("%w: invalid provider id %q", ErrCorrupt, id)
		}
	}
	return &ix, nil
}

func readProvider(dir, id string) (*ProviderSection, error) {
	f, err := os.Open(filepath.Join(dir, ProvidersDir, id+".json"))
	if err != nil {
		return nil, statErr(err)
	}
	defer f.Close()

	var ps ProviderSection
	if err := decodeJSON(f, &ps); err != nil {
		return nil, err
	}
	if err := ps.seal(id); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return &ps, nil
}

// validProviderID reports whether id is safe to use as a file name.
func validProviderID(id string) bool {
	if id == "" || id == "." || id == ".." {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '_' || r == '-' || r == '.':
		default:
			return false
		}
	}
	return true
}

// ValidProviderID reports whether id can name a provider section file.
func ValidProviderID(id string) bool {
	return validProviderID(id)
}

func statErr(err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return err
}

// Cache memoizes loaded bundles by absolute path so repeated loads in one
// process are idempotent. Concurrent loads of the same path share one read.
// Failed loads are not cached.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]Source
	group   singleflight.Group
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]Source)}
}

// Load returns the eagerly loaded bundle at path.
func (c *Cache) Load(path string) (*Bundle, error) {
	src, err := c.get("eager", path, func(abs string) (Source, error) {
		return Load(abs)
	})
	if err != nil {
		return nil, err
	}
	return src.(*Bundle), nil
}

// OpenLazy returns the lazily loaded split bundle at dir. Options apply only
// to the first open of a path.
func (c *Cache) OpenLazy(dir string, opts ...LazyOption) (*LazyBundle, error) {
	src, err := c.get("lazy", dir, func(abs string) (Source, error) {
		return OpenLazy(abs, opts...)
	})
	if err != nil {
		return nil, err
	}
	return src.(*LazyBundle), nil
}

// Forget drops every cached entry for path so the next load reads it again.
func (c *Cache) Forget(path string) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return
	}
	c.mu.Lock()
	delete(c.entries, "eager:"+abs)
	delete(c.entries, "lazy:"+abs)
	c.mu.Unlock()
}

func (c *Cache) get(mode, path string, load func(abs string) (Source, error)) (Source, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, loadError(path, "", err)
	}
	key := mode + ":" + abs

	c.mu.RLock()
	src, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		return src, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		c.mu.RLock()
		src, ok := c.entries[key]
		c.mu.RUnlock()
		if ok {
			return src, nil
		}
		src, err := load(abs)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.entries[key] = src
		c.mu.Unlock()
		return src, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(Source), nil
}
