package bundle

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Format is an on-disk bundle layout.
type Format string

const (
	FormatJSON     Format = "json"
	FormatJSONGzip Format = "json.gz"
	FormatSplit    Format = "split"
)

// Split layout file names.
const (
	IndexFile    = "index.json"
	ProvidersDir = "providers"
)

// ParseFormat parses a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatJSON, FormatJSONGzip, FormatSplit:
		return f, nil
	}
	return "", fmt.Errorf("unknown bundle format %q (want json, json.gz or split)", s)
}

// FormatForPath guesses a format from a path: .json.gz and .gz are gzip,
// .json is plain JSON and anything else is a split directory.
func FormatForPath(path string) Format {
	switch {
	case strings.HasSuffix(path, ".gz"):
		return FormatJSONGzip
	case strings.HasSuffix(path, ".json"):
		return FormatJSON
	default:
		return FormatSplit
	}
}

// Write writes b to path in the given format. The artifact at path is
// replaced atomically; on error nothing is left behind.
func Write(path string, b *Bundle, format Format) error {
	switch format {
	case FormatJSON:
		return WriteFile(path, b, false)
	case FormatJSONGzip:
		return WriteFile(path, b, true)
	case FormatSplit:
		return WriteSplit(path, b)
	}
	return fmt.Errorf("unknown bundle format %q", format)
}

// WriteFile writes b as a single document through a temporary file renamed
// over path.
func WriteFile(path string, b *Bundle, compress bool) error {
	var buf bytes.Buffer
	if err := Encode(&buf, b, compress); err != nil {
		return err
	}
	return writeAtomic(path, buf.Bytes())
}

// WriteSplit writes b as a split directory. The directory is built next to
// path under a hidden temporary name and renamed into place; a previous
// directory at path is replaced.
func WriteSplit(path string, b *Bundle) error {
	ix, sections := b.Split()

	parent := filepath.Dir(path)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", parent, err)
	}
	tmp, err := os.MkdirTemp(parent, "."+filepath.Base(path)+".tmp-")
	if err != nil {
		return fmt.Errorf("failed to create temporary directory: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			os.RemoveAll(tmp)
		}
	}()

	if err := writeJSON(filepath.Join(tmp, IndexFile), ix); err != nil {
		return err
	}
	if err := os.Mkdir(filepath.Join(tmp, ProvidersDir), 0o755); err != nil {
		return err
	}
	for _, ps := range sections {
		if err := writeJSON(filepath.Join(tmp, ProvidersDir, ps.Provider+".json"), ps); err != nil {
			return err
		}
	}
	if err := os.Chmod(tmp, 0o755); err != nil {
		return err
	}

	var old string
	if _, err := os.Stat(path); err == nil {
		old = filepath.Join(parent, "."+filepath.Base(path)+".old")
		os.RemoveAll(old)
		if err := os.Rename(path, old); err != nil {
			return fmt.Errorf("failed to move previous bundle aside: %w", err)
		}
	}
	if err := os.Rename(tmp, path); err != nil {
		if old != "" {
			os.Rename(old, path)
		}
		return fmt.Errorf("failed to install bundle: %w", err)
	}
	committed = true
	if old != "" {
		os.RemoveAll(old)
	}
	return nil
}

func writeJSON(path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmp := f.Name()
	defer os.Remove(tmp)

	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("failed to write bundle: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("failed to sync bundle: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to install bundle: %w", err)
	}
	return nil
}
