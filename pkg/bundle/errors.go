package bundle

import (
	"errors"
	"fmt"
)

// Sentinel errors matched with errors.Is.
var (
	ErrNotFound           = errors.New("bundle not found")
	ErrCorrupt            = errors.New("bundle is corrupt")
	ErrUnsupportedVersion = errors.New("unsupported bundle version")
	ErrUnknownProvider    = errors.New("unknown provider")
)

// Kind classifies a LoadError.
type Kind string

const (
	KindMissing  Kind = "missing"
	KindCorrupt  Kind = "corrupt"
	KindVersion  Kind = "version"
	KindProvider Kind = "provider"
)

// LoadError is returned when a bundle or one of its provider sections cannot
// be loaded. A failed load never yields a partial bundle.
type LoadError struct {
	Kind     Kind
	Path     string
	Provider string

	// Version and Supported are set for KindVersion.
	Version   string
	Supported string

	Err error
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	where := e.Path
	if e.Provider != "" {
		if where != "" {
			where += " "
		}
		where += fmt.Sprintf("provider %q", e.Provider)
	}
	if where == "" {
		where = "bundle"
	}

	if e.Kind == KindVersion {
		return fmt.Sprintf("%s: bundle version %q is not supported by this loader (supported %s)",
			where, e.Version, e.Supported)
	}
	return fmt.Sprintf("%s: %v", where, e.Err)
}

// Unwrap returns the underlying error.
func (e *LoadError) Unwrap() error {
	return e.Err
}

// VersionError reports a bundle version outside the supported range.
type VersionError struct {
	Version   string
	Supported string
}

// Error implements the error interface.
func (e *VersionError) Error() string {
	return fmt.Sprintf("bundle version %q is outside supported range %s", e.Version, e.Supported)
}

// Unwrap returns ErrUnsupportedVersion.
func (e *VersionError) Unwrap() error {
	return ErrUnsupportedVersion
}

// loadError classifies err into a LoadError for path.
func loadError(path, provider string, err error) *LoadError {
	var le *LoadError
	if errors.As(err, &le) {
		if le.Path == "" {
			le.Path = path
		}
		return le
	}

	e := &LoadError{Path: path, Provider: provider, Err: err}
	var ve *VersionError
	switch {
	case errors.As(err, &ve):
		e.Kind = KindVersion
		e.Version = ve.Version
		e.Supported = ve.Supported
	case errors.Is(err, ErrNotFound):
		e.Kind = KindMissing
	case errors.Is(err, ErrUnknownProvider):
		e.Kind = KindProvider
	default:
		e.Kind = KindCorrupt
		if !errors.Is(err, ErrCorrupt) {
			e.Err = fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
	}
	return e
}
