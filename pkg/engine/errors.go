package engine

import "fmt"

// ProviderError reports that the matched provider's section could not be
// loaded. The span is reported as failed.
type ProviderError struct {
	Provider string
	Err      error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %q unavailable: %v", e.Provider, e.Err)
}

// Unwrap returns the underlying load error.
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// PanicError carries a panic recovered at the span boundary.
type PanicError struct {
	Value any
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("translation panicked: %v", e.Value)
}
