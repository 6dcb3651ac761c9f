package engine

import "fmt"

// DefaultMaxDiagnostics bounds the diagnostics kept for one span.
const DefaultMaxDiagnostics = 64

// diagnostics accumulates the recovered problems of one span.
type diagnostics struct {
	provider string
	pattern  string
	max      int

	list    []Diagnostic
	dropped int
}

func newDiagnostics(m Match, max int) *diagnostics {
	if max <= 0 {
		max = DefaultMaxDiagnostics
	}
	return &diagnostics{provider: m.Provider, pattern: m.PatternID, max: max}
}

func (d *diagnostics) anomaly(step, format string, args ...any) {
	d.add(Diagnostic{Kind: KindExtractionAnomaly, Step: step, Message: fmt.Sprintf(format, args...)})
}

func (d *diagnostics) gap(field, format string, args ...any) {
	d.add(Diagnostic{Kind: KindMappingGap, Field: field, Message: fmt.Sprintf(format, args...)})
}

func (d *diagnostics) add(diag Diagnostic) {
	if len(d.list) >= d.max {
		d.dropped++
		return
	}
	diag.Provider = d.provider
	diag.Pattern = d.pattern
	d.list = append(d.list, diag)
}
