package conformance

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"mercator-hq/prism/pkg/attrs"
	"mercator-hq/prism/pkg/engine"
)

// CaseResult is the outcome of one case.
type CaseResult struct {
	Name     string   `json:"name"`
	Passed   bool     `json:"passed"`
	Failures []string `json:"failures,omitempty"`
}

// Report is the outcome of one fixture.
type Report struct {
	Fixture string       `json:"fixture"`
	Cases   []CaseResult `json:"cases"`
	Passed  int          `json:"passed"`
	Failed  int          `json:"failed"`
}

// OK reports whether every case passed.
func (r Report) OK() bool {
	return r.Failed == 0
}

// String renders the report as text, one line per case and one indented
// line per failure.
func (r Report) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %d passed, %d failed\n", r.Fixture, r.Passed, r.Failed)
	for _, c := range r.Cases {
		mark := "ok  "
		if !c.Passed {
			mark = "FAIL"
		}
		fmt.Fprintf(&sb, "  %s %s\n", mark, c.Name)
		for _, f := range c.Failures {
			fmt.Fprintf(&sb, "       %s\n", f)
		}
	}
	return sb.String()
}

// Run translates every case of f with tr and compares the results.
func Run(ctx context.Context, tr *engine.Translator, f *Fixture) Report {
	report := Report{Fixture: f.Name, Cases: make([]CaseResult, 0, len(f.Cases))}
	for i := range f.Cases {
		cr := runCase(ctx, tr, &f.Cases[i])
		if cr.Passed {
			report.Passed++
		} else {
			report.Failed++
		}
		report.Cases = append(report.Cases, cr)
	}
	return report
}

func runCase(ctx context.Context, tr *engine.Translator, c *Case) CaseResult {
	cr := CaseResult{Name: c.Name}
	fail := func(format string, args ...any) {
		cr.Failures = append(cr.Failures, fmt.Sprintf(format, args...))
	}

	m, err := c.attributes()
	if err != nil {
		fail("invalid attributes: %v", err)
		return cr
	}
	res := tr.Translate(ctx, m)
	want := c.Expect

	if string(res.Status) != want.Status {
		fail("status: got %s, want %s", res.Status, want.Status)
		if res.Err != nil {
			fail("error: %v", res.Err)
		}
	}
	if want.Provider != "" && res.Match.Provider != want.Provider {
		fail("provider: got %q, want %q", res.Match.Provider, want.Provider)
	}
	if want.Pattern != "" && res.Match.PatternID != want.Pattern {
		fail("pattern: got %q, want %q", res.Match.PatternID, want.Pattern)
	}
	if want.Path != "" && string(res.Match.Path) != want.Path {
		fail("path: got %s, want %s", res.Match.Path, want.Path)
	}

	if want.Event != nil {
		if err := compareEvent(res.Event, want.Event); err != nil {
			fail("%v", err)
		}
	}

	if want.Diagnostics != nil {
		got := make([]string, len(res.Diagnostics))
		for i, d := range res.Diagnostics {
			got[i] = string(d.Kind)
		}
		if strings.Join(got, ",") != strings.Join(want.Diagnostics, ",") {
			fail("diagnostics: got [%s], want [%s]", strings.Join(got, ", "), strings.Join(want.Diagnostics, ", "))
		}
	}

	cr.Passed = len(cr.Failures) == 0
	return cr
}

// compareEvent compares canonical JSON encodings. Map keys are sorted by
// encoding/json, and null is kept distinct from absent.
func compareEvent(got *engine.CanonicalEvent, want map[string]any) error {
	expected := engine.NewCanonicalEvent()
	for section, v := range want {
		if v == nil {
			continue
		}
		n, err := attrs.NormalizeValue(v)
		if err != nil {
			return fmt.Errorf("expected event section %s: %w", section, err)
		}
		fields, ok := n.(map[string]any)
		if !ok {
			return fmt.Errorf("expected event section %s must be a mapping", section)
		}
		dst := expected.Section(section)
		for k, fv := range fields {
			dst[k] = fv
		}
	}

	g, err := json.Marshal(got)
	if err != nil {
		return fmt.Errorf("event is not encodable: %w", err)
	}
	w, err := json.Marshal(expected)
	if err != nil {
		return fmt.Errorf("expected event is not encodable: %w", err)
	}
	if !bytes.Equal(g, w) {
		return fmt.Errorf("event:\n         got  %s\n         want %s", g, w)
	}
	return nil
}
