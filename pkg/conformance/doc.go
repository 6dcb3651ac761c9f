// Package conformance runs golden translation fixtures against a
// Translator.
//
// A fixture names a rule directory (compiled on load) or a prebuilt bundle,
// and lists cases: an attribute map and the expected status, match and
// event. Events are compared by their canonical JSON encoding, so a field
// that is explicitly null and a field that is absent are different results.
// Every runtime that reads the same bundle is expected to pass the same
// fixtures.
//
//	fixtures, err := conformance.LoadDir("testdata/fixtures")
//	for _, f := range fixtures {
//	    src, err := f.Source(ctx)
//	    report := conformance.Run(ctx, engine.New(src), f)
//	    fmt.Print(report)
//	}
package conformance
