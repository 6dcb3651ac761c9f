// Package compiler builds a bundle from parsed rule sets.
//
// The compiler checks everything the runtime relies on: every pattern has a
// non-empty required key set, every step list writes each target once,
// every transform resolves against the registry, and patterns that share a
// required key set can be told apart by a value constraint. Any failure
// aborts the build and is reported in a single *ErrorList naming the
// provider, pattern and step involved.
//
//	sets, err := rules.LoadDirectory(ctx, "rules/")
//	if err != nil {
//	    return err
//	}
//	b, err := compiler.Compile(sets)
//	if err != nil {
//	    return err // *compiler.ErrorList
//	}
//	return bundle.Write("bundle.json", b, bundle.FormatJSON)
//
// Output is deterministic. The build id is a name-based UUID over the
// bundle's canonical encoding, so compiling the same rules twice yields the
// same bytes.
package compiler
