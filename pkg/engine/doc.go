// Package engine translates one span's flattened attributes into a
// canonical event.
//
// Translation runs three stages over a compiled bundle:
//
//   - Detect picks the provider pattern the attribute set belongs to: an
//     exact lookup of the full key set in the signature index, then a scan
//     of every pattern in fallback order.
//   - The Extractor runs the matched source's steps over an accumulator,
//     reconstructing arrays from prefix.N.field keys and applying registry
//     transforms.
//   - Map copies accumulator values into the four event sections following
//     the provider's mapping table.
//
// A Translator ties the stages together. It is safe for concurrent use and
// holds no per-span state:
//
//	tr := engine.New(b, engine.WithLogger(logger))
//	res := tr.Translate(ctx, attrs.Map{"gen_ai.system": "openai", ...})
//	if res.Status == engine.StatusMatched {
//	    sink(res.Event)
//	}
//
// A span that matches nothing yields StatusUnmatched and an empty event.
// Problems inside a matched span (a transform missing from this runtime, a
// step input never populated, a required field left unresolved) are
// reported as diagnostics and never stop the span. A panic or a provider
// that cannot be loaded yields StatusFailed for that span only.
package engine
