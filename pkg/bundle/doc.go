// Package bundle defines the compiled bundle artifact and loads it.
//
// A bundle is the single, language-neutral output of the rule compiler. It
// holds the signature index used for exact detection, the pattern catalog
// used for fallback detection, per provider:source extraction steps, per
// provider mapping tables and the transform catalog. Once loaded a bundle is
// never mutated and may be shared by any number of goroutines.
//
// # Layouts
//
// A bundle is written either as one JSON document (optionally gzip
// compressed) or as a split directory:
//
//	bundle/
//	  index.json             version, signature index, catalog, transforms
//	  providers/openai.json  extractors and mapping for one provider
//
// Load reads either layout eagerly. OpenLazy reads a split directory's index
// up front and each provider file on first use, exactly once per provider
// even under concurrent first use.
//
// # Runtime sources
//
// The engine reads bundles through the Source interface, implemented by
// *Bundle, *LazyBundle and *Holder. A Holder wraps another source and can be
// swapped atomically by a Reloader when the artifact changes on disk.
package bundle
