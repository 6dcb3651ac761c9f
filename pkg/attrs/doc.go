// Package attrs models the flattened attribute set carried by a single span.
//
// Instrumentation libraries encode nested request/response structure as flat
// dotted keys, with array positions written as numeric path segments:
//
//	gen_ai.prompt.0.role        = "user"
//	gen_ai.prompt.0.content     = "hello"
//	gen_ai.completion.0.tool_calls.1.function.name = "get_weather"
//
// A Map holds those keys and their scalar values (string, bool, int64,
// float64 or nil). The package provides key-set canonicalization used by the
// detector's signature index, path parsing shared by the extractor, and a
// bounded Flatten walk used by adapters and tests.
package attrs
