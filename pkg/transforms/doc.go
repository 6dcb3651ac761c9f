// Package transforms is the fixed registry of named, pure functions that
// extraction rules reference by implementation id.
//
// Rules never carry code. A rule names a transform; the compiler resolves the
// name to an implementation id registered here and fails the build when the
// id is unknown. Every runtime that interprets a bundle ships the same set of
// ids with the same contract, so a bundle behaves identically everywhere.
//
// # Built-in transforms
//
//	direct_copy        first input, unchanged (null when absent)
//	first_non_null     first present, non-null input
//	preserve_string    string-preserving copy; strings are never parsed
//	to_string          alias of preserve_string
//	reconstruct_array  rebuild an array from prefix.N.field keys
//	parse_json         opt-in decode of a JSON string into structure
//	join               join present string inputs with a separator
//
// # Array reconstruction
//
// Reconstruct groups every key of the form prefix.<n>.<rest> by n, writes
// rest as a nested path into a fresh object per index (numeric segments in
// rest produce nested arrays) and emits an array of length max(n)+1. Missing
// indices become empty objects. Leaves declared preserve-as-string keep their
// original text even when it looks like serialized JSON.
package transforms
