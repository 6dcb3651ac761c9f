package attrs

import (
	"sort"
	"strings"
)

const (
	// Separator joins path segments inside a flattened key.
	Separator = "."

	// KeySetSeparator joins sorted keys into a canonical signature string.
	// It cannot appear in OpenTelemetry attribute names produced by known
	// instrumentations, so signatures never alias.
	KeySetSeparator = "|"
)

// Map is a flattened attribute set: dotted key -> scalar value.
// A Map is read-only once handed to the engine.
type Map map[string]any

// Get returns the value stored under key and whether the key is present.
// A present key may hold a nil value (an explicit null).
func (m Map) Get(key string) (any, bool) {
	v, ok := m[key]
	return v, ok
}

// Has reports whether key is present.
func (m Map) Has(key string) bool {
	_, ok := m[key]
	return ok
}

// HasAll reports whether every key in keys is present.
func (m Map) HasAll(keys []string) bool {
	for _, k := range keys {
		if _, ok := m[k]; !ok {
			return false
		}
	}
	return true
}

// Keys returns the keys of m in ascending byte order.
func (m Map) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Signature returns the canonical form of the full key set of m.
func (m Map) Signature() string {
	return strings.Join(m.Keys(), KeySetSeparator)
}

// WithPrefix returns the keys of m that start with prefix followed by the
// separator, in ascending byte order.
func (m Map) WithPrefix(prefix string) []string {
	p := prefix + Separator
	var keys []string
	for k := range m {
		if strings.HasPrefix(k, p) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// CanonicalKey sorts and deduplicates keys and joins them into the signature
// string used by the signature index. The input slice is not modified.
func CanonicalKey(keys []string) string {
	return strings.Join(SortedSet(keys), KeySetSeparator)
}

// SortedSet returns a sorted copy of keys with duplicates removed.
func SortedSet(keys []string) []string {
	out := make([]string, len(keys))
	copy(out, keys)
	sort.Strings(out)

	n := 0
	for i, k := range out {
		if i > 0 && k == out[n-1] {
			continue
		}
		out[n] = k
		n++
	}
	return out[:n]
}
