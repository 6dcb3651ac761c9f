package attrs

import (
	"strconv"
	"strings"
)

// MaxDepth bounds the number of segments the flatten and reconstruction walks
// will follow below a prefix. Keys nested deeper are ignored.
const MaxDepth = 64

// MaxIndex is the largest array index reconstruction will materialize.
// Keys with a larger index segment are ignored so a single hostile key cannot
// force a huge allocation.
const MaxIndex = 100000

// SplitPath splits a dotted path into its segments.
// An empty path yields no segments.
func SplitPath(path string) []string {
	if path == "" {
		return nil
	}
	return strings.Split(path, Separator)
}

// JoinPath joins segments with the separator.
func JoinPath(segments ...string) string {
	return strings.Join(segments, Separator)
}

// ParseIndex interprets seg as an array index. Only canonical non-negative
// base-10 integers are indices: "0", "7", "42". Signs, spaces and leading
// zeros ("01") are not, so such segments are treated as object keys.
func ParseIndex(seg string) (int, bool) {
	if seg == "" || len(seg) > 9 {
		return 0, false
	}
	if len(seg) > 1 && seg[0] == '0' {
		return 0, false
	}
	for i := 0; i < len(seg); i++ {
		if seg[i] < '0' || seg[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(seg)
	if err != nil {
		return 0, false
	}
	return n, true
}

// IsIndex reports whether seg is an array index segment.
func IsIndex(seg string) bool {
	_, ok := ParseIndex(seg)
	return ok
}

// FieldPath returns segments joined with the separator after dropping every
// index segment. It is the element-relative shape of a leaf, used to match
// declared preserve-as-string paths regardless of array positions:
//
//	FieldPath([]string{"function", "arguments"})          == "function.arguments"
//	FieldPath([]string{"content", "3", "text"})           == "content.text"
func FieldPath(segments []string) string {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		if IsIndex(s) {
			continue
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, Separator)
}
