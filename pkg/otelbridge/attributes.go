package otelbridge

import (
	"strconv"

	"go.opentelemetry.io/otel/attribute"

	"mercator-hq/prism/pkg/attrs"
)

// FromAttributes converts span attributes to a flattened attribute map.
// Scalars map directly; slice values are flattened to key.0, key.1, ...
// entries, the same encoding instrumentation libraries use for arrays.
func FromAttributes(kvs []attribute.KeyValue) attrs.Map {
	m := make(attrs.Map, len(kvs))
	for _, kv := range kvs {
		Put(m, kv)
	}
	return m
}

// Put adds one attribute to m.
func Put(m attrs.Map, kv attribute.KeyValue) {
	key := string(kv.Key)
	v := kv.Value
	switch v.Type() {
	case attribute.BOOL:
		m[key] = v.AsBool()
	case attribute.INT64:
		m[key] = v.AsInt64()
	case attribute.FLOAT64:
		m[key] = v.AsFloat64()
	case attribute.STRING:
		m[key] = v.AsString()
	case attribute.BOOLSLICE:
		putSlice(m, key, v.AsBoolSlice())
	case attribute.INT64SLICE:
		putSlice(m, key, v.AsInt64Slice())
	case attribute.FLOAT64SLICE:
		putSlice(m, key, v.AsFloat64Slice())
	case attribute.STRINGSLICE:
		putSlice(m, key, v.AsStringSlice())
	case attribute.INVALID:
		// Dropped.
	default:
		m[key] = v.Emit()
	}
}

func putSlice[T any](m attrs.Map, key string, values []T) {
	for i, v := range values {
		m[key+attrs.Separator+strconv.Itoa(i)] = v
	}
}
