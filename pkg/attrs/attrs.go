// Package attrs works with flat key-value attribute slices of the form
// [key1, value1, key2, value2, ...], the shape services use when passing audit
// and notification metadata alongside slog-style logging.
package attrs

// ToMap converts a key-value attribute slice into a map, skipping non-string
// keys. Later duplicates win; a trailing key without a value is dropped.
func ToMap(attrs []any) map[string]any {
	m := make(map[string]any, len(attrs)/2)
	for i := 0; i < len(attrs)-1; i += 2 {
		k, ok := attrs[i].(string)
		if !ok {
			continue
		}
		m[k] = attrs[i+1]
	}
	return m
}
