// Package attrs reads values back out of slog-style key/value lists.
package attrs

// ExtractString returns the string value paired with key in a
// [key1, value1, key2, value2, ...] list, or "" when absent or not a string.
func ExtractString(attrs []any, key string) string {
	for i := 0; i+1 < len(attrs); i += 2 {
		if k, ok := attrs[i].(string); ok && k == key {
			if v, ok := attrs[i+1].(string); ok {
				return v
			}
		}
	}
	return ""
}

// FirstString returns the value of the first key that is present.
func FirstString(attrs []any, keys ...string) string {
	for _, key := range keys {
		if v := ExtractString(attrs, key); v != "" {
			return v
		}
	}
	return ""
}
