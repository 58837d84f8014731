// Package config holds the value coercion shared by the configuration
// stores. Files decode integers as int64 and arrays as []any, while values
// set in-process keep their Go types; the typed getters accept both.
package config

// String returns v if it is a string.
func String(v any) string {
	s, _ := v.(string)
	return s
}

// Int returns v as an int. Floats are truncated.
func Int(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return 0
}

// Float returns v as a float64. Integers are widened.
func Float(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	}
	return 0
}

// Bool returns v if it is a bool.
func Bool(v any) bool {
	b, _ := v.(bool)
	return b
}

// StringSlice returns the string elements of v. Non-string elements are skipped.
func StringSlice(v any) []string {
	switch items := v.(type) {
	case []string:
		return items
	case []any:
		out := make([]string, 0, len(items))
		for _, item := range items {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
