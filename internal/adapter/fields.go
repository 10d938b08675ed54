package adapter

import "strconv"

// Raw provider records arrive as decoded JSON objects whose key names have
// drifted across provider versions. The helpers below read a logical field
// through a list of historical aliases and coerce type mismatches to the
// zero value instead of failing the batch.

// stringField returns the first non-empty string value among the aliases.
// Numeric values are formatted; other types are skipped.
func stringField(rec map[string]any, keys ...string) string {
	for _, k := range keys {
		v, ok := rec[k]
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case string:
			if t != "" {
				return t
			}
		case float64:
			return strconv.FormatFloat(t, 'f', -1, 64)
		case int:
			return strconv.Itoa(t)
		}
	}
	return ""
}

// floatField returns the first numeric value among the aliases, accepting
// float64, int, or a parseable string. Missing or mismatched values yield nil.
func floatField(rec map[string]any, keys ...string) *float64 {
	for _, k := range keys {
		v, ok := rec[k]
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case float64:
			f := t
			return &f
		case int:
			f := float64(t)
			return &f
		case string:
			if f, err := strconv.ParseFloat(t, 64); err == nil {
				return &f
			}
		}
	}
	return nil
}

// intField is floatField truncated to an int.
func intField(rec map[string]any, keys ...string) *int {
	f := floatField(rec, keys...)
	if f == nil {
		return nil
	}
	n := int(*f)
	return &n
}

// nestedMap returns the first object value among the aliases.
func nestedMap(rec map[string]any, keys ...string) map[string]any {
	for _, k := range keys {
		if m, ok := rec[k].(map[string]any); ok {
			return m
		}
	}
	return nil
}

// stringSliceField returns the first value among the aliases coerced to a
// string slice. A bare string becomes a one-element slice; non-string array
// members are dropped.
func stringSliceField(rec map[string]any, keys ...string) []string {
	for _, k := range keys {
		v, ok := rec[k]
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case string:
			if t != "" {
				return []string{t}
			}
		case []any:
			var out []string
			for _, item := range t {
				if s, ok := item.(string); ok && s != "" {
					out = append(out, s)
				}
			}
			if len(out) > 0 {
				return out
			}
		}
	}
	return nil
}

// hasAny reports whether any alias is present with a non-nil value.
func hasAny(rec map[string]any, keys ...string) bool {
	for _, k := range keys {
		if v, ok := rec[k]; ok && v != nil {
			return true
		}
	}
	return false
}
