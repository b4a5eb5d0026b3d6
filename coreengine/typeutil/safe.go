// Package typeutil provides comma-ok conversions for loosely typed values,
// such as maps decoded from JSON or YAML.
package typeutil

// SafeString asserts value to string.
func SafeString(value any) (string, bool) {
	s, ok := value.(string)
	return s, ok
}

// SafeInt converts value to int. Integer kinds convert directly; float64 and
// float32 (JSON numbers) are accepted only when they hold a whole number.
func SafeInt(value any) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case int32:
		return int(v), true
	case uint:
		return int(v), true
	case float64:
		if v != float64(int(v)) {
			return 0, false
		}
		return int(v), true
	case float32:
		if v != float32(int(v)) {
			return 0, false
		}
		return int(v), true
	default:
		return 0, false
	}
}

// SetString stores value in dst when it is a string.
func SetString(dst *string, value any) {
	if s, ok := SafeString(value); ok {
		*dst = s
	}
}

// SetInt stores value in dst when SafeInt accepts it.
func SetInt(dst *int, value any) {
	if i, ok := SafeInt(value); ok {
		*dst = i
	}
}
