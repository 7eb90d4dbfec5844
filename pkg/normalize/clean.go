package normalize

import "strings"

// NullSentinel is the string the upstream API sends in place of null.
const NullSentinel = "NULL"

// IsNullSentinel reports whether v is the null sentinel in any casing.
func IsNullSentinel(v any) bool {
	s, ok := v.(string)
	return ok && strings.EqualFold(s, NullSentinel)
}

// CleanNulls returns a deep copy of rec with every null sentinel replaced
// by nil, including values inside nested objects and lists.
func CleanNulls(rec Record) Record {
	out := make(Record, len(rec))
	for k, v := range rec {
		out[k] = cleanValue(v)
	}
	return out
}

func cleanValue(v any) any {
	switch t := v.(type) {
	case string:
		if strings.EqualFold(t, NullSentinel) {
			return nil
		}
		return t
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, child := range t {
			out[k] = cleanValue(child)
		}
		return out
	case Record:
		return map[string]any(CleanNulls(t))
	case []any:
		out := make([]any, len(t))
		for i, child := range t {
			out[i] = cleanValue(child)
		}
		return out
	case []map[string]any:
		out := make([]any, len(t))
		for i, child := range t {
			out[i] = cleanValue(child)
		}
		return out
	default:
		return v
	}
}
