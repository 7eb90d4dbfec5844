package normalize

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// dateLayouts are tried in order when parsing date fields.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Coerce converts the descriptor's numeric fields to float64 and its date
// fields to time.Time, matching fields on their snake_case name. A value
// that cannot be converted becomes nil; the names of such fields are
// returned sorted. Nil values are left alone and are not failures.
func Coerce(rec Record, desc *Descriptor) (failed []string) {
	if desc == nil {
		return nil
	}
	desc.compile()

	for k, v := range rec {
		if v == nil {
			continue
		}
		field := ToSnakeCase(k)

		switch {
		case desc.numeric[field]:
			n, ok := ToFloat(v)
			if !ok {
				rec[k] = nil
				failed = append(failed, k)
				continue
			}
			rec[k] = n
		case desc.dates[field]:
			t, ok := ToTime(v)
			if !ok {
				rec[k] = nil
				failed = append(failed, k)
				continue
			}
			rec[k] = t
		case desc.NumericByDefault:
			if n, ok := numericLooking(v); ok {
				rec[k] = n
			}
		}
	}

	sort.Strings(failed)
	return failed
}

// ToFloat converts numbers, booleans and numeric strings to float64.
// NaN and infinities are rejected.
func ToFloat(v any) (float64, bool) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int8:
		f = float64(t)
	case int16:
		f = float64(t)
	case int32:
		f = float64(t)
	case int64:
		f = float64(t)
	case uint:
		f = float64(t)
	case uint8:
		f = float64(t)
	case uint16:
		f = float64(t)
	case uint32:
		f = float64(t)
	case uint64:
		f = float64(t)
	case json.Number:
		parsed, err := t.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case bool:
		if t {
			return 1, true
		}
		return 0, true
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// numericLooking converts numbers and numeric strings; booleans and other
// strings are not numeric-looking.
func numericLooking(v any) (float64, bool) {
	switch v.(type) {
	case bool:
		return 0, false
	case string:
		s := strings.TrimSpace(v.(string))
		if s == "" || strings.EqualFold(s, "nan") || strings.Contains(strings.ToLower(s), "inf") {
			return 0, false
		}
	}
	return ToFloat(v)
}

// ToTime parses ISO-8601 dates and timestamps.
func ToTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, !t.IsZero()
	case string:
		s := strings.TrimSpace(t)
		for _, layout := range dateLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				return parsed, true
			}
		}
	}
	return time.Time{}, false
}
