package normalize

import (
	"sort"
	"strings"
	"unicode"
)

// ToSnakeCase converts camelCase and PascalCase names to snake_case. An
// underscore is inserted before every uppercase letter that follows a
// lowercase letter or digit, then the whole name is lowercased.
//
//	homeTeam     -> home_team
//	HomePoints   -> home_points
//	period2Score -> period2_score
//	home_team    -> home_team
//
// The conversion is idempotent.
func ToSnakeCase(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 4)

	var prev rune
	for i, r := range s {
		if i > 0 && unicode.IsUpper(r) && (unicode.IsLower(prev) || unicode.IsDigit(prev)) {
			b.WriteByte('_')
		}
		b.WriteRune(unicode.ToLower(r))
		prev = r
	}
	return b.String()
}

// Standardize returns a copy of rec with every key in snake_case, including
// the keys of objects held in lists. When two keys collapse to the same
// name, a key already in snake_case wins, then a non-nil value.
func Standardize(rec Record) Record {
	out := make(Record, len(rec))

	keys := make([]string, 0, len(rec))
	for k := range rec {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	native := make(map[string]bool, len(rec))
	for _, k := range keys {
		snake := ToSnakeCase(k)
		v := standardizeValue(rec[k])

		existing, taken := out[snake]
		switch {
		case !taken:
			out[snake] = v
			native[snake] = snake == k
		case native[snake]:
			if existing == nil && v != nil {
				out[snake] = v
			}
		case snake == k:
			if v != nil || existing == nil {
				out[snake] = v
			}
			native[snake] = true
		case existing == nil:
			out[snake] = v
		}
	}
	return out
}

// standardizeValue standardizes the objects inside a list value. Other
// values are returned unchanged.
func standardizeValue(v any) any {
	list, ok := v.([]any)
	if !ok {
		return v
	}
	var out []any
	for i, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if out == nil {
			out = make([]any, len(list))
			copy(out, list)
		}
		out[i] = map[string]any(Standardize(Record(m)))
	}
	if out == nil {
		return list
	}
	return out
}
