package normalize

import (
	"sort"
	"strings"
	"time"
)

// FilterExact returns the records whose field equals value. Strings compare
// case-insensitively and numbers compare by value across numeric types.
// Records without the field, or with a nil value, never match.
func FilterExact(records []Record, field string, value any) []Record {
	out := make([]Record, 0)
	for _, rec := range records {
		v, ok := rec[field]
		if !ok || v == nil {
			continue
		}
		if valuesEqual(v, value) {
			out = append(out, rec)
		}
	}
	return out
}

func valuesEqual(a, b any) bool {
	if as, ok := a.(string); ok {
		bs, ok := b.(string)
		return ok && strings.EqualFold(as, bs)
	}
	if at, ok := a.(time.Time); ok {
		bt, ok := b.(time.Time)
		return ok && at.Equal(bt)
	}
	if ab, ok := a.(bool); ok {
		bb, ok := b.(bool)
		return ok && ab == bb
	}
	if _, isString := b.(string); isString {
		return false
	}
	if _, isBool := b.(bool); isBool {
		return false
	}
	af, ok1 := ToFloat(a)
	bf, ok2 := ToFloat(b)
	return ok1 && ok2 && af == bf
}

// SubtypeRule selects records of a subtype using one field. A rule is
// usable for a batch when at least one record has its field set.
type SubtypeRule struct {
	Field string
	keep  func(records []Record) []Record
}

// Flag keeps records whose field is true (or a non-zero number).
func Flag(field string) SubtypeRule {
	return SubtypeRule{Field: field, keep: func(records []Record) []Record {
		out := make([]Record, 0)
		for _, rec := range records {
			if truthy(rec[field]) {
				out = append(out, rec)
			}
		}
		return out
	}}
}

// Threshold keeps records whose numeric field is greater than min.
func Threshold(field string, min float64) SubtypeRule {
	return SubtypeRule{Field: field, keep: func(records []Record) []Record {
		out := make([]Record, 0)
		for _, rec := range records {
			if n, ok := number(rec, field); ok && n > min {
				out = append(out, rec)
			}
		}
		return out
	}}
}

// PositiveDelta keeps records whose numeric field increased over the
// previous record in batch order. The first record never matches.
func PositiveDelta(field string) SubtypeRule {
	return SubtypeRule{Field: field, keep: func(records []Record) []Record {
		out := make([]Record, 0)
		var (
			prev    float64
			hasPrev bool
		)
		for _, rec := range records {
			n, ok := number(rec, field)
			if !ok {
				hasPrev = false
				continue
			}
			if hasPrev && n > prev {
				out = append(out, rec)
			}
			prev, hasPrev = n, true
		}
		return out
	}}
}

func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return strings.EqualFold(t, "true")
	case nil:
		return false
	default:
		n, ok := ToFloat(v)
		return ok && n != 0
	}
}

// FilterBySubtype applies the first rule whose field is set in any record,
// in the order given. When no rule is usable the records are returned
// unfiltered.
func FilterBySubtype(records []Record, rules ...SubtypeRule) []Record {
	for _, rule := range rules {
		if !anyHas(records, rule.Field) {
			continue
		}
		return rule.keep(records)
	}
	return records
}

func anyHas(records []Record, field string) bool {
	for _, rec := range records {
		if v, ok := rec[field]; ok && v != nil {
			return true
		}
	}
	return false
}

// ScoringPlays keeps plays that scored: by the scoring_play flag, else by
// score_value above zero, else by an increase in total_score.
func ScoringPlays(records []Record) []Record {
	return FilterBySubtype(records,
		Flag("scoring_play"),
		Threshold("score_value", 0),
		PositiveDelta("total_score"),
	)
}

// DefaultTeamColumns are searched by FilterTeam when no columns are given.
var DefaultTeamColumns = []string{"team", "team_name", "school", "home_team_name", "away_team_name", "home_team", "away_team"}

// FilterTeam keeps the records matching team in the first column, in
// order, that matches any record.
func FilterTeam(records []Record, team string, columns ...string) []Record {
	if len(columns) == 0 {
		columns = DefaultTeamColumns
	}
	for _, col := range columns {
		if matched := FilterExact(records, col, team); len(matched) > 0 {
			return matched
		}
	}
	return []Record{}
}

// SortBy returns the records stably sorted by the given fields, ascending.
// Nil and missing values sort last.
func SortBy(records []Record, fields ...string) []Record {
	out := make([]Record, len(records))
	copy(out, records)

	sort.SliceStable(out, func(i, j int) bool {
		for _, f := range fields {
			if c := compareValues(out[i][f], out[j][f]); c != 0 {
				return c < 0
			}
		}
		return false
	})
	return out
}

func compareValues(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}

	if as, ok := a.(string); ok {
		if bs, ok := b.(string); ok {
			return strings.Compare(strings.ToLower(as), strings.ToLower(bs))
		}
	}
	if at, ok := a.(time.Time); ok {
		if bt, ok := b.(time.Time); ok {
			return at.Compare(bt)
		}
	}
	if af, ok := ToFloat(a); ok {
		if bf, ok := ToFloat(b); ok {
			switch {
			case af < bf:
				return -1
			case af > bf:
				return 1
			}
			return 0
		}
	}
	return 0
}

// Columns returns the sorted union of field names across the records.
func Columns(records []Record) []string {
	seen := make(map[string]bool)
	for _, rec := range records {
		for k := range rec {
			seen[k] = true
		}
	}
	cols := make([]string, 0, len(seen))
	for k := range seen {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}
