package normalize

import (
	"sort"
	"strings"
	"sync"
)

// Record is one canonical row: snake_case field names mapped to scalar values
// (float64, string, bool, time.Time or nil). A list the payload carries
// without an explode rule stays a list; objects inside it are flattened and
// snake_cased like the record itself.
type Record map[string]any

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// RecordType selects the descriptor used to normalize a payload.
type RecordType string

const (
	Games       RecordType = "games"
	Plays       RecordType = "plays"
	Roster      RecordType = "roster"
	Teams       RecordType = "teams"
	PlayerStats RecordType = "player_stats"
	TeamStats   RecordType = "team_stats"
	Rankings    RecordType = "rankings"
	Ratings     RecordType = "ratings"
	Lines       RecordType = "lines"
	Venues      RecordType = "venues"

	// TeamBoxscores and PlayerBoxscores split a game box score into one
	// row per team or per player, tagged with team_type home or away.
	TeamBoxscores   RecordType = "team_boxscores"
	PlayerBoxscores RecordType = "player_boxscores"

	Generic RecordType = "generic"
)

// RecordTypes lists every known record type.
var RecordTypes = []RecordType{
	Games, Plays, Roster, Teams, PlayerStats, TeamStats,
	Rankings, Ratings, Lines, Venues, TeamBoxscores, PlayerBoxscores, Generic,
}

// ParseRecordType accepts a record type name in any casing.
func ParseRecordType(s string) (RecordType, bool) {
	t := RecordType(ToSnakeCase(strings.TrimSpace(s)))
	for _, known := range RecordTypes {
		if t == known {
			return t, true
		}
	}
	return "", false
}

// ExplodeLevel expands a nested list field into one record per element.
// Scalars of the parent are carried onto each child; the child's own
// fields win. Rename maps parent field names to the name they take on the
// child (e.g., a rating system's "name" becomes "rating_system").
type ExplodeLevel struct {
	ListKey string
	Rename  map[string]string
}

// SplitLevel replaces a record with the rows held by several sibling
// fields, tagging each row with the side it came from. A source field may
// hold one object or a list of objects. Only the parent's scalars are
// carried onto the rows; the row's own fields win.
type SplitLevel struct {
	TagField string
	Sources  []SplitSource
}

// SplitSource names one field of a SplitLevel and the tag its rows get.
type SplitSource struct {
	Field string
	Tag   string
}

// NestedRule promotes the leaves of a known nested object to top-level
// fields named Prefix + field. Fields are canonical snake_case names; the
// nested object may spell them in any casing.
type NestedRule struct {
	Source string
	Prefix string
	Fields []string
}

// Deriver adds derived columns to a batch of records in place. Derivers
// only write a column when every input it needs is present.
type Deriver func(records []Record)

// Descriptor parameterizes the pipeline for one record type.
type Descriptor struct {
	Type RecordType

	// ListKeys are wrapper fields holding the record list (e.g., "plays")
	ListKeys []string

	// Signature fields identify a bare record list of this type
	Signature []string

	Explode []ExplodeLevel

	// Split is applied after Explode.
	Split *SplitLevel

	// Aliases maps a canonical field to further accepted source names.
	// The canonical name itself, in any casing, is always accepted first.
	Aliases map[string][]string

	// Fields lists canonical names resolved during extraction besides
	// those already named by Numeric, Dates and Nested.
	Fields []string

	Nested []NestedRule

	Numeric []string
	Dates   []string

	// NumericByDefault coerces every numeric-looking value, leaving other
	// strings untouched. Used for wide stat tables.
	NumericByDefault bool

	Derivers []Deriver

	once      sync.Once
	canonical []string            // ordered canonical names
	sources   map[string][]string // canonical -> candidate snake_case names
	numeric   map[string]bool
	dates     map[string]bool
}

// expands reports whether field is consumed by an explode or split level.
func (d *Descriptor) expands(field string) bool {
	for _, level := range d.Explode {
		if level.ListKey == field {
			return true
		}
	}
	if d.Split != nil {
		for _, src := range d.Split.Sources {
			if src.Field == field {
				return true
			}
		}
	}
	return false
}

func (d *Descriptor) compile() {
	d.once.Do(func() {
		d.sources = make(map[string][]string)
		d.numeric = make(map[string]bool, len(d.Numeric))
		d.dates = make(map[string]bool, len(d.Dates))

		add := func(name string) {
			name = ToSnakeCase(name)
			if _, ok := d.sources[name]; ok {
				return
			}
			candidates := []string{name}
			for _, alias := range d.Aliases[name] {
				candidates = append(candidates, ToSnakeCase(alias))
			}
			d.sources[name] = candidates
			d.canonical = append(d.canonical, name)
		}

		for _, f := range d.Fields {
			add(f)
		}
		for _, f := range d.Numeric {
			add(f)
			d.numeric[ToSnakeCase(f)] = true
		}
		for _, f := range d.Dates {
			add(f)
			d.dates[ToSnakeCase(f)] = true
		}
		for _, rule := range d.Nested {
			add(rule.Source)
		}
		for canonical := range d.Aliases {
			add(canonical)
		}
		sort.Strings(d.canonical)
	})
}

// IsNumeric reports whether the snake_case field is coerced to a number.
func (d *Descriptor) IsNumeric(field string) bool {
	d.compile()
	return d.numeric[ToSnakeCase(field)]
}

// IsDate reports whether the snake_case field is coerced to a time.
func (d *Descriptor) IsDate(field string) bool {
	d.compile()
	return d.dates[ToSnakeCase(field)]
}
