// Package normalize turns raw CBBD API payloads into flat, snake_case
// records ready for tabular analysis.
//
// Every payload goes through the same stages in a fixed order:
//
//  1. Unwrap: nil, a single object, a list, or a wrapper object whose list
//     field holds the records (sibling fields are copied onto each record)
//  2. CleanNulls: the "NULL" string sentinel becomes nil
//  3. Extract: field aliases, known nested objects (hometown, home/away
//     team), generic {parent}_{child} flattening
//  4. Coerce: numeric fields to float64, date fields to time.Time; a value
//     that does not parse becomes nil
//  5. Derive: computed columns such as point_differential, score_change
//     or points_per_game, only when every input is present
//  6. Standardize: camelCase and PascalCase keys become snake_case
//
// What each stage does for a record type is described by a Descriptor.
// The defaults live in DefaultRegistry.
//
// # Usage
//
//	records, err := normalize.NormalizeJSON(body, normalize.Games)
//	if err != nil {
//		return err
//	}
//	wins := normalize.FilterExact(records, "home_win", true)
//
// An empty record type detects the type from the payload's wrapper key or,
// for bare lists, from the fields of the first record.
//
// # Overrides
//
// Known upstream data gaps are patched with a YAML table applied after
// standardization:
//
//	overrides:
//	  - description: Texas joined the SEC
//	    types: [teams, games]
//	    match: {school: Texas}
//	    seasons: [2025]
//	    set: {conference: SEC}
package normalize
