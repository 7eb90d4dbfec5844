package normalize

// OpaqueField holds the whole input when it cannot be read as records.
const OpaqueField = "value"

// Unwrap turns a raw JSON value into records.
//
//   - nil yields no records
//   - an object holding one of desc.ListKeys as a list yields one record per
//     list element, with the object's other non-list fields copied onto each
//     record (the record's own fields win)
//   - an object with no known list key but exactly one field holding a list
//     of objects is unwrapped the same way by that field, unless desc
//     expands the field itself or has a split level
//   - any other object yields one record
//   - a list yields one record per object element
//
// A list with no objects, or a scalar, becomes a single record holding the
// input under OpaqueField. malformed reports that the input was wrapped
// that way or that non-object list elements were skipped.
//
// Explode levels in desc, then its split level, are applied to the result. Returned records are
// fresh maps; nested values are still shared with the input.
func Unwrap(raw any, desc *Descriptor) (records []Record, malformed bool) {
	switch t := raw.(type) {
	case nil:
		return []Record{}, false
	case Record:
		records, malformed = unwrapObject(t, desc)
	case map[string]any:
		records, malformed = unwrapObject(t, desc)
	case []Record:
		records = make([]Record, 0, len(t))
		for _, r := range t {
			if r != nil {
				records = append(records, r.Clone())
			}
		}
	case []map[string]any:
		records = make([]Record, 0, len(t))
		for _, m := range t {
			if m != nil {
				records = append(records, Record(m).Clone())
			}
		}
	case []any:
		records, malformed = unwrapList(t)
	default:
		return []Record{{OpaqueField: raw}}, true
	}

	if desc != nil {
		for _, level := range desc.Explode {
			records = explode(records, level)
		}
		if desc.Split != nil {
			records = split(records, *desc.Split)
		}
	}
	return records, malformed
}

func unwrapObject(obj map[string]any, desc *Descriptor) ([]Record, bool) {
	if desc != nil {
		for _, key := range desc.ListKeys {
			if list, ok := listField(obj, key); ok {
				return unwrapWrapper(obj, key, list)
			}
		}
	}
	// A split level reads the object's lists itself.
	if desc == nil || desc.Split == nil {
		if key, list, ok := soleRecordList(obj, desc); ok {
			return unwrapWrapper(obj, key, list)
		}
	}
	return []Record{Record(obj).Clone()}, false
}

// unwrapWrapper returns the records of list, each carrying the wrapper's
// non-list fields other than key.
func unwrapWrapper(obj map[string]any, key string, list []any) ([]Record, bool) {
	records, malformed := unwrapList(list)
	meta := make(Record, len(obj))
	for k, v := range obj {
		if k == key || ToSnakeCase(k) == key {
			continue
		}
		if _, isList := v.([]any); isList {
			continue
		}
		meta[k] = v
	}
	for _, rec := range records {
		for k, v := range meta {
			if _, own := rec[k]; !own {
				rec[k] = v
			}
		}
	}
	return records, malformed
}

// soleRecordList finds the only field of obj holding a non-empty list of
// objects. Fields the descriptor expands itself are not candidates.
func soleRecordList(obj map[string]any, desc *Descriptor) (string, []any, bool) {
	var (
		found string
		list  []any
	)
	for k, v := range obj {
		items, ok := v.([]any)
		if !ok || len(items) == 0 || !allObjects(items) {
			continue
		}
		if desc != nil && desc.expands(ToSnakeCase(k)) {
			continue
		}
		if found != "" {
			return "", nil, false
		}
		found, list = k, items
	}
	return found, list, found != ""
}

func allObjects(items []any) bool {
	for _, item := range items {
		switch item.(type) {
		case map[string]any, Record:
		default:
			return false
		}
	}
	return true
}

func unwrapList(list []any) ([]Record, bool) {
	records := make([]Record, 0, len(list))
	skipped := 0
	for _, item := range list {
		switch m := item.(type) {
		case map[string]any:
			records = append(records, Record(m).Clone())
		case Record:
			records = append(records, m.Clone())
		default:
			skipped++
		}
	}

	if len(records) == 0 && skipped > 0 {
		return []Record{{OpaqueField: list}}, true
	}
	return records, skipped > 0
}

// listField finds key in obj in any casing and returns it if it holds a list.
func listField(obj map[string]any, key string) ([]any, bool) {
	if v, ok := obj[key]; ok {
		list, isList := v.([]any)
		return list, isList
	}
	for k, v := range obj {
		if ToSnakeCase(k) == key {
			list, isList := v.([]any)
			return list, isList
		}
	}
	return nil, false
}

// explode replaces every record holding level.ListKey as a list with one
// record per list element. Records without the list pass through.
func explode(records []Record, level ExplodeLevel) []Record {
	out := make([]Record, 0, len(records))
	for _, parent := range records {
		list, ok := listField(parent, level.ListKey)
		if !ok {
			out = append(out, parent)
			continue
		}

		carried := make(Record, len(parent))
		for k, v := range parent {
			if ToSnakeCase(k) == level.ListKey {
				continue
			}
			if _, isList := v.([]any); isList {
				continue
			}
			if renamed, ok := level.Rename[ToSnakeCase(k)]; ok {
				k = renamed
			}
			carried[k] = v
		}

		for _, item := range list {
			child, ok := item.(map[string]any)
			if !ok {
				continue
			}
			rec := Record(child).Clone()
			for k, v := range carried {
				if _, own := rec[k]; !own {
					rec[k] = v
				}
			}
			out = append(out, rec)
		}
	}
	return out
}

// split replaces every record holding at least one of level's sources with
// the rows found under those sources, in source order. Records without any
// source pass through.
func split(records []Record, level SplitLevel) []Record {
	out := make([]Record, 0, len(records))
	for _, parent := range records {
		bySnake := make(map[string]any, len(parent))
		for k, v := range parent {
			bySnake[ToSnakeCase(k)] = v
		}

		var rows []Record
		found := false
		for _, src := range level.Sources {
			v, ok := bySnake[src.Field]
			if !ok {
				continue
			}
			found = true
			for _, child := range sideRows(v) {
				if level.TagField != "" {
					child[level.TagField] = src.Tag
				}
				rows = append(rows, child)
			}
		}
		if !found {
			out = append(out, parent)
			continue
		}

		for k, v := range parent {
			switch v.(type) {
			case map[string]any, Record, []any:
				continue
			}
			for _, row := range rows {
				if _, own := row[k]; !own {
					row[k] = v
				}
			}
		}
		out = append(out, rows...)
	}
	return out
}

// sideRows returns fresh copies of the objects held by v, which may be one
// object or a list of them.
func sideRows(v any) []Record {
	switch t := v.(type) {
	case map[string]any:
		return []Record{Record(t).Clone()}
	case Record:
		return []Record{t.Clone()}
	case []any:
		rows := make([]Record, 0, len(t))
		for _, item := range t {
			switch m := item.(type) {
			case map[string]any:
				rows = append(rows, Record(m).Clone())
			case Record:
				rows = append(rows, m.Clone())
			}
		}
		return rows
	}
	return nil
}
