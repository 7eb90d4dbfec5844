package normalize

import "sort"

// Extract resolves field aliases, promotes known nested objects and
// flattens any other nested object into {parent}_{child} fields. rec is
// modified in place and returned.
//
// For each canonical field the first candidate name holding a non-nil
// value wins; the canonical name in any casing is tried before the
// descriptor's aliases. Every matched source key is replaced by the
// canonical one.
func Extract(rec Record, desc *Descriptor) Record {
	if desc != nil {
		resolveAliases(rec, desc)
		for _, rule := range desc.Nested {
			promote(rec, rule)
		}
	}
	flatten(rec)
	return rec
}

func resolveAliases(rec Record, desc *Descriptor) {
	desc.compile()

	bySnake := make(map[string][]string, len(rec))
	for k := range rec {
		s := ToSnakeCase(k)
		bySnake[s] = append(bySnake[s], k)
	}
	for _, keys := range bySnake {
		sort.Strings(keys)
	}

	claimed := make(map[string]bool)
	for _, name := range desc.canonical {
		var (
			value   any
			matched []string
		)
		for _, cand := range desc.sources[name] {
			for _, k := range bySnake[cand] {
				if claimed[k] {
					continue
				}
				claimed[k] = true
				matched = append(matched, k)
				if value == nil {
					value = rec[k]
				}
			}
		}
		if len(matched) == 0 {
			continue
		}
		for _, k := range matched {
			delete(rec, k)
		}
		rec[name] = value
	}
}

func promote(rec Record, rule NestedRule) {
	nested, ok := rec[rule.Source].(map[string]any)
	if !ok {
		return
	}

	bySnake := make(map[string]any, len(nested))
	for k, v := range nested {
		s := ToSnakeCase(k)
		if cur, seen := bySnake[s]; !seen || cur == nil {
			bySnake[s] = v
		}
	}

	for _, field := range rule.Fields {
		target := rule.Prefix + field
		if cur, ok := rec[target]; ok && cur != nil {
			continue
		}
		rec[target] = bySnake[field]
	}
	delete(rec, rule.Source)
}

// flatten replaces nested objects with {parent}_{child} fields, recursively.
// Objects inside lists are flattened the same way, each on its own. Existing
// non-nil fields are never overwritten.
func flatten(rec Record) {
	var parents []string
	for k, v := range rec {
		switch t := v.(type) {
		case map[string]any:
			parents = append(parents, k)
		case []any:
			rec[k] = flattenList(t)
		}
	}
	sort.Strings(parents)

	for _, k := range parents {
		nested := rec[k].(map[string]any)
		delete(rec, k)
		flattenInto(rec, k, nested)
	}
}

func flattenInto(rec Record, prefix string, nested map[string]any) {
	for k, v := range nested {
		key := prefix + "_" + k
		switch t := v.(type) {
		case map[string]any:
			flattenInto(rec, key, t)
			continue
		case []any:
			v = flattenList(t)
		}
		if cur, ok := rec[key]; ok && cur != nil {
			continue
		}
		rec[key] = v
	}
}

// flattenList returns list with every object element replaced by a
// flattened copy. Lists without objects are returned as is.
func flattenList(list []any) []any {
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
		child := Record(m).Clone()
		flatten(child)
		out[i] = map[string]any(child)
	}
	if out == nil {
		return list
	}
	return out
}
