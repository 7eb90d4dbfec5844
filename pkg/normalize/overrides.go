package normalize

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Override patches known upstream data gaps. A record matches when every
// Match field equals the given value (see FilterExact) and, if Seasons is
// set, its season is listed. Matching records get the Set fields.
type Override struct {
	Description string         `yaml:"description"`
	Types       []RecordType   `yaml:"types"`
	Match       map[string]any `yaml:"match"`
	Seasons     []int          `yaml:"seasons"`
	Set         map[string]any `yaml:"set"`
}

// Overrides is an ordered table of data-quality patches.
type Overrides struct {
	Rules []Override `yaml:"overrides"`
}

// LoadOverrides decodes and validates an override table from YAML.
func LoadOverrides(r io.Reader) (*Overrides, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var o Overrides
	if err := dec.Decode(&o); err != nil {
		if errors.Is(err, io.EOF) {
			return &Overrides{}, nil
		}
		return nil, fmt.Errorf("decode overrides: %w", err)
	}

	for i, rule := range o.Rules {
		if len(rule.Set) == 0 {
			return nil, fmt.Errorf("override %d (%s): set is empty", i, rule.Description)
		}
		if len(rule.Match) == 0 && len(rule.Seasons) == 0 {
			return nil, fmt.Errorf("override %d (%s): needs match or seasons", i, rule.Description)
		}
		for j, t := range rule.Types {
			parsed, ok := ParseRecordType(string(t))
			if !ok {
				return nil, fmt.Errorf("override %d (%s): unknown record type %q", i, rule.Description, t)
			}
			o.Rules[i].Types[j] = parsed
		}
	}
	return &o, nil
}

// LoadOverridesFile reads an override table from a YAML file.
func LoadOverridesFile(path string) (*Overrides, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read overrides: %w", err)
	}
	return LoadOverrides(bytes.NewReader(data))
}

// Apply patches matching records in place and returns how many were patched.
func (o *Overrides) Apply(t RecordType, records []Record) int {
	if o == nil {
		return 0
	}

	patched := 0
	for _, rec := range records {
		hit := false
		for _, rule := range o.Rules {
			if rule.applies(t, rec) {
				for k, v := range rule.Set {
					rec[k] = v
				}
				hit = true
			}
		}
		if hit {
			patched++
		}
	}
	return patched
}

func (rule Override) applies(t RecordType, rec Record) bool {
	if len(rule.Types) > 0 {
		found := false
		for _, rt := range rule.Types {
			if rt == t {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	for field, want := range rule.Match {
		v, ok := rec[field]
		if !ok || v == nil || !valuesEqual(v, want) {
			return false
		}
	}

	if len(rule.Seasons) > 0 {
		season, ok := number(rec, "season")
		if !ok {
			return false
		}
		listed := false
		for _, s := range rule.Seasons {
			if float64(s) == season {
				listed = true
				break
			}
		}
		if !listed {
			return false
		}
	}
	return true
}
