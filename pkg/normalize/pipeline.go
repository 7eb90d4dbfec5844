package normalize

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Pipeline turns raw API payloads into canonical records.
// It is safe for concurrent use once constructed.
type Pipeline struct {
	registry  Registry
	overrides *Overrides
	logger    zerolog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithRegistry replaces the default descriptors.
func WithRegistry(r Registry) Option {
	return func(p *Pipeline) {
		p.registry = r
	}
}

// WithOverrides applies an override table after standardization.
func WithOverrides(o *Overrides) Option {
	return func(p *Pipeline) {
		p.overrides = o
	}
}

// WithLogger sets the pipeline logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// NewPipeline creates a pipeline with the default registry.
func NewPipeline(opts ...Option) *Pipeline {
	p := &Pipeline{
		registry: DefaultRegistry(),
		logger:   log.With().Str("component", "normalize").Logger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Registry returns the pipeline's descriptors.
func (p *Pipeline) Registry() Registry {
	return p.registry
}

// Descriptor returns the descriptor used for raw under hint. An empty hint
// detects the record type from the payload.
func (p *Pipeline) Descriptor(raw any, hint RecordType) *Descriptor {
	if hint == "" {
		return p.registry.Detect(raw)
	}
	return p.registry.Lookup(hint)
}

// Normalize runs every stage over raw: unwrap, null cleaning, extraction,
// coercion, derived columns and key standardization, then the override
// table. It never fails; field-level problems become nil values.
func (p *Pipeline) Normalize(raw any, hint RecordType) []Record {
	desc := p.Descriptor(raw, hint)
	typ := string(desc.Type)

	records, malformed := Unwrap(raw, desc)
	if malformed {
		MalformedInputs.WithLabelValues(typ).Inc()
		p.logger.Warn().
			Str("type", typ).
			Str("input", fmt.Sprintf("%T", raw)).
			Msg("Unexpected payload shape, kept what could be read")
	}

	failures := 0
	for i, rec := range records {
		rec = Extract(CleanNulls(rec), desc)
		if failed := Coerce(rec, desc); len(failed) > 0 {
			failures += len(failed)
			p.logger.Debug().Str("type", typ).Strs("fields", failed).Int("record", i).Msg("Coercion failed")
		}
		records[i] = rec
	}
	if failures > 0 {
		CoercionFailures.WithLabelValues(typ).Add(float64(failures))
	}

	Derive(records, desc)

	for i, rec := range records {
		records[i] = Standardize(rec)
	}

	if n := p.overrides.Apply(desc.Type, records); n > 0 {
		OverridesApplied.WithLabelValues(typ).Add(float64(n))
		p.logger.Debug().Str("type", typ).Int("records", n).Msg("Overrides applied")
	}

	RecordsNormalized.WithLabelValues(typ).Add(float64(len(records)))
	return records
}

// NormalizeJSON decodes data and normalizes it. Only malformed JSON is an
// error; empty input yields no records.
func (p *Pipeline) NormalizeJSON(data []byte, hint RecordType) ([]Record, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return []Record{}, nil
	}

	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return p.Normalize(raw, hint), nil
}

var defaultPipeline = NewPipeline()

// Normalize runs the default pipeline over raw.
func Normalize(raw any, hint RecordType) []Record {
	return defaultPipeline.Normalize(raw, hint)
}

// NormalizeJSON runs the default pipeline over a JSON payload.
func NormalizeJSON(data []byte, hint RecordType) ([]Record, error) {
	return defaultPipeline.NormalizeJSON(data, hint)
}
