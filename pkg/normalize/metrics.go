package normalize

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RecordsNormalized tracks canonical records produced per record type
	RecordsNormalized = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cbbd_normalize_records_total",
			Help: "Total number of canonical records produced",
		},
		[]string{"type"},
	)

	// CoercionFailures tracks fields nulled because they could not be coerced
	CoercionFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cbbd_normalize_coercion_failures_total",
			Help: "Total number of fields nulled by failed numeric or date coercion",
		},
		[]string{"type"},
	)

	// MalformedInputs tracks payloads that were not a record, a record list or a wrapper
	MalformedInputs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cbbd_normalize_malformed_inputs_total",
			Help: "Total number of payloads wrapped or partially skipped because of their shape",
		},
		[]string{"type"},
	)

	// OverridesApplied tracks records patched by the override table
	OverridesApplied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cbbd_normalize_overrides_applied_total",
			Help: "Total number of records patched by data-quality overrides",
		},
		[]string{"type"},
	)
)
