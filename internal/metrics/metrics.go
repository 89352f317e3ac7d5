// Package metrics holds the Prometheus instruments for ingestion runs and
// forecast passes.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values.
const (
	OutcomeOK      = "ok"
	OutcomeFailed  = "failed"
	OutcomeSkipped = "skipped"
	OutcomeNull    = "null"
)

// Metrics holds all Prometheus instruments for the system.
type Metrics struct {
	// Ingestion
	FilesImported     *prometheus.CounterVec
	ObservationsSaved prometheus.Counter
	RowsRejected      prometheus.Counter
	CellErrors        prometheus.Counter
	ProvisionalKeys   prometheus.Counter
	UnmatchedHeaders  prometheus.Counter

	// Forecasting
	ForecastProducts *prometheus.CounterVec
	ForecastMonths   *prometheus.CounterVec
	PassDuration     *prometheus.HistogramVec
	ErrorRows        *prometheus.CounterVec
}

// New creates the instruments and registers them with reg. A nil reg
// leaves them unregistered, which is what tests want.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		FilesImported: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forecast_files_imported_total",
				Help: "Files processed by the importer by detected kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		ObservationsSaved: factory.NewCounter(prometheus.CounterOpts{
			Name: "forecast_observations_saved_total",
			Help: "Observations written to variable tables",
		}),
		RowsRejected: factory.NewCounter(prometheus.CounterOpts{
			Name: "forecast_rows_rejected_total",
			Help: "Input rows skipped for a missing basis or unreadable date",
		}),
		CellErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "forecast_cell_errors_total",
			Help: "Non-numeric cells coerced to zero",
		}),
		ProvisionalKeys: factory.NewCounter(prometheus.CounterOpts{
			Name: "forecast_provisional_keys_total",
			Help: "Provisional product keys issued for unresolved identifiers",
		}),
		UnmatchedHeaders: factory.NewCounter(prometheus.CounterOpts{
			Name: "forecast_unmatched_headers_total",
			Help: "Header cells that matched neither a variable nor a date",
		}),

		ForecastProducts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forecast_products_total",
				Help: "Products handled by forecast passes by model and outcome",
			},
			[]string{"model", "outcome"},
		),
		ForecastMonths: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forecast_months_total",
				Help: "Forecast months written by model and outcome",
			},
			[]string{"model", "outcome"},
		),
		PassDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "forecast_pass_duration_seconds",
				Help:    "Duration of a full forecast pass",
				Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
			},
			[]string{"model"},
		),
		ErrorRows: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forecast_error_rows_total",
				Help: "Forecast rows whose residual was recomputed",
			},
			[]string{"model"},
		),
	}
}
