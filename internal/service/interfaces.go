// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/foundry-forecast/internal/model"
)

// Storage defines the contract for our persistence layer.
type Storage interface {
	// Variable operations
	EnsureVariable(ctx context.Context, name string) (model.Variable, error)
	Variables(ctx context.Context) ([]model.Variable, error)
	SaveObservations(ctx context.Context, obs []model.Observation, overwrite bool) (int64, error)
	Series(ctx context.Context, variable, product string) ([]model.Point, error)
	MonthlySeries(ctx context.Context, variable, product string) ([]model.Point, error)
	Products(ctx context.Context, variable string) ([]string, error)
	AlignedMonthly(ctx context.Context, target, product string) ([]string, []model.MonthlyRow, error)

	// Systematization
	TrimLeadingZeros(ctx context.Context, variable string) (int64, error)
	Rediscretize(ctx context.Context, variable string, reduction model.Reduction) (int64, error)
	Systematize(ctx context.Context, reductions map[string]model.Reduction, fallback model.Reduction) ([]model.SystematizeResult, error)

	// Forecast operations
	UpdateForecast(ctx context.Context, product string, m model.ForecastModel, points []model.Point) error
	UpdateError(ctx context.Context, m model.ForecastModel, actualVariable string) (int64, error)
	Forecasts(ctx context.Context, product string) ([]model.ForecastRecord, error)

	// Import bookkeeping
	AddImport(ctx context.Context, location string, importedAt time.Time, dateFormat string) (int64, error)
	Imports(ctx context.Context) ([]model.ImportRecord, error)
	IssueProvisionalKey(ctx context.Context, raw string) (string, error)
	MissingBases(ctx context.Context, includeResolved bool) ([]model.MissingBasis, error)
	ResolvedBases(ctx context.Context) (map[string]string, error)
	ResolveMissingBasis(ctx context.Context, provisional, product string) (int64, error)
	RecordUnmatchedHeader(ctx context.Context, header string) error
	UnmatchedHeaders(ctx context.Context) ([]model.UnmatchedHeader, error)
	DismissUnmatchedHeader(ctx context.Context, header string) error

	// History linking
	LinkHistory(ctx context.Context, prev, next string) (int64, error)
	UnlinkHistory(ctx context.Context, prev, next string) (int64, error)

	// Database management
	Migrate(ctx context.Context) error
	SchemaVersion(ctx context.Context) (int, error)
	Close() error
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
