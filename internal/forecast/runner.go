package forecast

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/Veraticus/foundry-forecast/internal/common"
	"github.com/Veraticus/foundry-forecast/internal/metrics"
	"github.com/Veraticus/foundry-forecast/internal/model"
)

// Store is the persistence a Runner reads product data from and writes
// forecasts to.
type Store interface {
	Products(ctx context.Context, variable string) ([]string, error)
	MonthlySeries(ctx context.Context, variable, product string) ([]model.Point, error)
	AlignedMonthly(ctx context.Context, target, product string) ([]string, []model.MonthlyRow, error)
	UpdateForecast(ctx context.Context, product string, m model.ForecastModel, points []model.Point) error
	UpdateError(ctx context.Context, m model.ForecastModel, actualVariable string) (int64, error)
}

// PassResult summarizes one model pass.
type PassResult struct {
	Model      model.ForecastModel
	Duration   time.Duration
	Forecasted int
	Skipped    int
	Failed     int
	NullMonths int
}

// Runner executes forecast passes. A Runner allows one pass at a time;
// its store is shared by every product of a pass.
type Runner struct {
	store    Store
	metrics  *metrics.Metrics
	now      func() time.Time
	progress func(done, total int)
	models   map[model.ForecastModel]Model
	target   string
	mu       sync.Mutex
}

// Option configures a Runner.
type Option func(*Runner)

// WithModels replaces the default models.
func WithModels(models ...Model) Option {
	return func(r *Runner) {
		r.models = make(map[model.ForecastModel]Model, len(models))
		for _, m := range models {
			r.models[m.Name()] = m
		}
	}
}

// WithClock sets the clock used to date forecasts.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		r.now = now
	}
}

// WithMetrics records pass outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Runner) {
		r.metrics = m
	}
}

// WithProgress is called after every product of every pass.
func WithProgress(fn func(done, total int)) Option {
	return func(r *Runner) {
		r.progress = fn
	}
}

// NewRunner creates a runner forecasting target.
func NewRunner(store Store, target string, opts ...Option) *Runner {
	r := &Runner{
		store:  store,
		target: target,
		now:    time.Now,
	}
	WithModels(DefaultModels(DefaultAlpha, DefaultAlpha)...)(r)
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes one pass per model over products, in the order given. An
// empty products list means every product with target data. Failures of a
// single product are logged and counted, never returned. Cancellation is
// checked before each product; the results so far are returned with the
// context's error.
func (r *Runner) Run(ctx context.Context, products []string, models []model.ForecastModel) ([]PassResult, error) {
	if !r.mu.TryLock() {
		return nil, common.ErrPassInProgress
	}
	defer r.mu.Unlock()

	passes := make([]Model, 0, len(models))
	for _, name := range models {
		m, ok := r.models[name]
		if !ok {
			return nil, fmt.Errorf("%w: unknown model %q", common.ErrInvalidConfig, name)
		}
		passes = append(passes, m)
	}

	if len(products) == 0 {
		var err error
		products, err = r.store.Products(ctx, r.target)
		if err != nil {
			return nil, fmt.Errorf("failed to list products: %w", err)
		}
	}

	total := len(products) * len(passes)
	done := 0
	results := make([]PassResult, 0, len(passes))
	for _, m := range passes {
		start := time.Now()
		result := PassResult{Model: m.Name()}

		for _, product := range products {
			if err := ctx.Err(); err != nil {
				result.Duration = time.Since(start)
				return append(results, result), err
			}

			r.forecastProduct(ctx, m, product, &result)

			done++
			if r.progress != nil {
				r.progress(done, total)
			}
		}

		result.Duration = time.Since(start)
		if r.metrics != nil {
			r.metrics.PassDuration.WithLabelValues(string(m.Name())).Observe(result.Duration.Seconds())
		}
		common.LogInfo("Forecast pass complete", common.Fields{
			"model":      string(m.Name()),
			"forecasted": result.Forecasted,
			"skipped":    result.Skipped,
			"failed":     result.Failed,
			"duration":   result.Duration.String(),
		})
		results = append(results, result)
	}
	return results, nil
}

func (r *Runner) forecastProduct(ctx context.Context, m Model, product string, result *PassResult) {
	outcome := metrics.OutcomeOK
	defer func() {
		if r.metrics != nil {
			r.metrics.ForecastProducts.WithLabelValues(string(m.Name()), outcome).Inc()
		}
	}()

	fail := func(step string, err error) {
		outcome = metrics.OutcomeFailed
		result.Failed++
		slog.Warn("Forecast failed for product",
			"product", product,
			"model", string(m.Name()),
			"step", step,
			"error", err)
	}

	target, err := r.store.MonthlySeries(ctx, r.target, product)
	if err != nil {
		fail("load", err)
		return
	}
	if len(target) == 0 {
		outcome = metrics.OutcomeSkipped
		result.Skipped++
		return
	}

	in := Input{Product: product, Target: target}
	if m.UsesIndependents() {
		_, in.Aligned, err = r.store.AlignedMonthly(ctx, r.target, product)
		if err != nil {
			fail("load", err)
			return
		}
	}

	f, err := m.Forecast(in)
	if err != nil {
		fail("forecast", err)
		return
	}

	if err := r.store.UpdateForecast(ctx, product, m.Name(), Horizon(r.now(), f)); err != nil {
		fail("store", err)
		return
	}

	nulls := 0
	for _, v := range f {
		if math.IsNaN(v) {
			nulls++
		}
	}
	result.Forecasted++
	result.NullMonths += nulls
	if r.metrics != nil {
		r.metrics.ForecastMonths.WithLabelValues(string(m.Name()), metrics.OutcomeOK).Add(float64(12 - nulls))
		r.metrics.ForecastMonths.WithLabelValues(string(m.Name()), metrics.OutcomeNull).Add(float64(nulls))
	}
}

// RunErrors recomputes the residual column of each model against the
// target's monthly actuals. It returns the rows updated per model.
func (r *Runner) RunErrors(ctx context.Context, models []model.ForecastModel) (map[model.ForecastModel]int64, error) {
	if !r.mu.TryLock() {
		return nil, common.ErrPassInProgress
	}
	defer r.mu.Unlock()

	updated := make(map[model.ForecastModel]int64, len(models))
	for _, m := range models {
		if err := ctx.Err(); err != nil {
			return updated, err
		}
		n, err := r.store.UpdateError(ctx, m, r.target)
		if err != nil {
			return updated, fmt.Errorf("failed to update %s errors: %w", m, err)
		}
		updated[m] = n
		if r.metrics != nil {
			r.metrics.ErrorRows.WithLabelValues(string(m)).Add(float64(n))
		}
		common.LogInfo("Forecast errors updated", common.Fields{
			"model": string(m),
			"rows":  n,
		})
	}
	return updated, nil
}
