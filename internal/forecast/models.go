// Package forecast produces twelve-month-ahead forecasts per product with
// three independent models and runs them as batch passes over a store.
package forecast

import (
	"errors"
	"log/slog"
	"math"
	"time"

	"github.com/Veraticus/foundry-forecast/internal/model"
	"github.com/Veraticus/foundry-forecast/internal/reshape"
)

// DefaultAlpha is the smoothing weight used by the EMA and MLR models.
const DefaultAlpha = 0.7

// Input is the data of one product handed to a model.
type Input struct {
	Product string
	// Target is the product's monthly target series in date order.
	Target []model.Point
	// Aligned holds target and independent variables joined by date. It is
	// only loaded for models that report UsesIndependents.
	Aligned []model.MonthlyRow
}

// Model is one forecasting algorithm. Forecast returns one value per
// calendar month, NaN where the model has nothing to say.
type Model interface {
	Name() model.ForecastModel
	UsesIndependents() bool
	Forecast(in Input) (model.MonthlyForecast, error)
}

// Naive carries the last twelve observed months forward to the same
// calendar months next year.
type Naive struct{}

// Name implements Model.
func (Naive) Name() model.ForecastModel { return model.ModelNaive }

// UsesIndependents implements Model.
func (Naive) UsesIndependents() bool { return false }

// Forecast implements Model.
func (Naive) Forecast(in Input) (model.MonthlyForecast, error) {
	out := model.NoForecast()
	recent := in.Target
	if len(recent) > 12 {
		recent = recent[len(recent)-12:]
	}
	for _, p := range recent {
		out[p.Date.Month()-1] = p.Value
	}
	return out, nil
}

// EMAModel smooths each calendar month across years and forecasts the
// smoothed value for that month.
type EMAModel struct {
	// Alpha is the smoothing weight; 0 selects 2/(n+1) per month.
	Alpha float64
}

// Name implements Model.
func (EMAModel) Name() model.ForecastModel { return model.ModelEMA }

// UsesIndependents implements Model.
func (EMAModel) UsesIndependents() bool { return false }

// Forecast implements Model.
func (m EMAModel) Forecast(in Input) (model.MonthlyForecast, error) {
	out := model.NoForecast()
	grid := reshape.YearRows(in.Target)
	if len(grid.Rows) == 0 {
		return out, nil
	}
	for month := time.January; month <= time.December; month++ {
		out[month-1] = EMA(grid.Column(month), m.Alpha)
	}
	return out, nil
}

// MLRModel fits a separate regression of the target on the independent
// variables for each calendar month, using that month's rows from every
// year, and predicts from the smoothed independents.
type MLRModel struct {
	// Alpha smooths the independents before prediction.
	Alpha float64
}

// Name implements Model.
func (MLRModel) Name() model.ForecastModel { return model.ModelMLR }

// UsesIndependents implements Model.
func (MLRModel) UsesIndependents() bool { return true }

// Forecast implements Model. A month whose regression cannot be fitted is
// left NaN; only the month is lost.
func (m MLRModel) Forecast(in Input) (model.MonthlyForecast, error) {
	out := model.NoForecast()
	buckets := reshape.MonthBuckets(in.Aligned)

	for i, bucket := range buckets {
		month := time.Month(i + 1)
		y, x := complete(bucket)

		beta, err := FitOLS(y, x)
		if err != nil {
			if !errors.Is(err, ErrInsufficientSamples) && !errors.Is(err, ErrSingular) {
				return out, err
			}
			slog.Debug("No regression for month",
				"product", in.Product,
				"month", month.String(),
				"rows", len(y),
				"error", err)
			continue
		}

		current := EMAColumns(x, m.Alpha)
		out[i] = Predict(beta, current)
		slog.Debug("Fitted monthly regression",
			"product", in.Product,
			"month", month.String(),
			"coefficients", beta)
	}
	return out, nil
}

// complete splits bucket rows into target and independents, dropping rows
// with any NaN.
func complete(bucket [][]float64) ([]float64, [][]float64) {
	y := make([]float64, 0, len(bucket))
	x := make([][]float64, 0, len(bucket))
	for _, row := range bucket {
		if len(row) == 0 || hasNaN(row) {
			continue
		}
		y = append(y, row[0])
		x = append(x, row[1:])
	}
	return y, x
}

func hasNaN(values []float64) bool {
	for _, v := range values {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}

// DefaultModels returns the three models with the given smoothing weights.
func DefaultModels(emaAlpha, mlrAlpha float64) []Model {
	return []Model{
		Naive{},
		EMAModel{Alpha: emaAlpha},
		MLRModel{Alpha: mlrAlpha},
	}
}

// Horizon dates a monthly forecast relative to now: a month later in the
// year than now is dated this year, any other month next year. Every date
// is the first of its month.
func Horizon(now time.Time, f model.MonthlyForecast) []model.Point {
	points := make([]model.Point, 12)
	for i, v := range f {
		month := time.Month(i + 1)
		year := now.Year()
		if month <= now.Month() {
			year++
		}
		points[i] = model.Point{
			Date:  time.Date(year, month, 1, 0, 0, 0, 0, time.UTC),
			Value: v,
		}
	}
	return points
}
