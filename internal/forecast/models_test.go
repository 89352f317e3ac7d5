package forecast

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/foundry-forecast/internal/model"
)

func month(y int, m time.Month) time.Time {
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}

func series(start time.Time, values ...float64) []model.Point {
	points := make([]model.Point, len(values))
	for i, v := range values {
		points[i] = model.Point{Date: start.AddDate(0, i, 0), Value: v}
	}
	return points
}

func TestNaive_CarriesLastTwelveMonths(t *testing.T) {
	// Fourteen months from 2023-01: the last twelve run 2023-03..2024-02.
	values := make([]float64, 14)
	for i := range values {
		values[i] = float64(i + 1)
	}

	f, err := Naive{}.Forecast(Input{Target: series(month(2023, time.January), values...)})
	require.NoError(t, err)
	assert.Equal(t, 13.0, f[0], "January comes from 2024-01")
	assert.Equal(t, 14.0, f[1])
	assert.Equal(t, 3.0, f[2], "March comes from 2023-03")
	assert.Equal(t, 12, f.Known())
}

func TestNaive_ShortHistory(t *testing.T) {
	f, err := Naive{}.Forecast(Input{Target: series(month(2024, time.May), 5, 6)})
	require.NoError(t, err)
	assert.Equal(t, 2, f.Known())
	assert.Equal(t, 5.0, f[4])
	assert.Equal(t, 6.0, f[5])
	assert.True(t, math.IsNaN(f[0]))
}

func TestEMAModel_SmoothsEachMonthAcrossYears(t *testing.T) {
	var target []model.Point
	target = append(target, series(month(2022, time.March), 10)...)
	target = append(target, series(month(2023, time.March), 20, 7)...)

	f, err := EMAModel{Alpha: 0.5}.Forecast(Input{Target: target})
	require.NoError(t, err)
	assert.Equal(t, 15.0, f[2])
	assert.Equal(t, 7.0, f[3])
	assert.True(t, math.IsNaN(f[0]))
	assert.Equal(t, 2, f.Known())
}

func TestEMAModel_NoData(t *testing.T) {
	f, err := EMAModel{Alpha: 0.7}.Forecast(Input{})
	require.NoError(t, err)
	assert.Equal(t, 0, f.Known())
}

func TestMLRModel_PerMonthRegression(t *testing.T) {
	// January: y = 1 + 2x over four years. February has a single year and
	// cannot be fitted. The other months have no data.
	var rows []model.MonthlyRow
	for i, x := range []float64{1, 2, 3, 4} {
		rows = append(rows, model.MonthlyRow{
			Date:   month(2020+i, time.January),
			Values: []float64{1 + 2*x, x},
		})
	}
	rows = append(rows, model.MonthlyRow{Date: month(2020, time.February), Values: []float64{9, 3}})

	f, err := MLRModel{Alpha: 1}.Forecast(Input{Product: "WIDGET-1", Aligned: rows})
	require.NoError(t, err)

	// With alpha 1 the smoothed regressor is the latest value, 4.
	assert.InDelta(t, 9, f[0], 1e-9)
	assert.True(t, math.IsNaN(f[1]))
	assert.Equal(t, 1, f.Known())
}

func TestMLRModel_DropsIncompleteRows(t *testing.T) {
	rows := []model.MonthlyRow{
		{Date: month(2020, time.June), Values: []float64{3, 1}},
		{Date: month(2021, time.June), Values: []float64{5, 2}},
		{Date: month(2022, time.June), Values: []float64{math.NaN(), 3}},
		{Date: month(2023, time.June), Values: []float64{9, 4}},
	}

	f, err := MLRModel{Alpha: 1}.Forecast(Input{Aligned: rows})
	require.NoError(t, err)
	assert.InDelta(t, 9, f[5], 1e-9)
}

func TestMLRModel_TargetOnlyIsMean(t *testing.T) {
	rows := []model.MonthlyRow{
		{Date: month(2021, time.July), Values: []float64{10}},
		{Date: month(2022, time.July), Values: []float64{20}},
	}

	f, err := MLRModel{Alpha: 0.7}.Forecast(Input{Aligned: rows})
	require.NoError(t, err)
	assert.InDelta(t, 15, f[6], 1e-9)
}

func TestHorizon(t *testing.T) {
	now := time.Date(2024, time.May, 17, 9, 0, 0, 0, time.UTC)
	f := model.NoForecast()
	f[0] = 1

	points := Horizon(now, f)
	require.Len(t, points, 12)
	assert.Equal(t, month(2025, time.January), points[0].Date)
	assert.Equal(t, 1.0, points[0].Value)
	assert.Equal(t, month(2025, time.May), points[4].Date, "the current month rolls to next year")
	assert.Equal(t, month(2024, time.June), points[5].Date)
	assert.Equal(t, month(2024, time.December), points[11].Date)
	assert.True(t, math.IsNaN(points[11].Value))
}
