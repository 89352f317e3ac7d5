package model

import (
	"math"
	"time"
)

// ForecastModel names a forecasting algorithm. The value doubles as the
// forecast table column holding that model's output.
type ForecastModel string

const (
	// ModelNaive carries last year's observed months forward.
	ModelNaive ForecastModel = "naive"
	// ModelEMA smooths each calendar month across years.
	ModelEMA ForecastModel = "ema"
	// ModelMLR is the month-stratified multiple linear regression.
	ModelMLR ForecastModel = "mlr"
)

// AllModels lists every model in the order passes are run by default.
var AllModels = []ForecastModel{ModelNaive, ModelEMA, ModelMLR}

// Valid reports whether m is a known model.
func (m ForecastModel) Valid() bool {
	switch m {
	case ModelNaive, ModelEMA, ModelMLR:
		return true
	}
	return false
}

// Column returns the forecast table column for the model.
func (m ForecastModel) Column() string {
	return string(m)
}

// ErrorColumn returns the forecast table column holding the model's residual.
func (m ForecastModel) ErrorColumn() string {
	return string(m) + "_error"
}

// MonthlyForecast holds one value per calendar month, January first.
// NaN marks a month with no forecast.
type MonthlyForecast [12]float64

// NoForecast returns a forecast with every month unknown.
func NoForecast() MonthlyForecast {
	var f MonthlyForecast
	for i := range f {
		f[i] = math.NaN()
	}
	return f
}

// Known counts months holding a forecast.
func (f MonthlyForecast) Known() int {
	n := 0
	for _, v := range f {
		if !math.IsNaN(v) {
			n++
		}
	}
	return n
}

// Point is one dated value of a series or forecast.
type Point struct {
	Date  time.Time
	Value float64
}

// ForecastRecord is a row of the forecast table. Nil slots are NULL.
type ForecastRecord struct {
	Date    time.Time
	Product string
	Values  map[ForecastModel]*float64
	Errors  map[ForecastModel]*float64
}
