// Package reshape lays monthly series out in the shapes the forecast models
// train on: a year by month grid, or twelve calendar-month buckets.
package reshape

import (
	"math"
	"time"

	"github.com/Veraticus/foundry-forecast/internal/model"
)

// YearGrid holds a monthly series as one row per calendar year, January
// through December. Months without an observation are NaN.
type YearGrid struct {
	Rows      [][12]float64
	FirstYear int
}

// Column returns the values of one calendar month across the grid's years,
// oldest first.
func (g YearGrid) Column(month time.Month) []float64 {
	col := make([]float64, len(g.Rows))
	for i, row := range g.Rows {
		col[i] = row[month-1]
	}
	return col
}

// YearRows places points on a year by month grid. The first and last
// years are padded with NaN outside the observed range, as is any month
// missing inside it. Points must be sorted by date; a later point in the
// same month replaces an earlier one.
func YearRows(points []model.Point) YearGrid {
	if len(points) == 0 {
		return YearGrid{}
	}

	first := points[0].Date.Year()
	last := points[len(points)-1].Date.Year()
	grid := YearGrid{
		FirstYear: first,
		Rows:      make([][12]float64, last-first+1),
	}
	for i := range grid.Rows {
		for m := range grid.Rows[i] {
			grid.Rows[i][m] = math.NaN()
		}
	}
	for _, p := range points {
		grid.Rows[p.Date.Year()-first][p.Date.Month()-1] = p.Value
	}
	return grid
}

// MonthBuckets groups aligned monthly rows by calendar month regardless of
// year. Bucket 0 holds every January row, oldest first; each entry is the
// row's values with the target in position 0.
func MonthBuckets(rows []model.MonthlyRow) [12][][]float64 {
	var buckets [12][][]float64
	for _, row := range rows {
		m := row.Date.Month() - 1
		buckets[m] = append(buckets[m], append([]float64(nil), row.Values...))
	}
	return buckets
}
