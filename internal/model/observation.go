package model

import "time"

// DateLayout is the textual date form used by every persisted table.
const DateLayout = "2006-01-02"

// Observation is one value of a variable for a product at a date.
type Observation struct {
	Date     time.Time
	Variable string
	Product  string
	Value    float64
}

// MonthlyRow is one date of a product's monthly data, aligned across
// variables. Values[0] is the dependent (target) variable.
type MonthlyRow struct {
	Date   time.Time
	Values []float64
}

// FirstOfMonth truncates t to the first day of its month in UTC.
func FirstOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
