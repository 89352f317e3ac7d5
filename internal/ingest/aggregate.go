package ingest

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// ErrNotSorted is returned by Aggregate when its input ordering precondition
// does not hold.
var ErrNotSorted = errors.New("rows are not sorted by basis and date")

// Row is one record of a decomposed file: a product, the row's date when
// the layout carries one, and the numeric values of the kept columns.
type Row struct {
	Date   time.Time
	Basis  string
	Values []float64
}

func compareRows(a, b Row, byDate bool) int {
	switch {
	case a.Basis < b.Basis:
		return -1
	case a.Basis > b.Basis:
		return 1
	}
	if !byDate {
		return 0
	}
	return a.Date.Compare(b.Date)
}

// SortRows orders rows by basis and, when byDate is set, by date.
func SortRows(rows []Row, byDate bool) {
	sort.SliceStable(rows, func(i, j int) bool {
		return compareRows(rows[i], rows[j], byDate) < 0
	})
}

// Aggregate merges runs of rows sharing a basis (and date, when byDate is
// set) by element-wise summation in a single pass. Rows must already be in
// SortRows order; ErrNotSorted is returned otherwise. The input is not
// modified.
func Aggregate(rows []Row, byDate bool) ([]Row, error) {
	out := make([]Row, 0, len(rows))
	for i, row := range rows {
		if i > 0 {
			cmp := compareRows(rows[i-1], row, byDate)
			if cmp > 0 {
				return nil, fmt.Errorf("%w: row %d", ErrNotSorted, i)
			}
			if cmp == 0 {
				last := &out[len(out)-1]
				if len(last.Values) != len(row.Values) {
					return nil, fmt.Errorf("row %d has %d values, want %d", i, len(row.Values), len(last.Values))
				}
				for j, v := range row.Values {
					last.Values[j] += v
				}
				continue
			}
		}
		out = append(out, Row{
			Basis:  row.Basis,
			Date:   row.Date,
			Values: append([]float64(nil), row.Values...),
		})
	}
	return out, nil
}
