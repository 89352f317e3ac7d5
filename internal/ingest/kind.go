package ingest

import (
	"time"
)

// FileKind is the structural layout of an ingested file.
type FileKind int

const (
	// KindMultidimensionalTimeseries has a Date column and one or more
	// variable columns; each row is one product at one date.
	KindMultidimensionalTimeseries FileKind = iota
	// KindSingleDimensionTimeseries has dates as column headers and one row
	// per product; the file holds a single, externally named variable.
	KindSingleDimensionTimeseries
	// KindCrossSectional has no dates; one externally supplied date applies
	// to every value.
	KindCrossSectional
)

func (k FileKind) String() string {
	switch k {
	case KindMultidimensionalTimeseries:
		return "multidimensional-timeseries"
	case KindSingleDimensionTimeseries:
		return "single-dimension-timeseries"
	case KindCrossSectional:
		return "cross-sectional"
	default:
		return "unknown"
	}
}

// DetectKind determines the layout from matched header tags: a Date column
// wins, then any date-valued header, otherwise the file is cross-sectional.
func DetectKind(tags []ColumnTag) FileKind {
	period := false
	for _, tag := range tags {
		switch tag.Kind {
		case TagDate:
			return KindMultidimensionalTimeseries
		case TagPeriod:
			period = true
		}
	}
	if period {
		return KindSingleDimensionTimeseries
	}
	return KindCrossSectional
}

// layout holds the kind-specific parts of decomposition.
type layout interface {
	kind() FileKind
	// keep reports whether a column contributes values.
	keep(tag ColumnTag) bool
	// rowDated reports whether each row carries its own date, in which case
	// rows are sorted and aggregated by (basis, date).
	rowDated() bool
	// locate returns the variable and date a cell belongs to.
	locate(row Row, col ColumnTag) (string, time.Time)
}

type multidimensionalLayout struct{}

func (multidimensionalLayout) kind() FileKind { return KindMultidimensionalTimeseries }

func (multidimensionalLayout) keep(tag ColumnTag) bool { return tag.Kind == TagVariable }

func (multidimensionalLayout) rowDated() bool { return true }

func (multidimensionalLayout) locate(row Row, col ColumnTag) (string, time.Time) {
	return col.Variable, row.Date
}

type singleDimensionLayout struct {
	variable string
}

func (singleDimensionLayout) kind() FileKind { return KindSingleDimensionTimeseries }

func (singleDimensionLayout) keep(tag ColumnTag) bool { return tag.Kind == TagPeriod }

func (singleDimensionLayout) rowDated() bool { return false }

func (l singleDimensionLayout) locate(_ Row, col ColumnTag) (string, time.Time) {
	return l.variable, col.Period
}

type crossSectionalLayout struct {
	date time.Time
}

func (crossSectionalLayout) kind() FileKind { return KindCrossSectional }

func (crossSectionalLayout) keep(tag ColumnTag) bool { return tag.Kind == TagVariable }

func (crossSectionalLayout) rowDated() bool { return false }

func (l crossSectionalLayout) locate(_ Row, col ColumnTag) (string, time.Time) {
	return col.Variable, l.date
}
