package model

// Reduction selects how a raw series is rediscretized to monthly resolution.
type Reduction string

const (
	// ReductionSum adds every observation in the month.
	ReductionSum Reduction = "sum"
	// ReductionAverage averages the observations in the month.
	ReductionAverage Reduction = "average"
	// ReductionFirst keeps the earliest observation in the month. Used for
	// stock-level variables where summing is meaningless.
	ReductionFirst Reduction = "first"
)

// Valid reports whether r is a known reduction.
func (r Reduction) Valid() bool {
	switch r {
	case ReductionSum, ReductionAverage, ReductionFirst:
		return true
	}
	return false
}

// Variable is a registered variable and the tables holding its data.
type Variable struct {
	Name         string
	Table        string
	MonthlyTable string
}

// SystematizeResult reports the systematization of one variable.
type SystematizeResult struct {
	Variable  Variable
	Reduction Reduction
	Trimmed   int64
	Monthly   int64
}
