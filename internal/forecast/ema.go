package forecast

import "math"

// autoAlpha is the smoothing weight used when none is configured.
func autoAlpha(n int) float64 {
	return 2 / (float64(n) + 1)
}

// Smooth returns the exponential moving average at every position of
// series. The average starts at the first non-NaN value; each later
// non-NaN value x moves it to (1-alpha)*avg + alpha*x. NaN inputs leave
// the average unchanged and stay NaN in the output, as does everything
// before the first value. alpha <= 0 selects 2/(n+1).
func Smooth(series []float64, alpha float64) []float64 {
	if alpha <= 0 {
		alpha = autoAlpha(len(series))
	}

	out := make([]float64, len(series))
	avg := math.NaN()
	for i, x := range series {
		if math.IsNaN(x) {
			out[i] = math.NaN()
			continue
		}
		if math.IsNaN(avg) {
			avg = x
		} else {
			avg = (1-alpha)*avg + alpha*x
		}
		out[i] = avg
	}
	return out
}

// EMA returns the final exponential moving average of series, or NaN when
// the series holds no values.
func EMA(series []float64, alpha float64) float64 {
	if alpha <= 0 {
		alpha = autoAlpha(len(series))
	}

	avg := math.NaN()
	for _, x := range series {
		switch {
		case math.IsNaN(x):
		case math.IsNaN(avg):
			avg = x
		default:
			avg = (1-alpha)*avg + alpha*x
		}
	}
	return avg
}

// EMAColumns applies EMA to each column of rows independently. All rows
// must have the same width.
func EMAColumns(rows [][]float64, alpha float64) []float64 {
	if len(rows) == 0 {
		return nil
	}

	out := make([]float64, len(rows[0]))
	col := make([]float64, len(rows))
	for j := range out {
		for i, row := range rows {
			col[i] = row[j]
		}
		out[j] = EMA(col, alpha)
	}
	return out
}
