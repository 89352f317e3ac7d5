package forecast

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSmooth_SkipsLeadingNaN(t *testing.T) {
	nan := math.NaN()
	out := Smooth([]float64{nan, nan, 10, 20}, 0.5)
	require.Len(t, out, 4)
	assert.True(t, math.IsNaN(out[0]))
	assert.True(t, math.IsNaN(out[1]))
	assert.Equal(t, 10.0, out[2])
	assert.Equal(t, 15.0, out[3])
}

func TestSmooth_InteriorNaNPassesThrough(t *testing.T) {
	nan := math.NaN()
	out := Smooth([]float64{4, nan, 8}, 0.5)
	assert.Equal(t, 4.0, out[0])
	assert.True(t, math.IsNaN(out[1]))
	assert.Equal(t, 6.0, out[2])
}

func TestEMA(t *testing.T) {
	nan := math.NaN()

	tests := []struct {
		name   string
		series []float64
		alpha  float64
		want   float64
	}{
		{name: "leading nulls", series: []float64{nan, nan, 10, 20}, alpha: 0.5, want: 15},
		{name: "single value", series: []float64{7}, alpha: 0.7, want: 7},
		{name: "interior null", series: []float64{10, nan, 20}, alpha: 0.7, want: 17},
		{name: "auto alpha", series: []float64{0, 3}, alpha: 0, want: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, EMA(tt.series, tt.alpha), 1e-12)
		})
	}
}

func TestEMA_NoValues(t *testing.T) {
	assert.True(t, math.IsNaN(EMA(nil, 0.7)))
	assert.True(t, math.IsNaN(EMA([]float64{math.NaN(), math.NaN()}, 0.7)))
}

func TestEMA_MatchesSmooth(t *testing.T) {
	series := []float64{3, 1, 4, 1, 5, 9, 2, 6}
	smoothed := Smooth(series, 0.3)
	assert.InDelta(t, smoothed[len(smoothed)-1], EMA(series, 0.3), 1e-12)
}

func TestEMAColumns_ColumnsAreIndependent(t *testing.T) {
	nan := math.NaN()
	rows := [][]float64{
		{nan, 1},
		{10, 2},
		{20, nan},
	}

	out := EMAColumns(rows, 0.5)
	require.Len(t, out, 2)
	assert.Equal(t, 15.0, out[0])
	assert.Equal(t, 1.5, out[1])

	assert.Nil(t, EMAColumns(nil, 0.5))
}
