package ingest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/foundry-forecast/internal/common"
	"github.com/Veraticus/foundry-forecast/internal/datetemplate"
	"github.com/Veraticus/foundry-forecast/internal/model"
)

func newTestDecomposer(recorder HeaderRecorder, issuer ProvisionalIssuer) *Decomposer {
	products := productMap{"ABC123": "WIDGET-1", "ABC124": "WIDGET-1", "XYZ": "GADGET-2"}
	return NewDecomposer(testAliases(), recorder, NewBasisResolver(products, issuer))
}

func TestDecompose_Multidimensional(t *testing.T) {
	records := [][]string{
		{"Date", "SKU", "UnitsSold", "Notes"},
		{"2024-01-01", "ABC123", "100", "first"},
		{"2024-02-01", "ABC123", "150", ""},
	}

	d := newTestDecomposer(nil, NewCounter(0))
	out, err := d.Decompose(context.Background(), records, Request{Template: datetemplate.New("yyyy-mm-dd")})
	require.NoError(t, err)

	assert.Equal(t, KindMultidimensionalTimeseries, out.Kind)
	assert.Empty(t, out.Provisional)
	assert.Equal(t, []model.Observation{
		{Date: day(2024, 1, 1), Variable: "Units Sold", Product: "WIDGET-1", Value: 100},
		{Date: day(2024, 2, 1), Variable: "Units Sold", Product: "WIDGET-1", Value: 150},
	}, out.Observations())

	assert.Equal(t, [][]string{
		{"Basis", "Date", "Units Sold"},
		{"WIDGET-1", "2024-01-01", "100"},
		{"WIDGET-1", "2024-02-01", "150"},
	}, out.Table())
}

func TestDecompose_SumsSKUsOfOneProduct(t *testing.T) {
	records := [][]string{
		{"Week Ending", "SKU", "Units Sold", "On Hand"},
		{"2024-01-01", "ABC124", "5", "7"},
		{"2024-01-01", "ABC123", "10", "20"},
		{"2024-01-01", "XYZ", "1", "1"},
	}

	d := newTestDecomposer(nil, NewCounter(0))
	out, err := d.Decompose(context.Background(), records, Request{Template: datetemplate.New("yyyy-mm-dd")})
	require.NoError(t, err)

	require.Len(t, out.Rows, 2)
	assert.Equal(t, "GADGET-2", out.Rows[0].Basis)
	assert.Equal(t, "WIDGET-1", out.Rows[1].Basis)
	assert.Equal(t, []float64{15, 27}, out.Rows[1].Values)
}

func TestDecompose_SingleDimension(t *testing.T) {
	records := [][]string{
		{"Product", "201501", "201502", "Store #"},
		{"ABC123", "1,000", "2", "17"},
		{"UNKNOWN", "3", "x", "18"},
	}

	recorder := &headerLog{}
	counter := NewCounter(9)
	d := newTestDecomposer(recorder, counter)

	_, err := d.Decompose(context.Background(), records, Request{Template: datetemplate.New("yyyyww")})
	require.ErrorIs(t, err, common.ErrVariableRequired)

	out, err := d.Decompose(context.Background(), records, Request{
		Template: datetemplate.New("yyyyww"),
		Variable: "Units Sold",
	})
	require.NoError(t, err)

	assert.Equal(t, KindSingleDimensionTimeseries, out.Kind)
	require.Len(t, out.Columns, 2)
	assert.Equal(t, map[string]string{"UNKNOWN": "TEMP-10"}, out.Provisional)
	assert.Equal(t, 1, out.CellErrors)

	obs := out.Observations()
	require.Len(t, obs, 4)
	assert.Equal(t, model.Observation{Date: day(2014, 12, 29), Variable: "Units Sold", Product: "TEMP-10", Value: 3}, obs[0])
	assert.Equal(t, model.Observation{Date: day(2015, 1, 5), Variable: "Units Sold", Product: "TEMP-10", Value: 0}, obs[1])
	assert.Equal(t, model.Observation{Date: day(2014, 12, 29), Variable: "Units Sold", Product: "WIDGET-1", Value: 1000}, obs[2])
	assert.Empty(t, recorder.headers)
}

func TestDecompose_CrossSectional(t *testing.T) {
	records := [][]string{
		{"SKU", "On Hand", "On Order", "Region"},
		{"ABC123", "4", "6", "west"},
		{"XYZ", "1", "", "east"},
	}

	recorder := &headerLog{}
	d := newTestDecomposer(recorder, NewCounter(0))

	_, err := d.Decompose(context.Background(), records, Request{})
	require.ErrorIs(t, err, common.ErrDateRequired)

	out, err := d.Decompose(context.Background(), records, Request{Date: day(2024, 5, 1)})
	require.NoError(t, err)
	assert.Equal(t, KindCrossSectional, out.Kind)
	assert.Equal(t, []string{"Region"}, out.Unmatched)
	assert.Contains(t, recorder.headers, "Region")

	for _, o := range out.Observations() {
		assert.Equal(t, day(2024, 5, 1), o.Date)
	}
	assert.Equal(t, [][]string{
		{"Basis", "Balance On Hand", "Balance On Order"},
		{"GADGET-2", "1", "0"},
		{"WIDGET-1", "4", "6"},
	}, out.Table())
}

func TestDecompose_RejectsBadRows(t *testing.T) {
	records := [][]string{
		{"Date", "SKU", "Units Sold"},
		{"2024-01-01", "", "1"},
		{"not a date", "XYZ", "2"},
		{"2024-01-01", "XYZ", "3"},
	}

	d := newTestDecomposer(nil, NewCounter(0))
	out, err := d.Decompose(context.Background(), records, Request{Template: datetemplate.New("yyyy-mm-dd")})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Rejected)
	require.Len(t, out.Rows, 1)
	assert.Equal(t, []float64{3}, out.Rows[0].Values)
}

func TestDecompose_DateColumnWithoutTemplate(t *testing.T) {
	records := [][]string{
		{"Date", "SKU", "Units Sold"},
		{"2024-01-01", "ABC123", "100"},
	}

	d := newTestDecomposer(nil, NewCounter(0))
	out, err := d.Decompose(context.Background(), records, Request{})
	require.ErrorIs(t, err, common.ErrDateRequired)
	assert.Nil(t, out)
}

func TestDecompose_StructuralFailures(t *testing.T) {
	tmpl := datetemplate.New("yyyy-mm-dd")
	d := newTestDecomposer(nil, NewCounter(0))
	ctx := context.Background()

	tests := []struct {
		name    string
		records [][]string
		want    error
	}{
		{
			name:    "header only",
			records: [][]string{{"Date", "SKU", "Units Sold"}},
			want:    common.ErrNoData,
		},
		{
			name:    "no basis column",
			records: [][]string{{"Date", "Units Sold"}, {"2024-01-01", "1"}},
			want:    common.ErrNoBasisColumn,
		},
		{
			name:    "nothing to load",
			records: [][]string{{"Date", "SKU", "Notes"}, {"2024-01-01", "XYZ", "hi"}},
			want:    common.ErrNoData,
		},
		{
			name:    "every row rejected",
			records: [][]string{{"Date", "SKU", "Units Sold"}, {"bad", "XYZ", "1"}},
			want:    common.ErrNoData,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.Decompose(ctx, tt.records, Request{Template: tmpl})
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
