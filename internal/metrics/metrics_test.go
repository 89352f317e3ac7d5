package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RegistersEverything(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.FilesImported.WithLabelValues("cross-sectional", OutcomeOK).Inc()
	m.ObservationsSaved.Add(3)
	m.ForecastProducts.WithLabelValues("ema", OutcomeFailed).Inc()
	m.PassDuration.WithLabelValues("ema").Observe(0.5)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.FilesImported.WithLabelValues("cross-sectional", OutcomeOK)))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.ObservationsSaved))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "forecast_observations_saved_total")
	assert.Contains(t, names, "forecast_pass_duration_seconds")
}

func TestNew_NilRegistry(t *testing.T) {
	assert.NotPanics(t, func() {
		a := New(nil)
		b := New(nil)
		a.RowsRejected.Inc()
		b.RowsRejected.Inc()
	})
}
