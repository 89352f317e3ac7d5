package main

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/foundry-forecast/internal/common"
	"github.com/Veraticus/foundry-forecast/internal/config"
	"github.com/Veraticus/foundry-forecast/internal/importer"
	"github.com/Veraticus/foundry-forecast/internal/ingest"
	"github.com/Veraticus/foundry-forecast/internal/model"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	v := viper.New()
	config.SetDefaults(v)
	cfg, err := config.Load(v)
	require.NoError(t, err)
	return cfg
}

func TestParseModels(t *testing.T) {
	cfg := testConfig(t)

	models, err := parseModels(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, model.AllModels, models)

	models, err = parseModels(cfg, []string{"mlr", "naive"})
	require.NoError(t, err)
	assert.Equal(t, []model.ForecastModel{model.ModelMLR, model.ModelNaive}, models)

	_, err = parseModels(cfg, []string{"arima"})
	assert.ErrorIs(t, err, common.ErrInvalidConfig)
}

func TestLoadReference_Missing(t *testing.T) {
	cfg := testConfig(t)
	cfg.Reference.Path = t.TempDir() + "/missing.yaml"

	_, err := loadReference(cfg)
	require.ErrorIs(t, err, common.ErrMissingConfig)
}

func TestImportSummary(t *testing.T) {
	out := importSummary("sales.csv", &importer.Result{
		ImportID:     7,
		Kind:         ingest.KindCrossSectional,
		Provisional:  map[string]string{"NEW-9": "TEMP-3"},
		Unmatched:    []string{"Region"},
		Observations: 4,
		Saved:        4,
	})

	assert.Contains(t, out, "sales.csv")
	assert.Contains(t, out, "cross-sectional")
	assert.Contains(t, out, "TEMP-3")
	assert.Contains(t, out, "Region")
}

func TestRootCommands(t *testing.T) {
	want := []string{
		"errors", "forecasts", "import", "link", "migrate", "missing",
		"resolve", "run", "systematize", "unlink", "unmatched", "version",
	}
	var got []string
	for _, c := range rootCmd.Commands() {
		got = append(got, c.Name())
	}
	for _, name := range want {
		assert.Contains(t, got, name)
	}
}
