// Package config loads and validates the forecast configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/Veraticus/foundry-forecast/internal/common"
	"github.com/Veraticus/foundry-forecast/internal/model"
)

// Config is the typed view of the viper configuration.
type Config struct {
	Database    DatabaseConfig    `mapstructure:"database"`
	Reference   ReferenceConfig   `mapstructure:"reference"`
	Import      ImportConfig      `mapstructure:"import"`
	Forecast    ForecastConfig    `mapstructure:"forecast"`
	Systematize SystematizeConfig `mapstructure:"systematize"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

// DatabaseConfig locates the SQLite database.
type DatabaseConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// ReferenceConfig locates the alias and product reference file.
type ReferenceConfig struct {
	Path string `mapstructure:"path"`
}

// ImportConfig controls ingestion runs.
type ImportConfig struct {
	ArchiveDir   string `mapstructure:"archive_dir" validate:"required"`
	DateTemplate string `mapstructure:"date_template"` // leading $ optional
	Shift        bool   `mapstructure:"shift"`
	Overwrite    bool   `mapstructure:"overwrite"`
}

// ForecastConfig controls forecast passes.
type ForecastConfig struct {
	TargetVariable string   `mapstructure:"target_variable" validate:"required"`
	Models         []string `mapstructure:"models" validate:"required,min=1,dive,oneof=naive ema mlr"`
	EMAAlpha       float64  `mapstructure:"ema_alpha" validate:"gte=0,lte=1"`
	MLRAlpha       float64  `mapstructure:"mlr_alpha" validate:"gte=0,lte=1"`
}

// SystematizeConfig maps variables to the reduction used when rebuilding
// their monthly tables. Variables not listed use Fallback.
type SystematizeConfig struct {
	Reductions map[string]string `mapstructure:"reductions" validate:"dive,keys,required,endkeys,oneof=sum average first"`
	Fallback   string            `mapstructure:"fallback" validate:"oneof=sum average first"`
}

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=console json"`
}

// singularVariables are stock levels; summing them over a month is
// meaningless so their monthly value is the first observation.
var singularVariables = []string{
	"aim_store_count",
	"balance_on_hand",
	"balance_on_order",
	"instock_store_count",
	"need_for_target_inventory_level",
	"store_balance_on_hand",
	"target_inventory_level",
}

// SetDefaults registers the default value of every key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database.path", "~/.local/share/forecast/forecast.db")
	v.SetDefault("reference.path", "~/.config/forecast/reference.yaml")
	v.SetDefault("import.archive_dir", "~/.local/share/forecast/imported")
	v.SetDefault("import.date_template", "")
	v.SetDefault("import.shift", false)
	v.SetDefault("import.overwrite", false)
	v.SetDefault("forecast.target_variable", "finished_goods")
	v.SetDefault("forecast.models", []string{"naive", "ema", "mlr"})
	v.SetDefault("forecast.ema_alpha", 0.7)
	v.SetDefault("forecast.mlr_alpha", 0.7)

	reductions := make(map[string]string, len(singularVariables))
	for _, name := range singularVariables {
		reductions[name] = string(model.ReductionFirst)
	}
	v.SetDefault("systematize.reductions", reductions)
	v.SetDefault("systematize.fallback", string(model.ReductionSum))
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

// Load decodes and validates the configuration held by v. Paths are
// expanded before they are returned.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		var invalid validator.ValidationErrors
		if errors.As(err, &invalid) {
			fields := make([]string, 0, len(invalid))
			for _, fe := range invalid {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
			}
			return nil, fmt.Errorf("%w: %s", common.ErrInvalidConfig, strings.Join(fields, ", "))
		}
		return nil, fmt.Errorf("%w: %w", common.ErrInvalidConfig, err)
	}

	cfg.Database.Path = ExpandPath(cfg.Database.Path)
	cfg.Reference.Path = ExpandPath(cfg.Reference.Path)
	cfg.Import.ArchiveDir = ExpandPath(cfg.Import.ArchiveDir)
	return &cfg, nil
}

// ForecastModels returns the configured models in configuration order.
func (c *Config) ForecastModels() []model.ForecastModel {
	models := make([]model.ForecastModel, 0, len(c.Forecast.Models))
	for _, name := range c.Forecast.Models {
		models = append(models, model.ForecastModel(name))
	}
	return models
}

// Reductions returns the per-variable reductions and the fallback.
func (c *Config) Reductions() (map[string]model.Reduction, model.Reduction) {
	reductions := make(map[string]model.Reduction, len(c.Systematize.Reductions))
	for name, r := range c.Systematize.Reductions {
		reductions[name] = model.Reduction(r)
	}
	return reductions, model.Reduction(c.Systematize.Fallback)
}

// ExpandPath resolves a leading ~ to the home directory, then substitutes
// $VAR references from the environment.
func ExpandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return os.ExpandEnv(path)
}
