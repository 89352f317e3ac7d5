package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/spf13/viper"

	"github.com/Veraticus/foundry-forecast/internal/common"
	"github.com/Veraticus/foundry-forecast/internal/config"
	"github.com/Veraticus/foundry-forecast/internal/model"
	"github.com/Veraticus/foundry-forecast/internal/reference"
	"github.com/Veraticus/foundry-forecast/internal/service"
	"github.com/Veraticus/foundry-forecast/internal/storage"
)

// loadConfig returns the validated configuration.
func loadConfig() (*config.Config, error) {
	return config.Load(viper.GetViper())
}

// initStorage opens the configured database and brings its schema up to date.
func initStorage(ctx context.Context, cfg *config.Config) (service.Storage, error) {
	store, err := storage.NewSQLiteStorage(cfg.Database.Path)
	if err != nil {
		return nil, err
	}

	// Run migrations
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// loadReference reads the configured reference file.
func loadReference(cfg *config.Config) (*reference.Reference, error) {
	if cfg.Reference.Path == "" {
		return nil, common.NewUserError("no reference file configured (set reference.path)", common.ErrMissingConfig)
	}
	ref, err := reference.Load(cfg.Reference.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, common.NewUserError(
			fmt.Sprintf("reference file %s does not exist", cfg.Reference.Path), common.ErrMissingConfig)
	}
	return ref, err
}

// parseModels validates model names given on the command line. None means
// the configured models.
func parseModels(cfg *config.Config, names []string) ([]model.ForecastModel, error) {
	if len(names) == 0 {
		return cfg.ForecastModels(), nil
	}
	models := make([]model.ForecastModel, 0, len(names))
	for _, name := range names {
		m := model.ForecastModel(name)
		if !m.Valid() {
			return nil, fmt.Errorf("%w: unknown model %q", common.ErrInvalidConfig, name)
		}
		models = append(models, m)
	}
	return models, nil
}
