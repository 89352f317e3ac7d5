// Package testutil provides shared fixtures for tests that need a real
// database.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/Veraticus/foundry-forecast/internal/model"
	"github.com/Veraticus/foundry-forecast/internal/storage"
)

// TestDB is a migrated in-memory database.
type TestDB struct {
	Storage *storage.SQLiteStorage
	t       *testing.T
}

// SetupTestDB creates a new in-memory test database. It automatically
// handles migrations and cleanup.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := store.Migrate(context.Background()); err != nil {
		_ = store.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	return &TestDB{
		Storage: store,
		t:       t,
	}
}

// Month returns the first day of a month in UTC.
func Month(year int, month time.Month) time.Time {
	return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
}

// MonthlyObservations builds one observation per month starting at start.
func MonthlyObservations(variable, product string, start time.Time, values ...float64) []model.Observation {
	obs := make([]model.Observation, len(values))
	for i, v := range values {
		obs[i] = model.Observation{
			Date:     start.AddDate(0, i, 0),
			Variable: variable,
			Product:  product,
			Value:    v,
		}
	}
	return obs
}

// MustSave stores observations or fails the test.
func (db *TestDB) MustSave(obs ...model.Observation) {
	db.t.Helper()
	if _, err := db.Storage.SaveObservations(context.Background(), obs, true); err != nil {
		db.t.Fatalf("failed to save observations: %v", err)
	}
}

// MustSystematize rebuilds every monthly table by summing or fails the test.
func (db *TestDB) MustSystematize() {
	db.t.Helper()
	if _, err := db.Storage.Systematize(context.Background(), nil, model.ReductionSum); err != nil {
		db.t.Fatalf("failed to systematize: %v", err)
	}
}
