package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Veraticus/foundry-forecast/internal/model"
)

// UpdateForecast upserts one forecast row per point, keyed by (date,
// product), writing only the column of model m. Other models' columns of
// an existing row are left as they are. NaN values are stored as NULL.
func (s *SQLiteStorage) UpdateForecast(ctx context.Context, product string, m model.ForecastModel, points []model.Point) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(product, "product"); err != nil {
		return err
	}
	if err := validateModel(m); err != nil {
		return err
	}

	// The column comes from the validated model, never from input text.
	query := fmt.Sprintf(`
		INSERT INTO forecast (date, product, %[1]s)
		VALUES (?, ?, ?)
		ON CONFLICT(date, product) DO UPDATE SET %[1]s = excluded.%[1]s
	`, m.Column())

	return s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return fmt.Errorf("failed to prepare forecast upsert: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for _, p := range points {
			if _, err := stmt.ExecContext(ctx, p.Date.Format(model.DateLayout), product, nullable(p.Value)); err != nil {
				return fmt.Errorf("failed to save %s forecast: %w", m, err)
			}
		}
		return nil
	})
}

// UpdateError recomputes the residual column of model m as actual minus
// forecast, reading actuals from the monthly table of actualVariable.
// Forecast rows without a forecast value or without a matching actual are
// left untouched. It returns the number of rows updated.
func (s *SQLiteStorage) UpdateError(ctx context.Context, m model.ForecastModel, actualVariable string) (int64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := validateModel(m); err != nil {
		return 0, err
	}
	v, err := s.lookupVariable(ctx, actualVariable)
	if err != nil {
		return 0, err
	}

	query := fmt.Sprintf(`
		UPDATE forecast
		SET %[2]s = (
			SELECT a.value - forecast.%[1]s FROM %[3]s a
			WHERE a.date = forecast.date AND a.product = forecast.product
		)
		WHERE %[1]s IS NOT NULL
		AND EXISTS (
			SELECT 1 FROM %[3]s a
			WHERE a.date = forecast.date AND a.product = forecast.product
		)
	`, m.Column(), m.ErrorColumn(), v.MonthlyTable)

	var updated int64
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, query)
		if err != nil {
			return fmt.Errorf("failed to update %s errors: %w", m, err)
		}
		updated, err = res.RowsAffected()
		return err
	})
	return updated, err
}

// Forecasts returns the forecast rows of a product in date order, or of
// every product when product is empty.
func (s *SQLiteStorage) Forecasts(ctx context.Context, product string) ([]model.ForecastRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `
		SELECT date, product, naive, ema, mlr, naive_error, ema_error, mlr_error
		FROM forecast
	`
	var args []any
	if product != "" {
		query += ` WHERE product = ?`
		args = append(args, product)
	}
	query += ` ORDER BY product, date`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query forecasts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []model.ForecastRecord
	for rows.Next() {
		var date string
		var values, errs [3]sql.NullFloat64
		rec := model.ForecastRecord{
			Values: make(map[model.ForecastModel]*float64, 3),
			Errors: make(map[model.ForecastModel]*float64, 3),
		}
		if err := rows.Scan(&date, &rec.Product,
			&values[0], &values[1], &values[2],
			&errs[0], &errs[1], &errs[2]); err != nil {
			return nil, fmt.Errorf("failed to scan forecast: %w", err)
		}
		if rec.Date, err = parseDate(date); err != nil {
			return nil, err
		}
		for i, m := range model.AllModels {
			rec.Values[m] = floatPtr(values[i])
			rec.Errors[m] = floatPtr(errs[i])
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
