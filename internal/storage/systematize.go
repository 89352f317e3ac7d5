package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Veraticus/foundry-forecast/internal/common"
	"github.com/Veraticus/foundry-forecast/internal/model"
)

// TrimLeadingZeros deletes, per product, the run of zero values preceding
// the product's first non-zero value. A product with only zeros loses all
// of its rows. It returns the number of rows deleted.
func (s *SQLiteStorage) TrimLeadingZeros(ctx context.Context, variable string) (int64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	v, err := s.lookupVariable(ctx, variable)
	if err != nil {
		return 0, err
	}

	var deleted int64
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		deleted, err = trimLeadingZeros(ctx, tx, v.Table)
		return err
	})
	return deleted, err
}

func trimLeadingZeros(ctx context.Context, q queryable, table string) (int64, error) {
	res, err := q.ExecContext(ctx, fmt.Sprintf(`
		DELETE FROM %[1]s
		WHERE rowid IN (
			SELECT a.rowid FROM %[1]s a
			WHERE a.value = 0
			AND NOT EXISTS (
				SELECT 1 FROM %[1]s b
				WHERE b.product = a.product AND b.date <= a.date AND b.value <> 0
			)
		)
	`, table))
	if err != nil {
		return 0, fmt.Errorf("failed to trim %s: %w", table, err)
	}
	return res.RowsAffected()
}

// Rediscretize rebuilds a variable's monthly table from its raw table,
// reducing each product's observations within a calendar month to one
// value dated the first of the month. The monthly table is replaced
// wholesale. It returns the number of monthly rows written.
func (s *SQLiteStorage) Rediscretize(ctx context.Context, variable string, reduction model.Reduction) (int64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	v, err := s.lookupVariable(ctx, variable)
	if err != nil {
		return 0, err
	}

	var written int64
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		written, err = rediscretize(ctx, tx, v, reduction)
		return err
	})
	return written, err
}

const monthExpr = `substr(date, 1, 7) || '-01'`

func rediscretize(ctx context.Context, q queryable, v model.Variable, reduction model.Reduction) (int64, error) {
	var query string
	switch reduction {
	case model.ReductionSum, model.ReductionAverage:
		agg := "SUM"
		if reduction == model.ReductionAverage {
			agg = "AVG"
		}
		query = fmt.Sprintf(`
			INSERT INTO %s (date, product, value)
			SELECT %s AS month, product, %s(value)
			FROM %s
			GROUP BY product, month
		`, v.MonthlyTable, monthExpr, agg, v.Table)
	case model.ReductionFirst:
		query = fmt.Sprintf(`
			INSERT INTO %s (date, product, value)
			SELECT month, product, value FROM (
				SELECT %s AS month, product, value,
					ROW_NUMBER() OVER (PARTITION BY product, %s ORDER BY date) AS rn
				FROM %s
			)
			WHERE rn = 1
		`, v.MonthlyTable, monthExpr, monthExpr, v.Table)
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidReduction, reduction)
	}

	if _, err := q.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s`, v.MonthlyTable)); err != nil {
		return 0, fmt.Errorf("failed to clear %s: %w", v.MonthlyTable, err)
	}
	res, err := q.ExecContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to rebuild %s: %w", v.MonthlyTable, err)
	}
	return res.RowsAffected()
}

// Systematize trims leading zeros from every registered variable and
// rebuilds its monthly table. reductions is keyed by table name; variables
// without an entry use fallback.
func (s *SQLiteStorage) Systematize(ctx context.Context, reductions map[string]model.Reduction, fallback model.Reduction) ([]model.SystematizeResult, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if !fallback.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidReduction, fallback)
	}

	vars, err := s.Variables(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]model.SystematizeResult, 0, len(vars))
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		results = results[:0]
		for _, v := range vars {
			reduction, ok := reductions[v.Table]
			if !ok {
				reduction = fallback
			}
			trimmed, err := trimLeadingZeros(ctx, tx, v.Table)
			if err != nil {
				return err
			}
			monthly, err := rediscretize(ctx, tx, v, reduction)
			if err != nil {
				return fmt.Errorf("variable %q: %w", v.Name, err)
			}
			results = append(results, model.SystematizeResult{
				Variable:  v,
				Reduction: reduction,
				Trimmed:   trimmed,
				Monthly:   monthly,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, r := range results {
		common.LogDebug("Systematized variable", common.Fields{
			"variable":  r.Variable.Table,
			"reduction": string(r.Reduction),
			"trimmed":   r.Trimmed,
			"monthly":   r.Monthly,
		})
	}
	return results, nil
}
