package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// LinkHistory gives product next the history of product prev: for every
// variable next has raw data in, prev's observations dated before next's
// first observation are copied to next. It returns the rows copied.
func (s *SQLiteStorage) LinkHistory(ctx context.Context, prev, next string) (int64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := validateString(prev, "prev"); err != nil {
		return 0, err
	}
	if err := validateString(next, "next"); err != nil {
		return 0, err
	}
	if prev == next {
		return 0, fmt.Errorf("cannot link %q to itself", prev)
	}

	vars, err := s.Variables(ctx)
	if err != nil {
		return 0, err
	}

	var copied int64
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		copied = 0
		for _, v := range vars {
			res, err := tx.ExecContext(ctx, fmt.Sprintf(`
				INSERT OR IGNORE INTO %[1]s (date, product, value)
				SELECT date, ?, value FROM %[1]s
				WHERE product = ?
				AND date < (SELECT MIN(date) FROM %[1]s WHERE product = ?)
			`, v.Table), next, prev, next)
			if err != nil {
				return fmt.Errorf("failed to link %s: %w", v.Table, err)
			}
			n, _ := res.RowsAffected()
			copied += n
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return copied, nil
}

// UnlinkHistory reverses LinkHistory: rows of next that match a row of
// prev by date and value are deleted. It returns the rows deleted.
func (s *SQLiteStorage) UnlinkHistory(ctx context.Context, prev, next string) (int64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := validateString(prev, "prev"); err != nil {
		return 0, err
	}
	if err := validateString(next, "next"); err != nil {
		return 0, err
	}
	if prev == next {
		return 0, fmt.Errorf("cannot unlink %q from itself", prev)
	}

	vars, err := s.Variables(ctx)
	if err != nil {
		return 0, err
	}

	var deleted int64
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		deleted = 0
		for _, v := range vars {
			res, err := tx.ExecContext(ctx, fmt.Sprintf(`
				DELETE FROM %[1]s
				WHERE product = ?
				AND EXISTS (
					SELECT 1 FROM %[1]s o
					WHERE o.product = ? AND o.date = %[1]s.date AND o.value = %[1]s.value
				)
			`, v.Table), next, prev)
			if err != nil {
				return fmt.Errorf("failed to unlink %s: %w", v.Table, err)
			}
			n, _ := res.RowsAffected()
			deleted += n
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}
