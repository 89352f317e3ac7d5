package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Veraticus/foundry-forecast/internal/common"
	"github.com/Veraticus/foundry-forecast/internal/ingest"
	"github.com/Veraticus/foundry-forecast/internal/model"
)

// importTimeLayout is how date_of_import is stored.
const importTimeLayout = time.RFC3339

// AddImport appends a provenance record for an ingested file and returns
// its id.
func (s *SQLiteStorage) AddImport(ctx context.Context, location string, importedAt time.Time, dateFormat string) (int64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := validateString(location, "location"); err != nil {
		return 0, err
	}

	var id int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO import (location, date_of_import, date_format)
			VALUES (?, ?, ?)
		`, location, importedAt.UTC().Format(importTimeLayout), dateFormat)
		if err != nil {
			return fmt.Errorf("failed to record import: %w", err)
		}
		id, err = res.LastInsertId()
		return err
	})
	return id, err
}

// Imports lists the import log, newest first.
func (s *SQLiteStorage) Imports(ctx context.Context) ([]model.ImportRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, location, date_of_import, COALESCE(date_format, '')
		FROM import
		ORDER BY id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query imports: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []model.ImportRecord
	for rows.Next() {
		var r model.ImportRecord
		var at string
		if err := rows.Scan(&r.ID, &r.Location, &at, &r.DateFormat); err != nil {
			return nil, fmt.Errorf("failed to scan import: %w", err)
		}
		if r.ImportedAt, err = time.Parse(importTimeLayout, at); err != nil {
			return nil, fmt.Errorf("invalid import time %q: %w", at, err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// IssueProvisionalKey queues raw in the missing basis table, once, and
// returns its provisional key. Keys follow the table's id sequence, so a
// key is never issued twice.
func (s *SQLiteStorage) IssueProvisionalKey(ctx context.Context, raw string) (string, error) {
	if err := validateContext(ctx); err != nil {
		return "", err
	}
	if err := validateString(raw, "basis"); err != nil {
		return "", err
	}

	var id int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO missing_basis (basis) VALUES (?)
		`, raw); err != nil {
			return fmt.Errorf("failed to queue missing basis: %w", err)
		}
		return tx.QueryRowContext(ctx, `
			SELECT id FROM missing_basis WHERE basis = ?
		`, raw).Scan(&id)
	})
	if err != nil {
		return "", err
	}
	return ingest.ProvisionalKey(id), nil
}

// MissingBases lists the missing basis queue in issue order. Resolved
// entries are included only when asked for.
func (s *SQLiteStorage) MissingBases(ctx context.Context, includeResolved bool) ([]model.MissingBasis, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `
		SELECT id, basis, COALESCE(resolved_to, ''), created_at
		FROM missing_basis
	`
	if !includeResolved {
		query += ` WHERE resolved_to IS NULL`
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query missing bases: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []model.MissingBasis
	for rows.Next() {
		var e model.MissingBasis
		if err := rows.Scan(&e.ID, &e.Basis, &e.ResolvedTo, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan missing basis: %w", err)
		}
		e.Provisional = ingest.ProvisionalKey(e.ID)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ResolvedBases maps raw identifiers that were linked by hand to their
// products.
func (s *SQLiteStorage) ResolvedBases(ctx context.Context) (map[string]string, error) {
	entries, err := s.MissingBases(ctx, true)
	if err != nil {
		return nil, err
	}
	resolved := make(map[string]string)
	for _, e := range entries {
		if e.ResolvedTo != "" {
			resolved[e.Basis] = e.ResolvedTo
		}
	}
	return resolved, nil
}

func provisionalID(key string) (int64, error) {
	if !strings.HasPrefix(key, ingest.ProvisionalPrefix) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidProvisional, key)
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(key, ingest.ProvisionalPrefix), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidProvisional, key)
	}
	return id, nil
}

// ResolveMissingBasis links a provisional key to a real product. Every
// variable row held under the provisional key moves to the product, summed
// into any value the product already has for the date, and the queue entry
// is marked resolved. Forecasts made for the provisional key are dropped.
// It returns the number of rows moved.
func (s *SQLiteStorage) ResolveMissingBasis(ctx context.Context, provisional, product string) (int64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := validateString(product, "product"); err != nil {
		return 0, err
	}
	id, err := provisionalID(provisional)
	if err != nil {
		return 0, err
	}

	vars, err := s.Variables(ctx)
	if err != nil {
		return 0, err
	}

	var moved int64
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		moved = 0
		res, err := tx.ExecContext(ctx, `
			UPDATE missing_basis SET resolved_to = ? WHERE id = ?
		`, product, id)
		if err != nil {
			return fmt.Errorf("failed to resolve missing basis: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("%w: missing basis %s", common.ErrNotFound, provisional)
		}

		for _, v := range vars {
			for _, table := range []string{v.Table, v.MonthlyTable} {
				res, err := tx.ExecContext(ctx, fmt.Sprintf(`
					INSERT INTO %[1]s (date, product, value)
					SELECT date, ?, value FROM %[1]s WHERE product = ?
					ON CONFLICT(date, product) DO UPDATE SET value = value + excluded.value
				`, table), product, provisional)
				if err != nil {
					return fmt.Errorf("failed to move rows in %s: %w", table, err)
				}
				if table == v.Table {
					n, _ := res.RowsAffected()
					moved += n
				}
				if _, err := tx.ExecContext(ctx, fmt.Sprintf(
					`DELETE FROM %s WHERE product = ?`, table), provisional); err != nil {
					return fmt.Errorf("failed to clear rows in %s: %w", table, err)
				}
			}
		}

		_, err = tx.ExecContext(ctx, `DELETE FROM forecast WHERE product = ?`, provisional)
		return err
	})
	if err != nil {
		return 0, err
	}
	return moved, nil
}

// RecordUnmatchedHeader queues header text for curation, counting repeat
// sightings.
func (s *SQLiteStorage) RecordUnmatchedHeader(ctx context.Context, header string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(header, "header"); err != nil {
		return err
	}

	now := time.Now().UTC()
	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO unmatched_header (header, first_seen, last_seen, seen_count)
			VALUES (?, ?, ?, 1)
			ON CONFLICT(header) DO UPDATE SET
				last_seen = excluded.last_seen,
				seen_count = seen_count + 1
		`, header, now, now)
		if err != nil {
			return fmt.Errorf("failed to record unmatched header: %w", err)
		}
		return nil
	})
}

// UnmatchedHeaders lists queued header text, most frequently seen first.
func (s *SQLiteStorage) UnmatchedHeaders(ctx context.Context) ([]model.UnmatchedHeader, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT header, first_seen, last_seen, seen_count
		FROM unmatched_header
		ORDER BY seen_count DESC, header
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query unmatched headers: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var headers []model.UnmatchedHeader
	for rows.Next() {
		var h model.UnmatchedHeader
		if err := rows.Scan(&h.Header, &h.FirstSeen, &h.LastSeen, &h.SeenCount); err != nil {
			return nil, fmt.Errorf("failed to scan unmatched header: %w", err)
		}
		headers = append(headers, h)
	}
	return headers, rows.Err()
}

// DismissUnmatchedHeader removes header text from the curation queue.
func (s *SQLiteStorage) DismissUnmatchedHeader(ctx context.Context, header string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM unmatched_header WHERE header = ?`, header)
		if err != nil {
			return fmt.Errorf("failed to dismiss unmatched header: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("%w: header %q", common.ErrNotFound, header)
		}
		return nil
	})
}

var (
	_ ingest.ProvisionalIssuer = (*SQLiteStorage)(nil)
	_ ingest.HeaderRecorder    = (*SQLiteStorage)(nil)
)
