package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/Veraticus/foundry-forecast/internal/common"
	"github.com/Veraticus/foundry-forecast/internal/model"
)

// EnsureVariable creates the raw and monthly tables of a variable and
// registers it, if that has not happened yet.
func (s *SQLiteStorage) EnsureVariable(ctx context.Context, name string) (model.Variable, error) {
	if err := validateContext(ctx); err != nil {
		return model.Variable{}, err
	}
	table, err := SanitizeName(name)
	if err != nil {
		return model.Variable{}, err
	}
	if v, ok := s.variables.Get(table); ok {
		return v, nil
	}

	v := model.Variable{
		Name:         strings.TrimSpace(name),
		Table:        table,
		MonthlyTable: table + MonthlySuffix,
	}
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		for _, t := range []string{v.Table, v.MonthlyTable} {
			// Table names only ever come from SanitizeName.
			if _, err := tx.ExecContext(ctx, fmt.Sprintf(`
				CREATE TABLE IF NOT EXISTS %s (
					date TEXT NOT NULL,
					product TEXT NOT NULL,
					value REAL NOT NULL,
					UNIQUE(date, product)
				)`, t)); err != nil {
				return fmt.Errorf("failed to create table %s: %w", t, err)
			}
		}
		_, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO variables (table_name, name, monthly_table)
			VALUES (?, ?, ?)
		`, v.Table, v.Name, v.MonthlyTable)
		if err != nil {
			return fmt.Errorf("failed to register variable: %w", err)
		}
		return nil
	})
	if err != nil {
		return model.Variable{}, err
	}

	s.variables.Add(table, v)
	return v, nil
}

// lookupVariable finds a registered variable by name or table name.
func (s *SQLiteStorage) lookupVariable(ctx context.Context, name string) (model.Variable, error) {
	table, err := SanitizeName(name)
	if err != nil {
		return model.Variable{}, err
	}
	if v, ok := s.variables.Get(table); ok {
		return v, nil
	}

	var v model.Variable
	err = s.db.QueryRowContext(ctx, `
		SELECT name, table_name, monthly_table
		FROM variables
		WHERE table_name = ?
	`, table).Scan(&v.Name, &v.Table, &v.MonthlyTable)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Variable{}, fmt.Errorf("%w: variable %q", common.ErrNotFound, name)
	}
	if err != nil {
		return model.Variable{}, fmt.Errorf("failed to look up variable: %w", err)
	}

	s.variables.Add(table, v)
	return v, nil
}

// Variables lists every registered variable by table name.
func (s *SQLiteStorage) Variables(ctx context.Context) ([]model.Variable, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.listVariables(ctx, s.db)
}

func (s *SQLiteStorage) listVariables(ctx context.Context, q queryable) ([]model.Variable, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT name, table_name, monthly_table
		FROM variables
		ORDER BY table_name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query variables: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var vars []model.Variable
	for rows.Next() {
		var v model.Variable
		if err := rows.Scan(&v.Name, &v.Table, &v.MonthlyTable); err != nil {
			return nil, fmt.Errorf("failed to scan variable: %w", err)
		}
		vars = append(vars, v)
	}
	return vars, rows.Err()
}

// SaveObservations writes observations to their variables' raw tables,
// creating tables as needed. With overwrite an existing (date, product)
// value is replaced; otherwise it is kept and the new one dropped. It
// returns the number of rows written.
func (s *SQLiteStorage) SaveObservations(ctx context.Context, obs []model.Observation, overwrite bool) (int64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if len(obs) == 0 {
		return 0, nil
	}

	byVariable := make(map[string][]model.Observation)
	tables := make(map[string]string)
	for _, o := range obs {
		if _, ok := tables[o.Variable]; !ok {
			v, err := s.EnsureVariable(ctx, o.Variable)
			if err != nil {
				return 0, fmt.Errorf("variable %q: %w", o.Variable, err)
			}
			tables[o.Variable] = v.Table
		}
		table := tables[o.Variable]
		byVariable[table] = append(byVariable[table], o)
	}

	verb := "INSERT OR IGNORE"
	if overwrite {
		verb = "INSERT OR REPLACE"
	}

	var written int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		written = 0
		for table, batch := range byVariable {
			stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
				`%s INTO %s (date, product, value) VALUES (?, ?, ?)`, verb, table))
			if err != nil {
				return fmt.Errorf("failed to prepare insert for %s: %w", table, err)
			}
			for _, o := range batch {
				res, err := stmt.ExecContext(ctx, o.Date.Format(model.DateLayout), o.Product, o.Value)
				if err != nil {
					_ = stmt.Close()
					return fmt.Errorf("failed to save observation to %s: %w", table, err)
				}
				n, _ := res.RowsAffected()
				written += n
			}
			if err := stmt.Close(); err != nil {
				return fmt.Errorf("failed to close statement: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return written, nil
}

// Series returns a product's raw observations of a variable in date order.
func (s *SQLiteStorage) Series(ctx context.Context, variable, product string) ([]model.Point, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	v, err := s.lookupVariable(ctx, variable)
	if err != nil {
		return nil, err
	}
	return s.points(ctx, s.db, v.Table, product)
}

// MonthlySeries returns a product's monthly series of a variable in date
// order.
func (s *SQLiteStorage) MonthlySeries(ctx context.Context, variable, product string) ([]model.Point, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	v, err := s.lookupVariable(ctx, variable)
	if err != nil {
		return nil, err
	}
	return s.points(ctx, s.db, v.MonthlyTable, product)
}

func (s *SQLiteStorage) points(ctx context.Context, q queryable, table, product string) ([]model.Point, error) {
	rows, err := q.QueryContext(ctx, fmt.Sprintf(`
		SELECT date, value FROM %s WHERE product = ? ORDER BY date
	`, table), product)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	var points []model.Point
	for rows.Next() {
		var date string
		var p model.Point
		if err := rows.Scan(&date, &p.Value); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", table, err)
		}
		if p.Date, err = parseDate(date); err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// Products lists the products with monthly data for a variable.
func (s *SQLiteStorage) Products(ctx context.Context, variable string) ([]string, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	v, err := s.lookupVariable(ctx, variable)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT DISTINCT product FROM %s ORDER BY product
	`, v.MonthlyTable))
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var products []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// AlignedMonthly joins a product's monthly target series by date with
// every other variable holding monthly data for the product. It returns
// the variable names, target first and the rest by table name, and one
// row per date present in all of them.
func (s *SQLiteStorage) AlignedMonthly(ctx context.Context, target, product string) ([]string, []model.MonthlyRow, error) {
	if err := validateContext(ctx); err != nil {
		return nil, nil, err
	}
	tv, err := s.lookupVariable(ctx, target)
	if err != nil {
		return nil, nil, err
	}
	all, err := s.listVariables(ctx, s.db)
	if err != nil {
		return nil, nil, err
	}

	columns := []model.Variable{tv}
	for _, v := range all {
		if v.Table == tv.Table {
			continue
		}
		var has bool
		if err := s.db.QueryRowContext(ctx, fmt.Sprintf(
			`SELECT EXISTS(SELECT 1 FROM %s WHERE product = ?)`, v.MonthlyTable), product).Scan(&has); err != nil {
			return nil, nil, fmt.Errorf("failed to check %s: %w", v.MonthlyTable, err)
		}
		if has {
			columns = append(columns, v)
		}
	}
	sort.SliceStable(columns[1:], func(i, j int) bool {
		return columns[1+i].Table < columns[1+j].Table
	})

	names := make([]string, len(columns))
	selects := make([]string, len(columns))
	var joins strings.Builder
	for i, v := range columns {
		names[i] = v.Name
		selects[i] = fmt.Sprintf("t%d.value", i)
		if i > 0 {
			fmt.Fprintf(&joins, " JOIN %s t%d ON t%d.date = t0.date AND t%d.product = t0.product", v.MonthlyTable, i, i, i)
		}
	}
	query := fmt.Sprintf(`SELECT t0.date, %s FROM %s t0%s WHERE t0.product = ? ORDER BY t0.date`,
		strings.Join(selects, ", "), tv.MonthlyTable, joins.String())

	rows, err := s.db.QueryContext(ctx, query, product)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query aligned data: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.MonthlyRow
	for rows.Next() {
		var date string
		values := make([]float64, len(columns))
		dest := make([]any, 0, len(columns)+1)
		dest = append(dest, &date)
		for i := range values {
			dest = append(dest, &values[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, nil, fmt.Errorf("failed to scan aligned row: %w", err)
		}
		d, err := parseDate(date)
		if err != nil {
			return nil, nil, err
		}
		out = append(out, model.MonthlyRow{Date: d, Values: values})
	}
	return names, out, rows.Err()
}
