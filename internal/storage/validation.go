// Package storage persists variable series, forecasts and the ingestion
// bookkeeping tables in SQLite.
package storage

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/Veraticus/foundry-forecast/internal/model"
)

// Validation errors.
var (
	ErrNilContext          = errors.New("context cannot be nil")
	ErrEmptyString         = errors.New("string parameter cannot be empty")
	ErrInvalidVariableName = errors.New("invalid variable name")
	ErrReservedName        = errors.New("variable name is reserved")
	ErrUnknownModel        = errors.New("unknown forecast model")
	ErrInvalidReduction    = errors.New("invalid reduction")
	ErrInvalidProvisional  = errors.New("not a provisional key")
)

// MonthlySuffix names the monthly table of a variable.
const MonthlySuffix = "_monthly"

// coreTables are owned by the schema and can never hold a variable.
var coreTables = map[string]bool{
	"variables":        true,
	"forecast":         true,
	"import":           true,
	"missing_basis":    true,
	"unmatched_header": true,
}

var (
	nonIdentifier = regexp.MustCompile(`[^a-z0-9]+`)
	identifier    = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)
)

// SanitizeName converts a variable name to the table name holding it:
// lower case, runs of anything but letters and digits collapsed to one
// underscore, a leading digit prefixed with "v_". Names that collide with
// schema tables or another variable's monthly table are rejected.
func SanitizeName(name string) (string, error) {
	table := nonIdentifier.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "_")
	table = strings.Trim(table, "_")
	if table == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidVariableName, name)
	}
	if table[0] >= '0' && table[0] <= '9' {
		table = "v_" + table
	}
	if !identifier.MatchString(table) {
		return "", fmt.Errorf("%w: %q", ErrInvalidVariableName, name)
	}
	if coreTables[table] || strings.HasPrefix(table, "sqlite_") || strings.HasSuffix(table, MonthlySuffix) {
		return "", fmt.Errorf("%w: %q", ErrReservedName, name)
	}
	return table, nil
}

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

func validateModel(m model.ForecastModel) error {
	if !m.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownModel, m)
	}
	return nil
}
