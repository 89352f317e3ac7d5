package ingest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/Veraticus/foundry-forecast/internal/common"
)

const (
	// Delimiter separates fields in exported text files.
	Delimiter = ','
	// Quote encloses fields containing delimiters. Exports from the ERP
	// quote with a pipe rather than a double quote.
	Quote = '|'
)

// ErrUnterminatedQuote is returned when a quoted field never closes.
var ErrUnterminatedQuote = errors.New("unterminated quoted field")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReadFile loads the records of a delimited text or xlsx export.
func ReadFile(path string) ([][]string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return ReadXLSX(path)
	case ".csv", ".txt", "":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", path, err)
		}
		defer func() { _ = f.Close() }()
		return ReadDelimited(f)
	default:
		return nil, fmt.Errorf("%w: %s", common.ErrUnsupportedFile, filepath.Ext(path))
	}
}

// ReadDelimited parses comma separated, pipe quoted records. A doubled
// quote inside a quoted field is a literal quote. Blank lines are skipped.
func ReadDelimited(r io.Reader) ([][]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read records: %w", err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	var (
		records  [][]string
		record   []string
		field    strings.Builder
		inQuotes bool
		content  bool
		line     = 1
	)

	endRecord := func() {
		if content {
			record = append(record, field.String())
			records = append(records, record)
		}
		record = nil
		field.Reset()
		content = false
	}

	for i := 0; i < len(data); i++ {
		c := data[i]
		if inQuotes {
			if c == Quote {
				if i+1 < len(data) && data[i+1] == Quote {
					field.WriteByte(Quote)
					i++
					continue
				}
				inQuotes = false
				continue
			}
			if c == '\n' {
				line++
			}
			field.WriteByte(c)
			continue
		}

		switch c {
		case Quote:
			content = true
			if field.Len() == 0 {
				inQuotes = true
			} else {
				field.WriteByte(c)
			}
		case Delimiter:
			content = true
			record = append(record, field.String())
			field.Reset()
		case '\r':
			if i+1 < len(data) && data[i+1] == '\n' {
				i++
			}
			line++
			endRecord()
		case '\n':
			line++
			endRecord()
		default:
			content = true
			field.WriteByte(c)
		}
	}

	if inQuotes {
		return nil, fmt.Errorf("%w starting before line %d", ErrUnterminatedQuote, line)
	}
	endRecord()

	return records, nil
}

// WriteDelimited writes records in the format ReadDelimited reads, quoting
// only the fields that need it.
func WriteDelimited(w io.Writer, records [][]string) error {
	var b strings.Builder
	for _, record := range records {
		b.Reset()
		for i, field := range record {
			if i > 0 {
				b.WriteByte(Delimiter)
			}
			if strings.ContainsAny(field, ",|\r\n") {
				b.WriteByte(Quote)
				b.WriteString(strings.ReplaceAll(field, "|", "||"))
				b.WriteByte(Quote)
				continue
			}
			b.WriteString(field)
		}
		b.WriteByte('\n')
		if _, err := io.WriteString(w, b.String()); err != nil {
			return fmt.Errorf("failed to write record: %w", err)
		}
	}
	return nil
}

// ReadXLSX returns the rows of the first sheet holding a header and at
// least one data row.
func ReadXLSX(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
		}
		if len(rows) >= 2 {
			return rows, nil
		}
	}

	return nil, fmt.Errorf("%w: no sheet in %s has data rows", common.ErrNoData, path)
}
