// Package ingest turns arbitrarily shaped tabular exports into product
// observations: headers are matched against known variables and dates,
// product identifiers are resolved, and duplicate rows are summed.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/Veraticus/foundry-forecast/internal/common"
	"github.com/Veraticus/foundry-forecast/internal/datetemplate"
	"github.com/Veraticus/foundry-forecast/internal/model"
)

// Request carries the per-file inputs of a decomposition.
type Request struct {
	// Date applies to every value of a cross-sectional file.
	Date time.Time
	// Template parses the Date column and date-valued headers.
	Template *datetemplate.Template
	// Variable names the single variable of a single-dimension file.
	Variable string
}

// Decomposed is a file reduced to aggregated numeric rows.
type Decomposed struct {
	layout      layout
	Provisional map[string]string
	Columns     []ColumnTag
	Rows        []Row
	Unmatched   []string
	Kind        FileKind
	Rejected    int
	CellErrors  int
}

// Decomposer turns one file's records into aggregated product rows.
type Decomposer struct {
	aliases  AliasLookup
	recorder HeaderRecorder
	resolver *BasisResolver
}

// NewDecomposer creates a decomposer. recorder may be nil.
func NewDecomposer(aliases AliasLookup, recorder HeaderRecorder, resolver *BasisResolver) *Decomposer {
	return &Decomposer{
		aliases:  aliases,
		recorder: recorder,
		resolver: resolver,
	}
}

// Decompose processes records, whose first element is the header row.
// Structural problems (no rows, no basis column, a missing variable name or
// date for the detected kind, nothing left to load) fail the whole file.
// Bad rows and cells are counted and skipped or zeroed.
func (d *Decomposer) Decompose(ctx context.Context, records [][]string, req Request) (*Decomposed, error) {
	if len(records) < 2 {
		return nil, common.NewUserError("file has no data rows", common.ErrNoData)
	}

	tags := NewHeaderMatcher(d.aliases, req.Template, d.recorder).Match(ctx, records[0])

	basisIndex := -1
	dateIndex := -1
	var unmatched []string
	for _, tag := range tags {
		switch tag.Kind {
		case TagBasis:
			if basisIndex < 0 {
				basisIndex = tag.Index
			}
		case TagDate:
			if dateIndex < 0 {
				dateIndex = tag.Index
			}
		case TagMissing:
			if h := strings.TrimSpace(tag.Header); h != "" {
				unmatched = append(unmatched, h)
			}
		}
	}
	if basisIndex < 0 {
		return nil, common.NewUserError("no column matched the product basis", common.ErrNoBasisColumn)
	}

	l, err := newLayout(DetectKind(tags), req)
	if err != nil {
		return nil, err
	}

	var columns []ColumnTag
	for _, tag := range tags {
		if l.keep(tag) {
			columns = append(columns, tag)
		}
	}
	if len(columns) == 0 {
		return nil, common.NewUserError("no columns left to load after matching", common.ErrNoData)
	}
	if l.rowDated() && req.Template == nil {
		return nil, common.NewUserError("file has a Date column but no date template", common.ErrDateRequired)
	}

	out := &Decomposed{
		layout:    l,
		Kind:      l.kind(),
		Columns:   columns,
		Unmatched: unmatched,
	}

	rows := make([]Row, 0, len(records)-1)
	for i, record := range records[1:] {
		line := i + 2
		basis := strings.TrimSpace(cell(record, basisIndex))
		if basis == "" {
			slog.Warn("Skipping row without a basis value", "row", line)
			out.Rejected++
			continue
		}

		row := Row{Basis: basis, Values: make([]float64, len(columns))}
		if l.rowDated() {
			text := strings.TrimSpace(cell(record, dateIndex))
			date, err := req.Template.Parse(text)
			if err != nil {
				slog.Warn("Skipping row with unreadable date",
					"row", line,
					"value", text,
					"template", req.Template.String())
				out.Rejected++
				continue
			}
			row.Date = date
		}

		for j, col := range columns {
			v, ok := parseCell(cell(record, col.Index))
			if !ok {
				slog.Warn("Treating unreadable cell as zero",
					"row", line,
					"column", col.Header,
					"value", cell(record, col.Index))
				out.CellErrors++
			}
			row.Values[j] = v
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil, common.NewUserError("no readable rows in file", common.ErrNoData)
	}

	basis := make([]string, len(rows))
	for i := range rows {
		basis[i] = rows[i].Basis
	}
	out.Provisional, err = d.resolver.Resolve(ctx, basis)
	if err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].Basis = basis[i]
	}

	SortRows(rows, l.rowDated())
	out.Rows, err = Aggregate(rows, l.rowDated())
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate rows: %w", err)
	}

	return out, nil
}

func newLayout(kind FileKind, req Request) (layout, error) {
	switch kind {
	case KindMultidimensionalTimeseries:
		return multidimensionalLayout{}, nil
	case KindSingleDimensionTimeseries:
		if strings.TrimSpace(req.Variable) == "" {
			return nil, common.NewUserError("file has dates as columns but no variable was given", common.ErrVariableRequired)
		}
		return singleDimensionLayout{variable: strings.TrimSpace(req.Variable)}, nil
	default:
		if req.Date.IsZero() {
			return nil, common.NewUserError("file has no dates and no date was given", common.ErrDateRequired)
		}
		return crossSectionalLayout{date: req.Date}, nil
	}
}

// Observations flattens the decomposed rows into one observation per cell.
func (d *Decomposed) Observations() []model.Observation {
	obs := make([]model.Observation, 0, len(d.Rows)*len(d.Columns))
	for _, row := range d.Rows {
		for j, col := range d.Columns {
			variable, date := d.layout.locate(row, col)
			obs = append(obs, model.Observation{
				Date:     date,
				Variable: variable,
				Product:  row.Basis,
				Value:    row.Values[j],
			})
		}
	}
	return obs
}

// Table renders the decomposed rows as a normalized header plus records.
func (d *Decomposed) Table() [][]string {
	header := []string{BasisName}
	if d.layout.rowDated() {
		header = append(header, DateName)
	}
	for _, col := range d.Columns {
		header = append(header, col.Label())
	}

	table := make([][]string, 0, len(d.Rows)+1)
	table = append(table, header)
	for _, row := range d.Rows {
		record := make([]string, 0, len(header))
		record = append(record, row.Basis)
		if d.layout.rowDated() {
			record = append(record, row.Date.Format(model.DateLayout))
		}
		for _, v := range row.Values {
			record = append(record, strconv.FormatFloat(v, 'f', -1, 64))
		}
		table = append(table, record)
	}
	return table
}

// cell returns record[i], treating cells past the end of a short row as empty.
func cell(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	return record[i]
}

// parseCell coerces a cell to a number: empty cells are zero. The second
// result is false when the text is not numeric, in which case the value is
// zero too.
func parseCell(text string) (float64, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, true
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(text, ",", ""), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
