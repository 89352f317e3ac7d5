// Package importer runs ingestion end to end, from a raw export to stored
// observations and an archived normalized copy.
package importer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Veraticus/foundry-forecast/internal/common"
	"github.com/Veraticus/foundry-forecast/internal/datetemplate"
	"github.com/Veraticus/foundry-forecast/internal/ingest"
	"github.com/Veraticus/foundry-forecast/internal/metrics"
	"github.com/Veraticus/foundry-forecast/internal/model"
)

// archiveTimeLayout stamps archived copies.
const archiveTimeLayout = "20060102T150405"

// Store is the persistence an import needs.
type Store interface {
	ingest.HeaderRecorder
	ingest.ProvisionalIssuer
	ResolvedBases(ctx context.Context) (map[string]string, error)
	AddImport(ctx context.Context, location string, importedAt time.Time, dateFormat string) (int64, error)
	SaveObservations(ctx context.Context, obs []model.Observation, overwrite bool) (int64, error)
}

// Reference is the curated alias and product data.
type Reference interface {
	ingest.AliasLookup
	DateTemplates() []string
	Variables() []string
	WithResolved(resolved map[string]string) ingest.ProductLookup
}

// Options are the defaults applied to every request.
type Options struct {
	// ArchiveDir receives the normalized copy of each file. Empty disables
	// archiving.
	ArchiveDir string
	// DateTemplate is used when a request names none. Empty means detect.
	DateTemplate string
	Shift        bool
	Overwrite    bool
}

// Request describes one file to import.
type Request struct {
	// Date applies to every value of a cross-sectional file.
	Date time.Time
	Path string
	// Variable names the variable of a single-dimension file.
	Variable string
	// DateTemplate overrides Options.DateTemplate.
	DateTemplate string
}

// Result summarizes an import.
type Result struct {
	Provisional  map[string]string
	RunID        string
	Template     string
	Archive      string
	Unmatched    []string
	Kind         ingest.FileKind
	ImportID     int64
	Saved        int64
	Observations int
	Rejected     int
	CellErrors   int
}

// Importer imports files into a store.
type Importer struct {
	store   Store
	ref     Reference
	metrics *metrics.Metrics
	now     func() time.Time
	opts    Options
}

// Option configures an Importer.
type Option func(*Importer)

// WithMetrics records import outcomes on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(i *Importer) {
		i.metrics = m
	}
}

// WithClock replaces the clock used for import records and archive names.
func WithClock(now func() time.Time) Option {
	return func(i *Importer) {
		i.now = now
	}
}

// New creates an importer.
func New(store Store, ref Reference, opts Options, options ...Option) *Importer {
	i := &Importer{
		store: store,
		ref:   ref,
		opts:  opts,
		now:   time.Now,
	}
	for _, o := range options {
		o(i)
	}
	return i
}

// Import ingests one file. A structural problem rejects the file before
// anything is written; row and cell problems are counted in the result.
func (i *Importer) Import(ctx context.Context, req Request) (*Result, error) {
	runID := uuid.NewString()
	fields := common.Fields{"run_id": runID, "path": req.Path}

	result, err := i.importFile(ctx, runID, req)
	if err != nil {
		i.countFile("unknown", metrics.OutcomeFailed)
		common.LogError(err, "Import failed", fields)
		return nil, err
	}

	i.countFile(result.Kind.String(), metrics.OutcomeOK)
	if i.metrics != nil {
		i.metrics.ObservationsSaved.Add(float64(result.Saved))
		i.metrics.RowsRejected.Add(float64(result.Rejected))
		i.metrics.CellErrors.Add(float64(result.CellErrors))
		i.metrics.ProvisionalKeys.Add(float64(len(result.Provisional)))
		i.metrics.UnmatchedHeaders.Add(float64(len(result.Unmatched)))
	}

	fields["import_id"] = result.ImportID
	fields["kind"] = result.Kind.String()
	fields["saved"] = result.Saved
	fields["rejected"] = result.Rejected
	fields["cell_errors"] = result.CellErrors
	fields["provisional"] = len(result.Provisional)
	common.LogInfo("Imported file", fields)
	return result, nil
}

func (i *Importer) importFile(ctx context.Context, runID string, req Request) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	variable, err := i.variable(req.Variable)
	if err != nil {
		return nil, err
	}

	records, err := ingest.ReadFile(req.Path)
	if err != nil {
		return nil, err
	}

	pattern := i.template(records, req)
	var tmpl *datetemplate.Template
	if pattern != "" {
		tmpl = datetemplate.New(pattern, datetemplate.WithShift(i.opts.Shift))
	}

	resolved, err := i.store.ResolvedBases(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load resolved identifiers: %w", err)
	}
	resolver := ingest.NewBasisResolver(i.ref.WithResolved(resolved), i.store)

	out, err := ingest.NewDecomposer(i.ref, i.store, resolver).Decompose(ctx, records, ingest.Request{
		Date:     req.Date,
		Template: tmpl,
		Variable: variable,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to decompose %s: %w", req.Path, err)
	}

	location := req.Path
	if abs, absErr := filepath.Abs(req.Path); absErr == nil {
		location = abs
	}
	importedAt := i.now()
	id, err := i.store.AddImport(ctx, location, importedAt, pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to record import: %w", err)
	}

	obs := out.Observations()
	saved, err := i.store.SaveObservations(ctx, obs, i.opts.Overwrite)
	if err != nil {
		return nil, fmt.Errorf("failed to save observations: %w", err)
	}

	result := &Result{
		RunID:        runID,
		ImportID:     id,
		Kind:         out.Kind,
		Template:     pattern,
		Provisional:  out.Provisional,
		Unmatched:    out.Unmatched,
		Saved:        saved,
		Observations: len(obs),
		Rejected:     out.Rejected,
		CellErrors:   out.CellErrors,
	}

	if i.opts.ArchiveDir != "" {
		archive, err := i.archive(id, importedAt, out.Table())
		if err != nil {
			return nil, err
		}
		result.Archive = archive
	}
	return result, nil
}

// template picks the request's template, then the configured one, then the
// first reference template that reads the file.
// variable maps a requested variable name or alias to its canonical name.
func (i *Importer) variable(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", nil
	}
	canonical, ok := i.ref.LookupAlias(strings.ToLower(name))
	if ok && slices.Contains(i.ref.Variables(), canonical) {
		return canonical, nil
	}
	return "", common.NewUserError(fmt.Sprintf("unknown variable %q", name), common.ErrVariableRequired)
}

func (i *Importer) template(records [][]string, req Request) string {
	for _, t := range []string{req.DateTemplate, i.opts.DateTemplate} {
		if t != "" {
			return strings.TrimPrefix(t, ingest.TemplatePrefix)
		}
	}
	return ingest.DetectTemplate(records, i.ref, i.ref.DateTemplates())
}

func (i *Importer) archive(id int64, at time.Time, table [][]string) (string, error) {
	if err := os.MkdirAll(i.opts.ArchiveDir, 0750); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}

	path := filepath.Join(i.opts.ArchiveDir, fmt.Sprintf("%d-%s.csv", id, at.Format(archiveTimeLayout)))
	f, err := os.Create(path) //nolint:gosec // path is built from configuration
	if err != nil {
		return "", fmt.Errorf("failed to create archive: %w", err)
	}
	if err := ingest.WriteDelimited(f, table); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("failed to write archive: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close archive: %w", err)
	}
	return path, nil
}

func (i *Importer) countFile(kind, outcome string) {
	if i.metrics != nil {
		i.metrics.FilesImported.WithLabelValues(kind, outcome).Inc()
	}
}
