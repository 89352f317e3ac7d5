package main

import (
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/foundry-forecast/internal/cli"
	"github.com/Veraticus/foundry-forecast/internal/importer"
	"github.com/Veraticus/foundry-forecast/internal/model"
)

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file>...",
		Short: "Import exported product data",
		Long: `Import delimited or xlsx exports of product data.

Headers are matched against the reference aliases, product identifiers are
resolved to products (unknown ones get a provisional key and are queued for
review), and the values are stored per variable. Each file is logged and
archived in normalized form.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runImport,
	}

	cmd.Flags().String("variable", "", "Variable held by a file with dates as column headers")
	cmd.Flags().String("date", "", "Date applied to every value of a file without dates (format: 2006-01-02)")
	cmd.Flags().String("template", "", "Date template, e.g. $yyyy-mm-dd (default: detect from reference templates)")
	cmd.Flags().Bool("shift", false, "Shift parsed dates four weeks later")
	cmd.Flags().Bool("overwrite", false, "Replace values already stored for the same date and product")

	// Bind to viper
	_ = viper.BindPFlag("import.date_template", cmd.Flags().Lookup("template"))
	_ = viper.BindPFlag("import.shift", cmd.Flags().Lookup("shift"))
	_ = viper.BindPFlag("import.overwrite", cmd.Flags().Lookup("overwrite"))

	return cmd
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	variable, _ := cmd.Flags().GetString("variable")
	dateText, _ := cmd.Flags().GetString("date")
	var date time.Time
	if dateText != "" {
		var err error
		date, err = time.Parse(model.DateLayout, dateText)
		if err != nil {
			return fmt.Errorf("invalid --date %q: %w", dateText, err)
		}
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ref, err := loadReference(cfg)
	if err != nil {
		return err
	}
	store, err := initStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	imp := importer.New(store, ref, importer.Options{
		ArchiveDir:   cfg.Import.ArchiveDir,
		DateTemplate: cfg.Import.DateTemplate,
		Shift:        cfg.Import.Shift,
		Overwrite:    cfg.Import.Overwrite,
	}, importer.WithMetrics(appMetrics))

	failed := 0
	for _, path := range args {
		result, err := imp.Import(ctx, importer.Request{
			Path:     path,
			Variable: variable,
			Date:     date,
		})
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			failed++
			slog.Error(cli.FormatError("Import failed"), "path", path, "error", err)
			continue
		}
		fmt.Println(importSummary(path, result)) //nolint:forbidigo // User-facing output
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files failed to import", failed, len(args))
	}
	return nil
}

func importSummary(path string, r *importer.Result) string {
	template := r.Template
	if template == "" {
		template = "(none)"
	}
	pairs := [][2]string{
		{"Import", strconv.FormatInt(r.ImportID, 10)},
		{"Kind", r.Kind.String()},
		{"Date template", template},
		{"Observations", strconv.Itoa(r.Observations)},
		{"Saved", strconv.FormatInt(r.Saved, 10)},
		{"Rows rejected", strconv.Itoa(r.Rejected)},
		{"Cell errors", strconv.Itoa(r.CellErrors)},
	}
	if r.Archive != "" {
		pairs = append(pairs, [2]string{"Archive", r.Archive})
	}

	raws := make([]string, 0, len(r.Provisional))
	for raw := range r.Provisional {
		raws = append(raws, raw)
	}
	sort.Strings(raws)
	for _, raw := range raws {
		pairs = append(pairs, [2]string{"Unresolved " + raw, cli.StyleWarning(r.Provisional[raw])})
	}
	for _, h := range r.Unmatched {
		pairs = append(pairs, [2]string{"Unmatched header", cli.StyleWarning(h)})
	}

	return cli.RenderSummary(cli.FolderIcon+" "+path, pairs)
}
