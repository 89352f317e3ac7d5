package main

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/foundry-forecast/internal/cli"
	"github.com/Veraticus/foundry-forecast/internal/forecast"
	"github.com/Veraticus/foundry-forecast/internal/model"
)

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run forecast passes",
		Long: `Forecast the target variable for every product, one pass per model.

Products without target data are skipped. A product whose forecast fails is
logged and counted without stopping the pass. Interrupting keeps every
product forecast so far.`,
		RunE: runForecast,
	}

	cmd.Flags().StringSlice("model", nil, "Models to run (naive, ema, mlr; default: forecast.models)")
	cmd.Flags().StringSlice("product", nil, "Products to forecast (default: all with target data)")
	cmd.Flags().String("target", "", "Target variable (default: forecast.target_variable)")
	cmd.Flags().Bool("errors", false, "Recompute forecast errors after the passes")
	cmd.Flags().Bool("no-progress", false, "Do not draw a progress bar")

	_ = viper.BindPFlag("forecast.target_variable", cmd.Flags().Lookup("target"))

	return cmd
}

func runForecast(cmd *cobra.Command, _ []string) error {
	names, _ := cmd.Flags().GetStringSlice("model")
	products, _ := cmd.Flags().GetStringSlice("product")
	withErrors, _ := cmd.Flags().GetBool("errors")
	noProgress, _ := cmd.Flags().GetBool("no-progress")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	models, err := parseModels(cfg, names)
	if err != nil {
		return err
	}

	interrupts := cli.NewInterruptHandler(os.Stderr, "Forecast pass",
		"Products already forecast are saved. Rerun with: forecast run")
	ctx := interrupts.HandleInterrupts(cmd.Context())

	store, err := initStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	opts := []forecast.Option{
		forecast.WithModels(forecast.DefaultModels(cfg.Forecast.EMAAlpha, cfg.Forecast.MLRAlpha)...),
		forecast.WithMetrics(appMetrics),
	}
	if !noProgress {
		opts = append(opts, forecast.WithProgress(cli.NewProgress(os.Stderr, "Forecasting products...").Update))
	}
	runner := forecast.NewRunner(store, cfg.Forecast.TargetVariable, opts...)

	results, runErr := runner.Run(ctx, products, models)
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		rows = append(rows, []string{
			string(r.Model),
			strconv.Itoa(r.Forecasted),
			strconv.Itoa(r.Skipped),
			strconv.Itoa(r.Failed),
			strconv.Itoa(r.NullMonths),
			r.Duration.Round(time.Millisecond).String(),
		})
	}
	fmt.Println(cli.RenderBox(cli.ChartIcon+" Forecast passes", cli.RenderTable( //nolint:forbidigo // User-facing output
		[]string{"Model", "Forecast", "Skipped", "Failed", "Empty months", "Duration"}, rows)))
	if runErr != nil {
		return runErr
	}

	if withErrors {
		return printErrors(cmd, runner, cfg.Forecast.TargetVariable, models)
	}
	return nil
}

func errorsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "errors",
		Short: "Recompute forecast errors",
		Long: `Recompute each model's forecast error (actual minus forecast) for every
forecast month with a recorded actual in the target's monthly series.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			names, _ := cmd.Flags().GetStringSlice("model")

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			models, err := parseModels(cfg, names)
			if err != nil {
				return err
			}

			store, err := initStorage(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			runner := forecast.NewRunner(store, cfg.Forecast.TargetVariable, forecast.WithMetrics(appMetrics))
			return printErrors(cmd, runner, cfg.Forecast.TargetVariable, models)
		},
	}

	cmd.Flags().StringSlice("model", nil, "Models to update (default: forecast.models)")

	return cmd
}

func printErrors(cmd *cobra.Command, runner *forecast.Runner, target string, models []model.ForecastModel) error {
	updated, err := runner.RunErrors(cmd.Context(), models)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(updated))
	for m := range updated {
		names = append(names, string(m))
	}
	sort.Strings(names)

	pairs := make([][2]string, 0, len(names))
	for _, name := range names {
		pairs = append(pairs, [2]string{name, strconv.FormatInt(updated[model.ForecastModel(name)], 10) + " rows"})
	}
	fmt.Println(cli.RenderSummary("Errors against "+target, pairs)) //nolint:forbidigo // User-facing output
	return nil
}
