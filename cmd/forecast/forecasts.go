package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/foundry-forecast/internal/cli"
	"github.com/Veraticus/foundry-forecast/internal/model"
)

func forecastsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "forecasts [product]",
		Short: "Show stored forecasts",
		Long:  `Show stored forecasts and their errors for one product, or for every product.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			showErrors, _ := cmd.Flags().GetBool("errors")

			var product string
			if len(args) == 1 {
				product = args[0]
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, err := initStorage(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			records, err := store.Forecasts(cmd.Context(), product)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Println(cli.FormatInfo("No forecasts stored")) //nolint:forbidigo // User-facing output
				return nil
			}

			header := []string{"Product", "Month"}
			for _, m := range model.AllModels {
				header = append(header, string(m))
				if showErrors {
					header = append(header, m.ErrorColumn())
				}
			}

			rows := make([][]string, 0, len(records))
			for _, rec := range records {
				row := []string{rec.Product, rec.Date.Format("2006-01")}
				for _, m := range model.AllModels {
					row = append(row, cli.FormatValue(rec.Values[m]))
					if showErrors {
						row = append(row, cli.FormatValue(rec.Errors[m]))
					}
				}
				rows = append(rows, row)
			}
			fmt.Println(cli.RenderTable(header, rows)) //nolint:forbidigo // User-facing output
			return nil
		},
	}

	cmd.Flags().Bool("errors", false, "Include forecast error columns")

	return cmd
}
