package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Veraticus/foundry-forecast/internal/cli"
)

func systematizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "systematize",
		Short: "Rebuild monthly series",
		Long: `Trim the leading run of zero values from every product of every variable,
then rebuild each variable's monthly table. Stock-level variables keep their
first value of the month (systematize.reductions); others are summed.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, err := initStorage(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			reductions, fallback := cfg.Reductions()
			results, err := store.Systematize(cmd.Context(), reductions, fallback)
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(results))
			for _, r := range results {
				rows = append(rows, []string{
					r.Variable.Name,
					string(r.Reduction),
					strconv.FormatInt(r.Trimmed, 10),
					strconv.FormatInt(r.Monthly, 10),
				})
			}
			fmt.Println(cli.RenderTable( //nolint:forbidigo // User-facing output
				[]string{"Variable", "Reduction", "Zeros trimmed", "Monthly rows"}, rows))
			return nil
		},
	}
}
