package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Veraticus/foundry-forecast/internal/cli"
)

func missingCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "missing",
		Short: "List unresolved product identifiers",
		Long: `List identifiers that matched no product. Their data is stored under a
provisional key until it is linked to a product with "forecast resolve".`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			all, _ := cmd.Flags().GetBool("all")

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, err := initStorage(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			entries, err := store.MissingBases(cmd.Context(), all)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Println(cli.FormatSuccess("No unresolved identifiers")) //nolint:forbidigo // User-facing output
				return nil
			}

			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				rows = append(rows, []string{e.Provisional, e.Basis, e.ResolvedTo, e.CreatedAt.Format("2006-01-02")})
			}
			fmt.Println(cli.RenderTable( //nolint:forbidigo // User-facing output
				[]string{"Key", "Identifier", "Resolved to", "First seen"}, rows))
			return nil
		},
	}

	cmd.Flags().Bool("all", false, "Include identifiers already resolved")

	return cmd
}

func resolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <provisional-key> <product>",
		Short: "Link a provisional key to a product",
		Long: `Move every value stored under a provisional key to a product, summing into
values the product already has, and remember the link for later imports.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, err := initStorage(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			moved, err := store.ResolveMissingBasis(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			slog.Info(cli.FormatSuccess(fmt.Sprintf("Resolved %s to %s", args[0], args[1])), "rows_moved", moved)
			return nil
		},
	}
}
