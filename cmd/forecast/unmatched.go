package main

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Veraticus/foundry-forecast/internal/cli"
)

func unmatchedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "unmatched",
		Short: "List header text no alias matched",
		Long: `List header text that matched neither a variable alias nor a date, so it
can be added to the reference file or dismissed.`,
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

			headers, err := store.UnmatchedHeaders(cmd.Context())
			if err != nil {
				return err
			}
			if len(headers) == 0 {
				fmt.Println(cli.FormatSuccess("No unmatched headers")) //nolint:forbidigo // User-facing output
				return nil
			}

			rows := make([][]string, 0, len(headers))
			for _, h := range headers {
				rows = append(rows, []string{
					h.Header,
					strconv.Itoa(h.SeenCount),
					h.FirstSeen.Format("2006-01-02"),
					h.LastSeen.Format("2006-01-02"),
				})
			}
			fmt.Println(cli.RenderTable( //nolint:forbidigo // User-facing output
				[]string{"Header", "Seen", "First seen", "Last seen"}, rows))
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "dismiss <header>",
		Short: "Remove header text from the list",
		Args:  cobra.ExactArgs(1),
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

			if err := store.DismissUnmatchedHeader(cmd.Context(), args[0]); err != nil {
				return err
			}
			slog.Info(cli.FormatSuccess("Dismissed header"), "header", args[0])
			return nil
		},
	})

	return cmd
}
