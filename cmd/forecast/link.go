package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Veraticus/foundry-forecast/internal/cli"
	"github.com/Veraticus/foundry-forecast/internal/service"
)

func linkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "link <old-product> <new-product>",
		Short: "Carry a replaced product's history forward",
		Long: `Copy the history of a product that was replaced into its successor. Only
observations dated before the successor's first observation are copied.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(cmd, args, "Linked", service.Storage.LinkHistory)
		},
	}
}

func unlinkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unlink <old-product> <new-product>",
		Short: "Remove history copied by link",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(cmd, args, "Unlinked", service.Storage.UnlinkHistory)
		},
	}
}

func withHistory(cmd *cobra.Command, args []string, verb string,
	op func(service.Storage, context.Context, string, string) (int64, error),
) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := initStorage(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	rows, err := op(store, cmd.Context(), args[0], args[1])
	if err != nil {
		return err
	}
	slog.Info(cli.FormatSuccess(fmt.Sprintf("%s %s and %s", verb, args[0], args[1])), "rows", rows)
	return nil
}
