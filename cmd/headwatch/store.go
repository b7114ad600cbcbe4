package main

import (
	"fmt"

	"github.com/deusflow/headwatch/internal/storage"
	"github.com/spf13/cobra"
)

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Inspect the seen-headline store",
}

var storeStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print the backend and number of remembered headlines",
	Args:  cobra.NoArgs,

	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := storage.Open(cmd.Context(), cfg.Storage)
		if err != nil {
			return fmt.Errorf("failed to open seen store: %w", err)
		}
		defer store.Close()

		n, err := store.Count(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "backend: %s\n", cfg.Storage.Backend)
		fmt.Fprintf(cmd.OutOrStdout(), "seen headlines: %d\n", n)
		return nil
	},
}

func init() {
	storeCmd.AddCommand(storeStatsCmd)
}
