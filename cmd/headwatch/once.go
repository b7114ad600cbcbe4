package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var onceCmd = &cobra.Command{
	Use:   "once",
	Short: "Run a single polling cycle and exit",
	Long:  `once fetches every source one time and records new matches. The output log is left open for later runs.`,
	Args:  cobra.NoArgs,

	RunE: func(cmd *cobra.Command, args []string) error {
		m, cleanup, err := buildMonitor(cmd.Context(), cfg, newQuota(cfg))
		if err != nil {
			return err
		}
		defer cleanup()

		res, err := m.RunOnce(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d new headlines written to %s in %s\n",
			len(res.Records), cfg.OutputFile, res.Duration.Round(time.Millisecond))
		return nil
	},
}
