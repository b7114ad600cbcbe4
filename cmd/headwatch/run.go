package main

import (
	"context"

	"github.com/deusflow/headwatch/internal/logger"
	"github.com/deusflow/headwatch/internal/metrics"
	"github.com/deusflow/headwatch/internal/monitor"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Poll all sources until interrupted",
	Args:  cobra.NoArgs,

	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		quota := newQuota(cfg)
		m, cleanup, err := buildMonitor(ctx, cfg, quota)
		if err != nil {
			return err
		}
		defer cleanup()

		serverDone := make(chan struct{})
		if cfg.Monitoring.Enabled {
			go func() {
				defer close(serverDone)
				if err := monitor.NewServer(metrics.Global, quota).ListenAndServe(ctx, cfg.Monitoring.Addr); err != nil {
					logger.Error("monitoring server error", "error", err)
				}
			}()
		} else {
			close(serverDone)
		}

		err = m.Run(ctx)
		cancel()
		<-serverDone
		return err
	},
}
