package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	translateFrom string
	translateTo   string
)

var translateCmd = &cobra.Command{
	Use:   "translate <text...>",
	Short: "Translate text through the configured provider chain",
	Args:  cobra.MinimumNArgs(1),

	RunE: func(cmd *cobra.Command, args []string) error {
		from, to := cfg.SourceLang, cfg.TargetLang
		if translateFrom != "" {
			from = translateFrom
		}
		if translateTo != "" {
			to = translateTo
		}

		svc, cleanup := buildTranslator(cmd.Context(), cfg, newQuota(cfg))
		defer cleanup()

		out, err := svc.TryTranslate(cmd.Context(), strings.Join(args, " "), from, to)
		if err != nil {
			fmt.Fprintln(cmd.OutOrStdout(), svc.Sentinel())
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), out)
		return nil
	},
}

func init() {
	translateCmd.Flags().StringVar(&translateFrom, "from", "", "source language (default from config)")
	translateCmd.Flags().StringVar(&translateTo, "to", "", "target language (default from config)")
}
