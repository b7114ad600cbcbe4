package main

import (
	"errors"
	"os"

	"github.com/deusflow/headwatch/internal/config"
	"github.com/deusflow/headwatch/internal/logger"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const defaultConfigPath = "configs/headwatch.yaml"

var (
	configPath string
	logLevel   string

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:          "headwatch",
	Short:        "Watch news sites for headlines matching keywords",
	Long:         `headwatch polls news pages and feeds, picks out headlines that contain any of the configured keywords, translates them and appends them to an HTML log.`,
	SilenceUsage: true,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// .env is optional
		_ = godotenv.Load()

		path, err := resolveConfigPath(cmd)
		if err != nil {
			return err
		}

		loaded, err := config.Load(path)
		if err != nil {
			return err
		}
		if logLevel != "" {
			loaded.Log.Level = logLevel
		}
		cfg = loaded

		logger.Init(cfg.Log.Level, cfg.Log.Format)
		if path == "" {
			logger.Debug("no config file, using built-in defaults")
		} else {
			logger.Debug("config loaded", "path", path)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to the YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn or error")

	rootCmd.AddCommand(runCmd, onceCmd, translateCmd, storeCmd)
}

// resolveConfigPath returns "" when the default config file is absent.
// An explicit --config that does not exist is an error.
func resolveConfigPath(cmd *cobra.Command) (string, error) {
	if cmd.Flags().Changed("config") {
		return configPath, nil
	}
	if _, err := os.Stat(configPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", err
	}
	return configPath, nil
}
