package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/miradorstack/mirador-coverage/internal/config"
	"github.com/miradorstack/mirador-coverage/internal/utils"
)

// Global flags
const (
	ConfigFlag   = "config"
	EnvFileFlag  = "env-file"
	LogLevelFlag = "log-level"
)

var (
	configPath string
	envFile    string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:          "mirador-coverage",
	Short:        "Compare suggested metrics with what a customer already collects",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, ConfigFlag, "", "path to configuration file (defaults to $MIRADOR_COVERAGE_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&envFile, EnvFileFlag, "", "dotenv file applied before environment overrides")
	rootCmd.PersistentFlags().StringVar(&logLevel, LogLevelFlag, "", "override logging.level")
}

// loadConfig reads configuration and builds the logger for a command.
func loadConfig(w io.Writer) (*config.Config, *slog.Logger, error) {
	if err := config.LoadEnvFile(envFile); err != nil {
		return nil, nil, err
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	logger := utils.NewLoggerTo(w, cfg.Logging.Level, cfg.Logging.JSON)
	slog.SetDefault(logger)
	return cfg, logger, nil
}
