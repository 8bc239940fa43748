package cmd

import (
	"fmt"
	"os"

	"profiles/internal/config"
	"profiles/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var rootCmd = &cobra.Command{
	Use:   "profiles",
	Short: "User profile REST service",
	Long: `profiles serves signup, feed, lookup, delete and update endpoints
for user profiles stored in PostgreSQL or SQLite.

Configuration is read from the environment (and .env when present).`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup loads the configuration and builds the logger shared by every command.
func setup() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	logger, err := logging.New(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logger, nil
}
