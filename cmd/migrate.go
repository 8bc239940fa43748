package cmd

import (
	"fmt"

	"profiles/internal/config"
	"profiles/internal/database"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Creates or updates the users table and exits",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		defer logger.Sync()

		if cfg.DatabaseDriver == config.DriverMemory {
			return fmt.Errorf("nothing to migrate for driver %s", cfg.DatabaseDriver)
		}

		db, err := database.Open(cmd.Context(), cfg.DatabaseDriver, cfg.DatabaseDSN)
		if err != nil {
			return err
		}
		defer database.Close(db)

		if err := database.Migrate(cmd.Context(), db); err != nil {
			return err
		}
		logger.Info("Migration complete", zap.String("driver", cfg.DatabaseDriver))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
