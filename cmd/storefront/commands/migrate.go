package commands

import (
	"github.com/spf13/cobra"
	"github.com/suteetoe/storefront/pkg/database"
	"go.uber.org/zap"
)

// migrateCmd creates or updates the schema
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		appConfig, log, err := bootstrap()
		if err != nil {
			return err
		}
		defer log.Sync()

		db, err := database.InitDB(&appConfig.DB)
		if err != nil {
			return err
		}
		defer database.Close(db)

		if err := database.Migrate(db); err != nil {
			return err
		}
		log.Info("Database migrated", zap.String("db_name", appConfig.DB.DBName))
		return nil
	},
}
