package cmd

import (
	"github.com/spf13/cobra"
	"github.com/vzahanych/weather-api/internal/config"
	"github.com/vzahanych/weather-api/internal/storage"
	"go.uber.org/zap"
)

// migrateCmd applies pending schema migrations and exits. The database
// backend runs migrations on startup as well; this command exists for
// deployments that migrate before rolling the service.
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	RunE:  runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg := config.GetConfig()

	backend, err := storage.NewDatabaseBackend(cfg.Storage.Database, log)
	if err != nil {
		log.Error("Migration failed", zap.Error(err))
		return err
	}
	defer backend.Close()

	log.Info("Migrations applied",
		zap.String("driver", cfg.Storage.Database.Driver))
	return nil
}
