package cmd

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/KejDhruv-Pharbit/Pharbit/internal/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	database, err := db.Connect(&cfg.DB)
	if err != nil {
		return err
	}

	if err := db.Migrate(database); err != nil {
		return err
	}

	log.Info().Msg("Migrations completed successfully")
	return nil
}
