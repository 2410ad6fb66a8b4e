package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/turtacn/sixcities/internal/infrastructure/persistence/postgres"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		cfg.Database.AutoMigrate = true

		db, err := postgres.NewDBConnection(cmd.Context(), &cfg.Database, log)
		if err != nil {
			return err
		}
		defer db.Close()

		fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
