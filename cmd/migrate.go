package cmd

import (
	"github.com/spf13/cobra"

	"devpress/publisher/internal/app"
)

var migrateDown bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the content schema migrations",
	Long: `migrate applies the migrations under MIGRATION_PATH to the content store.
The schema belongs to the CMS; this is meant for development and test
databases.

Example usage:
  publisher migrate          # Apply pending migrations
  publisher migrate --down   # Revert the most recent migration`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := app.OpenDB(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		if migrateDown {
			return app.Rollback(db, cfg.MigrationPath)
		}
		return app.Migrate(db, cfg.MigrationPath)
	},
}

func init() {
	migrateCmd.Flags().BoolVar(&migrateDown, "down", false, "revert the most recent migration")
	rootCmd.AddCommand(migrateCmd)
}
