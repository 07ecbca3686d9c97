package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
	Long:  `Run database migrations of the portal and every loadable plugin, then exit.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg := loadConfig()
		db, _, _ := bootstrap(cmd.Context(), cfg)
		defer db.Close() //nolint:errcheck

		fmt.Println("Database migrations completed successfully!")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
