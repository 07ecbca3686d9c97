package cmd

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var importCmd = &cobra.Command{
	Use:     "import-v1 <file>",
	Short:   "Import widgets exported by Web Portal V1",
	Long:    `Import a V1 widget export. Every entry becomes a link of the core plugin named after its prefix.`,
	Example: `web-portal import-v1 widgets.json -c config.yml`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		db, _, svc := bootstrap(cmd.Context(), cfg)
		defer db.Close() //nolint:errcheck

		file, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open export: %w", err)
		}
		defer file.Close() //nolint:errcheck

		count, err := svc.ImportLegacy(cmd.Context(), file)
		if err != nil {
			return err
		}
		log.Info("import completed", "file", args[0], "imported", count)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
}
