package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/poi-admin/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "poi-admin",
	Short: "Point-of-interest catalog administration",
	Long:  "Imports point-of-interest files (CSV, JSON, XML, XLSX) into the catalog, upserting by external ID, and provides browse, search, and import-history commands.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
