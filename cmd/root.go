package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pharmaveille/pharmadz/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "pharmadz",
	Short: "Algerian pharmaceutical nomenclature backend",
	Long:  "Serves the public drug registry API, ingests ministry Excel exports with versioned diffing, and publishes withdrawal alerts and newsletters.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// .env is a local development convenience; absence is normal.
		_ = godotenv.Load()

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
