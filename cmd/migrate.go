package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pharmaveille/pharmadz/internal/nomenclature"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx, "migrate")
		if err != nil {
			return err
		}
		defer st.Close()

		if err := nomenclature.Migrate(ctx, st.Pool()); err != nil {
			return err
		}

		// Pick up columns the migrations may have added.
		if err := st.Reprobe(ctx); err != nil {
			return err
		}

		zap.L().Info("migrations applied")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
