package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pharmaveille/pharmadz/internal/nomenclature"
)

var ingestLabel string

var ingestCmd = &cobra.Command{
	Use:   "ingest <file.xlsx>",
	Short: "Ingest a ministry nomenclature export",
	Long:  "Parses the Excel workbook, diffs it against the active dataset, swaps the three record tables and appends a version ledger entry, all in one transaction.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx, "ingest")
		if err != nil {
			return err
		}
		defer st.Close()

		path := args[0]
		data, err := os.ReadFile(path)
		if err != nil {
			return eris.Wrap(err, "ingest: read file")
		}

		ingestor := nomenclature.NewIngestor(st.Pool(), cfg.Ingest.BatchSize,
			time.Duration(cfg.Ingest.TimeoutSecs)*time.Second)

		result, err := ingestor.Ingest(ctx, data, nomenclature.Options{
			Filename:      filepath.Base(path),
			LabelOverride: ingestLabel,
		})
		if err != nil {
			return err
		}

		zap.L().Info("ingestion complete",
			zap.String("version", result.VersionLabel),
			zap.Int("registrations", result.TotalRegistrations),
			zap.Int("added", result.AddedCount),
			zap.Int("removed", result.RemovedCount),
		)

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func init() {
	ingestCmd.Flags().StringVar(&ingestLabel, "label", "", "version label override (default inferred from filename)")
	rootCmd.AddCommand(ingestCmd)
}
