package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pharmaveille/pharmadz/internal/nomenclature"
)

var versionsCmd = &cobra.Command{
	Use:   "versions",
	Short: "List ingested nomenclature versions",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx, "versions")
		if err != nil {
			return err
		}
		defer st.Close()

		versions, err := nomenclature.NewVersionLedger(st.Pool()).List(ctx)
		if err != nil {
			return err
		}
		if len(versions) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no versions ingested yet")
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "VERSION\tDATE\tTOTAL\tADDED\tREMOVED\tWITHDRAWALS\tINGESTED")
		for _, v := range versions {
			date := "-"
			if v.ReferenceDate != nil {
				date = v.ReferenceDate.Format("2006-01-02")
			}
			fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%d\t%s\n",
				v.Label, date, v.TotalRegistrations, v.AddedCount,
				v.RemovedCount, v.TotalWithdrawals,
				v.CreatedAt.Format("2006-01-02 15:04"))
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(versionsCmd)
}
