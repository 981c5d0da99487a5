package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"go-eval-harness/internal/model"
	"go-eval-harness/internal/report"
)

func runReport(cmd *cobra.Command, args []string) error {
	rows, err := report.ReadResults(args[0])
	if err != nil {
		return err
	}
	groups, err := report.Aggregate(rows, groupBy)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "%s\tUNITS\tPASSED\tFAILED\tNOT_EVALUATED\tERRORS\tPASS_RATE\tMEAN_SCORE\n", groupBy)
	for _, g := range groups {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\t%.2f\t%.3f\n", g.GroupValue, g.RecordCount,
			g.StatusCounts[model.EvalStatusPassed], g.StatusCounts[model.EvalStatusFailed],
			g.StatusCounts[model.EvalStatusNotEvaluated], g.StatusCounts[model.EvalStatusError],
			g.PassRate, g.MeanScore)
	}
	return tw.Flush()
}
