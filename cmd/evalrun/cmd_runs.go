package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"go-eval-harness/internal/config"
	"go-eval-harness/internal/store"
)

func runListRuns(cmd *cobra.Command, args []string) error {
	path := ledgerPath
	if path == "" {
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("no --ledger given and config unreadable: %w", err)
		}
		path = cfg.Ledger
	}
	if path == "" {
		return errors.New("no ledger configured")
	}

	s, err := store.Open(path)
	if err != nil {
		return err
	}
	defer s.Close()

	out := cmd.OutOrStdout()
	if len(args) == 1 {
		run, err := s.GetRun(args[0])
		if err != nil {
			return fmt.Errorf("run %s: %w", args[0], err)
		}
		fmt.Fprintf(out, "Run %s: %s, %d/%d completed, %d not passed, %d worker faults\n",
			run.ID, run.Status, run.Completed, run.Total, run.Failed, run.WorkerFaults)
		if run.OutputPath != "" {
			fmt.Fprintf(out, "Results: %s\n", run.OutputPath)
		}
		details, err := s.ListRunErrors(run.ID)
		if err != nil {
			return err
		}
		for _, d := range details {
			fmt.Fprintf(out, "  [%s] %s %s %s\n", d.Timestamp.Format("2006-01-02 15:04:05"), d.Stage, d.UnitID, d.Message)
		}
		return nil
	}

	runs, err := s.ListRuns(runsLimit)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tCOMPLETED\tFAILED\tCREATED")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%d/%d\t%d\t%s\n", r.ID, r.Status, r.Completed, r.Total, r.Failed,
			r.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	}
	return tw.Flush()
}
