package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"go-eval-harness/internal/harness"
	"go-eval-harness/internal/model"
)

func runValidate(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	total := 0
	for _, ds := range cfg.Datasets {
		q := harness.NewQueue()
		n, err := harness.LoadSamples(cmd.Context(), q, []model.DatasetConfig{ds}, cfg.NumRepetitions)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s: %d units\n", ds.Name, n)
		total += n
	}
	fmt.Fprintf(out, "config OK: %d units, %d workers, evaluator %s\n", total, cfg.MaxConcurrency, cfg.Evaluator.Kind)
	return nil
}
