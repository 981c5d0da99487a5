package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"go-eval-harness/internal/config"
	"go-eval-harness/internal/model"
	"go-eval-harness/internal/report"
	"go-eval-harness/pkg/logging"
)

// --- Global Command Variables ---
var (
	configPath  string
	concurrency int
	repetitions int
	datasets    []string
	logLevel    string
	ledgerPath  string
	runsLimit   int
	groupBy     string

	rootCmd = &cobra.Command{
		Use:   "evalrun",
		Short: "Run concurrent evaluations of a system under test against JSON datasets",
		Long: `evalrun loads every record of the configured datasets, repeats each one
num_repetitions times and evaluates them with max_concurrency workers,
appending one JSON line per evaluated unit to the run's result file.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if logLevel != "" {
				logging.SetLevel(logLevel)
			}
		},
	}

	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Execute an evaluation run",
		Args:  cobra.NoArgs,
		RunE:  runEvaluation, // Defined in cmd_run.go
	}

	validateCmd = &cobra.Command{
		Use:   "validate",
		Short: "Check the config and datasets without evaluating anything",
		Args:  cobra.NoArgs,
		RunE:  runValidate, // Defined in cmd_validate.go
	}

	runsCmd = &cobra.Command{
		Use:   "runs [run-id]",
		Short: "List recorded runs, or show one run and its errors",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runListRuns, // Defined in cmd_runs.go
	}

	reportCmd = &cobra.Command{
		Use:   "report [results.jsonl]",
		Short: "Aggregate a result file by dataset, criteria, record or worker",
		Args:  cobra.ExactArgs(1),
		RunE:  runReport, // Defined in cmd_report.go
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "eval.yaml", "path to the run configuration")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log level (debug, info, warn, error)")

	for _, cmd := range []*cobra.Command{runCmd, validateCmd} {
		cmd.Flags().IntVar(&concurrency, "concurrency", 0, "override max_concurrency")
		cmd.Flags().IntVar(&repetitions, "repetitions", 0, "override num_repetitions")
		cmd.Flags().StringArrayVar(&datasets, "dataset", nil, "replace the configured datasets (repeatable)")
	}

	runsCmd.Flags().StringVar(&ledgerPath, "ledger", "", "sqlite ledger path (defaults to the config's ledger)")
	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "maximum number of runs to list")

	reportCmd.Flags().StringVar(&groupBy, "group-by", report.GroupByDataset, "dataset, criteria, record or worker")

	rootCmd.AddCommand(runCmd, validateCmd, runsCmd, reportCmd)
}

// loadConfig reads the config file and applies command-line overrides.
func loadConfig() (model.RunConfig, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return model.RunConfig{}, err
	}
	if concurrency > 0 {
		cfg.MaxConcurrency = concurrency
	}
	if repetitions > 0 {
		cfg.NumRepetitions = repetitions
	}
	if len(datasets) > 0 {
		cfg.Datasets = cfg.Datasets[:0]
		for _, d := range datasets {
			cfg.Datasets = append(cfg.Datasets, model.DatasetConfig{Name: d})
		}
	}
	if err := config.Validate(cfg); err != nil {
		return model.RunConfig{}, fmt.Errorf("after flag overrides: %w", err)
	}
	if logLevel == "" && cfg.LogLevel != "" {
		logging.SetLevel(cfg.LogLevel)
	}
	return cfg, nil
}
