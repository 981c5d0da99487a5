package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"go-eval-harness/internal/evaluate"
	"go-eval-harness/internal/harness"
	"go-eval-harness/internal/metrics"
	"go-eval-harness/internal/model"
	"go-eval-harness/internal/sink"
	"go-eval-harness/internal/store"
	"go-eval-harness/pkg/logging"
	"go-eval-harness/pkg/router"
)

func runEvaluation(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	pipeline, err := evaluate.New(cfg)
	if err != nil {
		return err
	}

	runID := uuid.New().String()
	started := time.Now()
	results, err := sink.Open(cfg.OutputDir, runID, started)
	if err != nil {
		return err
	}
	defer results.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	opts := []harness.Option{
		harness.WithMetrics(metrics.New(reg)),
		harness.WithDisplay(harness.NewDisplay(os.Stderr, "Evaluating")),
	}
	if cfg.Ledger != "" {
		ledger, err := store.Open(cfg.Ledger)
		if err != nil {
			return fmt.Errorf("open ledger: %w", err)
		}
		defer ledger.Close()
		opts = append(opts, harness.WithLedger(ledger))
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	shutdown := harness.NewShutdown()
	stopSignals := watchSignals(shutdown, cancel)
	defer stopSignals()

	logging.Default.Infow("Starting evaluation run", "run_id", runID,
		"datasets", len(cfg.Datasets), "repetitions", cfg.NumRepetitions, "concurrency", cfg.MaxConcurrency)

	runner := harness.NewRunner(runID, cfg, pipeline, results, opts...)

	serverCtx, stopServer := context.WithCancel(ctx)
	defer stopServer()
	var g errgroup.Group
	if cfg.MetricsAddr != "" {
		g.Go(func() error {
			r := router.New()
			r.Mount("/metrics", metrics.Handler(reg))
			if err := r.Start(serverCtx, cfg.MetricsAddr); err != nil {
				logging.Default.Warnf("Metrics server stopped: %v", err)
			}
			return nil
		})
	}

	var summary model.Summary
	g.Go(func() error {
		defer stopServer()
		s, err := runner.Run(ctx, shutdown)
		summary = s
		return err
	})
	if err := g.Wait(); err != nil {
		var loadErr *harness.LoadError
		if errors.As(err, &loadErr) {
			discardResults(results)
		}
		return err
	}

	printSummary(cmd, summary)
	return nil
}

// discardResults removes the result file and its run directory when nothing was written to them.
func discardResults(results *sink.JSONL) {
	if err := results.Close(); err != nil || results.Count() > 0 {
		return
	}
	path := results.Path()
	if err := os.Remove(path); err != nil {
		logging.Default.Warnf("Failed to remove empty result file %s: %v", path, err)
		return
	}
	_ = os.Remove(filepath.Dir(path))
}

// watchSignals raises shutdown on the first SIGINT/SIGTERM and cancels in-flight work on the second.
func watchSignals(shutdown *harness.Shutdown, cancel context.CancelFunc) func() {
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})

	go func() {
		select {
		case <-sigCh:
		case <-done:
			return
		}
		logging.Default.Warn("Shutdown requested, finishing in-flight units (signal again to abort)")
		shutdown.Set()

		select {
		case <-sigCh:
			logging.Default.Warn("Aborting in-flight units")
			cancel()
		case <-done:
		}
	}()

	return func() {
		signal.Stop(sigCh)
		close(done)
	}
}

func printSummary(cmd *cobra.Command, s model.Summary) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run %s %s\n", s.RunID, s.Status())
	fmt.Fprintf(out, "  units:     %d/%d completed, %d not passed\n", s.Completed, s.Total, s.Failed)
	if s.WorkerFaults > 0 {
		fmt.Fprintf(out, "  workers:   %d crashed\n", s.WorkerFaults)
	}
	fmt.Fprintf(out, "  results:   %s\n", s.OutputPath)
	fmt.Fprintf(out, "  duration:  %s\n", s.Duration.Round(time.Millisecond))
}
