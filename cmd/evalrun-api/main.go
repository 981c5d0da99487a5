package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"go-eval-harness/internal/api"
	"go-eval-harness/internal/store"
	"go-eval-harness/pkg/logging"
	"go-eval-harness/pkg/router"
)

var (
	ledgerPath string
	addr       string

	rootCmd = &cobra.Command{
		Use:          "evalrun-api",
		Short:        "Serve the evaluation run ledger over HTTP",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE:         serve,
	}
)

func init() {
	rootCmd.Flags().StringVar(&ledgerPath, "ledger", "eval.db", "sqlite ledger path")
	rootCmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
}

func serve(cmd *cobra.Command, _ []string) error {
	// Init DB
	s, err := store.Open(ledgerPath)
	if err != nil {
		return err
	}
	defer s.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Create router
	r := router.New()

	// Register API routes
	api.RegisterRoutes(r, s, reg)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return r.Start(ctx, addr)
}

func main() {
	err := rootCmd.ExecuteContext(context.Background())
	logging.Sync()
	if err != nil {
		os.Exit(1)
	}
}
