package api

import (
	"github.com/prometheus/client_golang/prometheus"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "go-eval-harness/docs"
	"go-eval-harness/internal/api/handler"
	"go-eval-harness/internal/metrics"
	"go-eval-harness/pkg/router"
)

// RegisterRoutes wires the ledger API, metrics and swagger UI.
func RegisterRoutes(r *router.Router, runs handler.RunReader, gatherer prometheus.Gatherer) {
	h := &handler.RunHandler{Runs: runs}

	r.GET("/api/v1/runs", h.ListRuns)
	// More specific routes first
	r.GET("/api/v1/runs/*/errors", h.GetRunErrors)
	r.GET("/api/v1/runs/*/results", h.DownloadResults)
	// Generic run route last
	r.GET("/api/v1/runs/*", h.GetRun)

	r.Mount("/metrics", metrics.Handler(gatherer))
	r.Mount("/swagger/", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))
}
