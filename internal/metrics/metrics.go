// Package metrics exposes prometheus collectors for evaluation runs.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder groups the run collectors. A nil *Recorder is valid and records nothing.
type Recorder struct {
	unitsTotal   *prometheus.CounterVec
	unitDuration prometheus.Histogram
	unitsQueued  prometheus.Gauge
	inFlight     prometheus.Gauge
	workerFaults prometheus.Counter
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		unitsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "evalharness",
			Name:      "units_total",
			Help:      "Evaluation units completed, by outcome status.",
		}, []string{"status"}),
		unitDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "evalharness",
			Name:      "unit_duration_seconds",
			Help:      "Wall time spent evaluating one unit, retries included.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 14),
		}),
		unitsQueued: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "evalharness",
			Name:      "units_queued",
			Help:      "Units enqueued for the current run.",
		}),
		inFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "evalharness",
			Name:      "units_in_flight",
			Help:      "Units currently being evaluated.",
		}),
		workerFaults: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "evalharness",
			Name:      "worker_faults_total",
			Help:      "Workers that exited on an unexpected panic.",
		}),
	}
}

// ObserveUnit records one completed unit.
func (r *Recorder) ObserveUnit(status string, d time.Duration) {
	if r == nil {
		return
	}
	r.unitsTotal.WithLabelValues(status).Inc()
	r.unitDuration.Observe(d.Seconds())
}

// SetQueued records the run's unit total.
func (r *Recorder) SetQueued(n int) {
	if r == nil {
		return
	}
	r.unitsQueued.Set(float64(n))
}

// InFlight adjusts the in-flight gauge by delta.
func (r *Recorder) InFlight(delta float64) {
	if r == nil {
		return
	}
	r.inFlight.Add(delta)
}

// WorkerFault counts a worker lost to a panic.
func (r *Recorder) WorkerFault() {
	if r == nil {
		return
	}
	r.workerFaults.Inc()
}

// Handler serves the collectors registered with g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
