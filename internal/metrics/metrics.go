// Package metrics exposes Prometheus instrumentation for dispatch runs. Each
// run owns a private registry; the CLI writes it out in textfile format for
// node_exporter when metrics.textfile is configured.
package metrics

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"papersum/internal/dispatch"
	"papersum/internal/services"
)

const namespace = "papersum"

// Run collects the metrics of one command invocation. It implements
// dispatch.Observer and report.Recorder.
type Run struct {
	registry *prometheus.Registry

	outcomes     *prometheus.CounterVec
	attempts     prometheus.Counter
	retries      *prometheus.CounterVec
	inFlight     prometheus.Gauge
	callDuration prometheus.Histogram
	lastRun      prometheus.Gauge
}

var _ dispatch.Observer = (*Run)(nil)

// NewRun registers the run metrics on a fresh registry. command is attached
// as a constant label.
func NewRun(command string) *Run {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	labels := prometheus.Labels{"command": command}

	return &Run{
		registry: reg,
		outcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "outcomes_total",
			Help:        "Terminal item outcomes by status and error kind.",
			ConstLabels: labels,
		}, []string{"status", "kind"}),
		attempts: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "attempts_total",
			Help:        "Processor calls, including retries.",
			ConstLabels: labels,
		}),
		retries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "retries_total",
			Help:        "Backoff sleeps taken before a retry, by error kind.",
			ConstLabels: labels,
		}, []string{"kind"}),
		inFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "in_flight_calls",
			Help:        "Processor calls currently executing.",
			ConstLabels: labels,
		}),
		callDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   namespace,
			Name:        "call_duration_seconds",
			Help:        "Latency of individual processor calls.",
			ConstLabels: labels,
			Buckets:     []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60, 120, 300},
		}),
		lastRun: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "last_run_timestamp_seconds",
			Help:        "Unix time the run finished.",
			ConstLabels: labels,
		}),
	}
}

// Registry exposes the underlying registry for gathering.
func (r *Run) Registry() *prometheus.Registry { return r.registry }

// AttemptStarted implements dispatch.Observer.
func (r *Run) AttemptStarted(dispatch.WorkItem, int) {
	r.attempts.Inc()
	r.inFlight.Inc()
}

// AttemptFinished implements dispatch.Observer.
func (r *Run) AttemptFinished(_ dispatch.WorkItem, _ int, elapsed time.Duration, _ error) {
	r.inFlight.Dec()
	r.callDuration.Observe(elapsed.Seconds())
}

// Retrying implements dispatch.Observer.
func (r *Run) Retrying(_ dispatch.WorkItem, _ int, kind services.Kind, _ time.Duration) {
	r.retries.WithLabelValues(string(kind)).Inc()
}

// Record counts a terminal outcome.
func (r *Run) Record(_ context.Context, outcome dispatch.Outcome) error {
	kind := "none"
	if !outcome.Succeeded() {
		kind = string(outcome.Kind)
	}
	r.outcomes.WithLabelValues(string(outcome.Status), kind).Inc()
	return nil
}

// Finish stamps the completion time gauge.
func (r *Run) Finish(at time.Time) {
	r.lastRun.Set(float64(at.Unix()))
}

// WriteTextfile writes every registered metric to path in the Prometheus text
// exposition format. The write is atomic.
func (r *Run) WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
