/*
Package metrics instruments the scheduler with Prometheus metrics.

Metrics are registered on a private registry, never the global default,
so several schedulers can coexist in one process and in tests.

Exported metrics:

  - chaos_trigger_fires_total: Counter by trigger and resolved fault
  - chaos_fault_apply_failures_total: Counter by fault
  - chaos_fault_apply_duration_seconds: Histogram by fault
  - chaos_scheduler_running: Gauge, 1 while a run is in progress
  - chaos_cleanup_runs_total: Counter by result (success, failure)
*/
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "chaos"

// Recorder holds the scheduler metrics. A nil *Recorder is valid and
// records nothing.
type Recorder struct {
	registry *prometheus.Registry

	fires           *prometheus.CounterVec
	applyFailures   *prometheus.CounterVec
	applyDuration   *prometheus.HistogramVec
	schedulerActive prometheus.Gauge
	cleanupRuns     *prometheus.CounterVec
}

// New creates a Recorder with its own registry. Go runtime and process
// collectors are registered alongside the chaos metrics.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		fires: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trigger_fires_total",
			Help:      "Number of times a trigger fired, by trigger and applied fault.",
		}, []string{"trigger", "fault"}),
		applyFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fault_apply_failures_total",
			Help:      "Number of fault applications that returned an error.",
		}, []string{"fault"}),
		applyDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fault_apply_duration_seconds",
			Help:      "Time spent applying a fault.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}, []string{"fault"}),
		schedulerActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "scheduler_running",
			Help:      "1 while a chaos run is in progress.",
		}),
		cleanupRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cleanup_runs_total",
			Help:      "Number of final cleanup passes, by result.",
		}, []string{"result"}),
	}

	r.registry.MustRegister(
		r.fires,
		r.applyFailures,
		r.applyDuration,
		r.schedulerActive,
		r.cleanupRuns,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Registry returns the registry the metrics live on.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// ObserveApply records one fault application.
func (r *Recorder) ObserveApply(trigger, fault string, d time.Duration, err error) {
	if r == nil {
		return
	}
	r.fires.WithLabelValues(trigger, fault).Inc()
	r.applyDuration.WithLabelValues(fault).Observe(d.Seconds())
	if err != nil {
		r.applyFailures.WithLabelValues(fault).Inc()
	}
}

// SetRunning flips the scheduler_running gauge.
func (r *Recorder) SetRunning(running bool) {
	if r == nil {
		return
	}
	if running {
		r.schedulerActive.Set(1)
	} else {
		r.schedulerActive.Set(0)
	}
}

// ObserveCleanup records the outcome of a cleanup pass.
func (r *Recorder) ObserveCleanup(err error) {
	if r == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	r.cleanupRuns.WithLabelValues(result).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (r *Recorder) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
