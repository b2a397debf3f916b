// Package metrics exposes Prometheus collectors for the upload pipeline.
// All methods are safe on a nil *Metrics, so components can run without
// instrumentation.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/HuangJiaLian/Up2Git/internal/logging"
)

const namespace = "up2git"

// Metrics holds the pipeline collectors.
type Metrics struct {
	registry *prometheus.Registry

	uploads        *prometheus.CounterVec
	uploadDuration prometheus.Histogram
	inFlight       prometheus.Gauge
	historyEntries prometheus.Gauge
	triggers       prometheus.Counter
}

// New registers the collectors on a private registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := MustNewMetrics(reg)
	m.registry = reg
	reg.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return m
}

// MustNewMetrics registers the collectors on reg and panics on conflicts.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_total",
			Help:      "Completed uploads by result (success or error kind).",
		}, []string{"result"}),
		uploadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upload_duration_seconds",
			Help:      "Time from submission to completion of an upload.",
			Buckets:   prometheus.DefBuckets,
		}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "uploads_in_flight",
			Help:      "Uploads currently running.",
		}),
		historyEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "history_entries",
			Help:      "Entries currently held in the upload history.",
		}),
		triggers: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "triggers_total",
			Help:      "Trigger markers consumed.",
		}),
	}
	reg.MustRegister(m.uploads, m.uploadDuration, m.inFlight, m.historyEntries, m.triggers)
	return m
}

// UploadStarted marks one more upload in flight.
func (m *Metrics) UploadStarted() {
	if m == nil {
		return
	}
	m.inFlight.Inc()
}

// UploadFinished records a completed upload. result is "success" or the
// error kind.
func (m *Metrics) UploadFinished(result string, d time.Duration) {
	if m == nil {
		return
	}
	m.inFlight.Dec()
	m.uploads.WithLabelValues(result).Inc()
	m.uploadDuration.Observe(d.Seconds())
}

// SetHistoryEntries reports the current history length.
func (m *Metrics) SetHistoryEntries(n int) {
	if m == nil {
		return
	}
	m.historyEntries.Set(float64(n))
}

// TriggerConsumed counts one consumed trigger marker.
func (m *Metrics) TriggerConsumed() {
	if m == nil {
		return
	}
	m.triggers.Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, addr string, logger logging.Logger) error {
	logger = logging.OrNop(logger)

	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info(ctx, "metrics endpoint listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
