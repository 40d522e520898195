// Package metrics provides Prometheus instrumentation for bulk runs.
package metrics

import (
	"context"
	"errors"
	"net"
	nethttp "net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/andresharpe/cute-sub002/internal/bulk"
	"github.com/andresharpe/cute-sub002/internal/constants"
	"github.com/andresharpe/cute-sub002/internal/models"
	"github.com/andresharpe/cute-sub002/internal/ratelimit"
)

// Metrics holds the collectors for one CLI invocation. It implements bulk.Recorder.
type Metrics struct {
	registry *prometheus.Registry

	JobsSubmitted *prometheus.CounterVec
	JobItems      *prometheus.CounterVec
	JobsFinished  *prometheus.CounterVec
	ItemFailures  *prometheus.CounterVec
	Calls         *prometheus.CounterVec
	CallRetries   *prometheus.CounterVec
	Requests      *prometheus.HistogramVec
}

var _ bulk.Recorder = (*Metrics)(nil)

// New creates and registers all metrics on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	ns := constants.MetricsNamespace

	return &Metrics{
		registry: reg,

		JobsSubmitted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "bulk_jobs_submitted_total",
			Help:      "Bulk jobs submitted, partitioned by mutation kind.",
		}, []string{"kind"}),

		JobItems: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "bulk_job_items_total",
			Help:      "Entries carried by submitted bulk jobs.",
		}, []string{"kind"}),

		JobsFinished: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "bulk_jobs_finished_total",
			Help:      "Bulk jobs that reached a terminal status.",
		}, []string{"kind", "status"}),

		ItemFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "bulk_item_failures_total",
			Help:      "Entries that permanently failed.",
		}, []string{"kind"}),

		Calls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "single_calls_total",
			Help:      "Per-entry calls by outcome.",
		}, []string{"kind", "outcome"}),

		CallRetries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "limiter_retries_total",
			Help:      "Calls retried by the rate limiter.",
		}, []string{"kind"}),

		Requests: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "http_request_duration_seconds",
			Help:      "Management API request latency.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}, []string{"method", "code"}),
	}
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// WatchLimiter exports the limiter's live window and permit usage.
func (m *Metrics) WatchLimiter(l *ratelimit.Limiter) {
	ns := constants.MetricsNamespace
	f := promauto.With(m.registry)
	f.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: ns,
		Name:      "limiter_calls_in_window",
		Help:      "Calls admitted in the current rolling window.",
	}, func() float64 { return float64(l.Stats().CallsInWindow) })
	f.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: ns,
		Name:      "limiter_in_flight",
		Help:      "Calls currently holding a permit.",
	}, func() float64 { return float64(l.Stats().InFlight) })
}

func (m *Metrics) JobSubmitted(kind models.MutationKind, items int) {
	m.JobsSubmitted.WithLabelValues(kind.String()).Inc()
	m.JobItems.WithLabelValues(kind.String()).Add(float64(items))
}

func (m *Metrics) JobFinished(kind models.MutationKind, status bulk.JobStatus) {
	m.JobsFinished.WithLabelValues(kind.String(), string(status)).Inc()
}

func (m *Metrics) ItemFailed(kind models.MutationKind) {
	m.ItemFailures.WithLabelValues(kind.String()).Inc()
}

func (m *Metrics) CallFinished(kind models.MutationKind, err error) {
	outcome := "success"
	switch {
	case err == nil:
	case ratelimit.IsPermanent(err):
		outcome = "rejected"
	case errors.Is(err, ratelimit.ErrRetryExhausted):
		outcome = "exhausted"
	default:
		outcome = "error"
	}
	m.Calls.WithLabelValues(kind.String(), outcome).Inc()
}

func (m *Metrics) CallRetried(kind models.MutationKind) {
	m.CallRetries.WithLabelValues(kind.String()).Inc()
}

// ObserveRequest records one HTTP exchange. status 0 means a transport failure.
func (m *Metrics) ObserveRequest(method string, status int, elapsed time.Duration) {
	code := "error"
	if status > 0 {
		code = strconv.Itoa(status)
	}
	m.Requests.WithLabelValues(method, code).Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() nethttp.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done. The listener is bound
// before Serve returns so a bad address fails fast.
func (m *Metrics) Serve(ctx context.Context, addr string, log zerolog.Logger) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	mux := nethttp.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &nethttp.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.MetricsShutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	go func() {
		log.Info().Str("addr", ln.Addr().String()).Msg("metrics server starting")
		if err := srv.Serve(ln); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()
	return nil
}
