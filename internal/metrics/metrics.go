package metrics

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"clipfit/internal/ladder"
	"clipfit/internal/services"
	"clipfit/internal/worker"
)

const namespace = "clipfit"

// Metrics holds the collectors for one registry.
type Metrics struct {
	registry *prometheus.Registry

	runsStarted    prometheus.Counter
	runsFinished   *prometheus.CounterVec
	runsActive     prometheus.Gauge
	runDuration    prometheus.Histogram
	attempts       *prometheus.CounterVec
	attemptSeconds prometheus.Histogram
	attemptsPerRun prometheus.Histogram
	reduction      prometheus.Histogram
	outputBytes    prometheus.Counter

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	mu      sync.Mutex
	started map[string]time.Time
}

// New registers the clipfit collectors, plus the Go runtime and process
// collectors, on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		runsStarted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_started_total",
			Help:      "Total number of compression runs started",
		}),
		runsFinished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_finished_total",
			Help:      "Total number of compression runs finished, by status and failure kind",
		}, []string{"status", "kind"}),
		runsActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "runs_active",
			Help:      "Number of compression runs in progress",
		}),
		runDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of finished compression runs",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200, 3600},
		}),
		attempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attempts_total",
			Help:      "Total number of encode attempts, by ladder decision",
		}, []string{"decision"}),
		attemptSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "attempt_duration_seconds",
			Help:      "Encode time of a single attempt",
			Buckets:   []float64{0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		}),
		attemptsPerRun: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "attempts_per_run",
			Help:      "Attempts used by successful runs",
			Buckets:   []float64{1, 2, 3, 4},
		}),
		reduction: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "size_reduction_percent",
			Help:      "Size reduction achieved by successful runs",
			Buckets:   prometheus.LinearBuckets(10, 10, 9),
		}),
		outputBytes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "output_bytes_total",
			Help:      "Total bytes written by successful runs",
		}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of API requests",
		}, []string{"route", "method", "status"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "API request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		started: make(map[string]time.Time),
	}
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RunStarted implements worker.Recorder.
func (m *Metrics) RunStarted(_ context.Context, run worker.RunInfo) {
	m.runsStarted.Inc()
	m.runsActive.Inc()
	started := run.Started
	if started.IsZero() {
		started = time.Now()
	}
	m.mu.Lock()
	m.started[run.ID] = started
	m.mu.Unlock()
}

// AttemptFinished implements worker.Recorder.
func (m *Metrics) AttemptFinished(_ context.Context, _ string, attempt ladder.Attempt) {
	m.attempts.WithLabelValues(string(attempt.Decision)).Inc()
	m.attemptSeconds.Observe(attempt.Elapsed.Seconds())
}

// RunFinished implements worker.Recorder.
func (m *Metrics) RunFinished(_ context.Context, runID string, outcome worker.Outcome) {
	m.mu.Lock()
	started, ok := m.started[runID]
	delete(m.started, runID)
	m.mu.Unlock()
	if ok {
		m.runsActive.Dec()
		finished := outcome.Finished
		if finished.IsZero() {
			finished = time.Now()
		}
		m.runDuration.Observe(finished.Sub(started).Seconds())
	}

	kind := "none"
	if outcome.Error != nil {
		kind = string(outcome.Error.FailureKind)
	} else if outcome.Status == ladder.StageError {
		kind = string(services.KindInternal)
	}
	m.runsFinished.WithLabelValues(string(outcome.Status), kind).Inc()

	if res := outcome.Result; res != nil && outcome.Status == ladder.StageComplete {
		m.attemptsPerRun.Observe(float64(res.Attempts))
		m.reduction.Observe(res.Reduction())
		m.outputBytes.Add(float64(res.OutputSize))
	}
}

// InstrumentHandler records request counts and latency for route.
func (m *Metrics) InstrumentHandler(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		m.httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		m.httpRequests.WithLabelValues(route, r.Method, strconv.Itoa(rec.status)).Inc()
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
