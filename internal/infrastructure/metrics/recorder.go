package metrics

import (
	"net/http"

	"github.com/avatarctic/tabrefresh/internal/core/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tabrefresh"

// Recorder owns the engine's Prometheus collectors and implements ports.EngineMetrics.
type Recorder struct {
	registry *prometheus.Registry

	cacheLookups     *prometheus.CounterVec
	cacheEvictions   *prometheus.CounterVec
	diffDecisions    *prometheus.CounterVec
	tasksSubmitted   *prometheus.CounterVec
	tasksFailed      *prometheus.CounterVec
	tasksRejected    *prometheus.CounterVec
	scheduledSkipped *prometheus.CounterVec
	framesAdvanced   prometheus.Counter
	refreshClients   prometheus.Gauge
	refreshDuration  prometheus.Histogram
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
}

var _ ports.EngineMetrics = (*Recorder)(nil)

// NewRecorder creates a recorder with its own registry. Go runtime and process collectors are
// registered alongside the engine metrics.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Cache lookups by cache and outcome (hit, loaded, fallback)",
		}, []string{"cache", "outcome"}),
		cacheEvictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_evictions_total",
			Help:      "Entries removed by expiry cleanup",
		}, []string{"cache"}),
		diffDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "diff_decisions_total",
			Help:      "Presentation diff decisions",
		}, []string{"decision"}),
		tasksSubmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_submitted_total",
			Help:      "Tasks accepted by the scheduler by kind",
		}, []string{"kind"}),
		tasksFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_failed_total",
			Help:      "Task bodies that returned an error or panicked",
		}, []string{"kind"}),
		tasksRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_rejected_total",
			Help:      "Submissions refused by the scheduler",
		}, []string{"kind"}),
		scheduledSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scheduled_skipped_total",
			Help:      "Scheduled firings skipped because no clients were connected",
		}, []string{"task"}),
		framesAdvanced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "animation_frames_advanced_total",
			Help:      "Animation play head moves",
		}),
		refreshClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "refresh_clients",
			Help:      "Clients processed by the last full refresh",
		}),
		refreshDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "refresh_duration_seconds",
			Help:      "Duration of full refresh passes",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		}),
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "The total number of HTTP requests",
		}, []string{"method", "endpoint", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: "http_request_duration_seconds",
			Help: "The HTTP request latencies in seconds",
		}, []string{"method", "endpoint"}),
	}

	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.cacheLookups,
		r.cacheEvictions,
		r.diffDecisions,
		r.tasksSubmitted,
		r.tasksFailed,
		r.tasksRejected,
		r.scheduledSkipped,
		r.framesAdvanced,
		r.refreshClients,
		r.refreshDuration,
		r.requestsTotal,
		r.requestDuration,
	)
	return r
}

// Registry exposes the underlying registry, mainly for tests.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// RequestsTotal returns the HTTP request counter for middleware use
func (r *Recorder) RequestsTotal() *prometheus.CounterVec { return r.requestsTotal }

// RequestDuration returns the HTTP latency histogram for middleware use
func (r *Recorder) RequestDuration() *prometheus.HistogramVec { return r.requestDuration }

func (r *Recorder) CacheLookup(cacheName, outcome string) {
	r.cacheLookups.WithLabelValues(cacheName, outcome).Inc()
}

func (r *Recorder) CacheEvicted(cacheName string, count int) {
	if count > 0 {
		r.cacheEvictions.WithLabelValues(cacheName).Add(float64(count))
	}
}

func (r *Recorder) DiffDecision(applied bool) {
	decision := "skipped"
	if applied {
		decision = "applied"
	}
	r.diffDecisions.WithLabelValues(decision).Inc()
}

func (r *Recorder) TaskSubmitted(kind string) { r.tasksSubmitted.WithLabelValues(kind).Inc() }
func (r *Recorder) TaskFailed(kind string)    { r.tasksFailed.WithLabelValues(kind).Inc() }
func (r *Recorder) TaskRejected(kind string)  { r.tasksRejected.WithLabelValues(kind).Inc() }

func (r *Recorder) ScheduledSkipped(name string) {
	r.scheduledSkipped.WithLabelValues(name).Inc()
}

func (r *Recorder) AnimationsAdvanced(count int) {
	if count > 0 {
		r.framesAdvanced.Add(float64(count))
	}
}

func (r *Recorder) RefreshCompleted(clients int, seconds float64) {
	r.refreshClients.Set(float64(clients))
	r.refreshDuration.Observe(seconds)
}
