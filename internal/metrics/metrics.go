// Package metrics exposes validation telemetry as Prometheus collectors.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "csdlc"

// Metrics implements compliance.Recorder.
type Metrics struct {
	registry *prometheus.Registry

	ruleRuns      *prometheus.CounterVec
	ruleDuration  *prometheus.HistogramVec
	validations   *prometheus.CounterVec
	validationDur *prometheus.HistogramVec
	timeouts      *prometheus.CounterVec
	files         *prometheus.CounterVec
	fileDuration  prometheus.Histogram
	graphNodes    prometheus.Gauge
	graphEdges    prometheus.Gauge
	graphCycles   prometheus.Counter
	cacheLookups  *prometheus.CounterVec

	httpDuration *prometheus.HistogramVec
	httpRequests *prometheus.CounterVec
}

// New creates the collectors on a private registry, together with the Go and
// process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ruleRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rule_executions_total",
			Help:      "Rule executions by rule and outcome.",
		}, []string{"rule", "passed"}),
		ruleDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rule_duration_seconds",
			Help:      "Duration of rule executions.",
			Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1},
		}, []string{"rule"}),
		validations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validations_total",
			Help:      "Engine runs by strategy and verdict.",
		}, []string{"strategy", "valid"}),
		validationDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "validation_duration_seconds",
			Help:      "Duration of engine runs.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"strategy"}),
		timeouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validation_timeouts_total",
			Help:      "Engine runs that hit the processing time bound.",
		}, []string{"strategy"}),
		files: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_validated_total",
			Help:      "Validated files by verdict.",
		}, []string{"compliant"}),
		fileDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "file_duration_seconds",
			Help:      "Per-file validation time.",
			Buckets:   prometheus.DefBuckets,
		}),
		graphNodes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "graph_nodes",
			Help:      "Nodes in the last dependency graph built.",
		}),
		graphEdges: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "graph_edges",
			Help:      "Edges in the last dependency graph built.",
		}),
		graphCycles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "graph_cycles_total",
			Help:      "Circular references detected.",
		}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Result cache lookups by outcome.",
		}, []string{"result"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"path", "method", "status"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"path", "method", "status"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.ruleRuns, m.ruleDuration,
		m.validations, m.validationDur, m.timeouts,
		m.files, m.fileDuration,
		m.graphNodes, m.graphEdges, m.graphCycles,
		m.cacheLookups,
		m.httpDuration, m.httpRequests,
	)
	return m
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) RuleExecuted(rule string, passed bool, d time.Duration) {
	m.ruleRuns.WithLabelValues(rule, strconv.FormatBool(passed)).Inc()
	m.ruleDuration.WithLabelValues(rule).Observe(d.Seconds())
}

func (m *Metrics) ValidationFinished(strategy string, valid bool, d time.Duration) {
	m.validations.WithLabelValues(strategy, strconv.FormatBool(valid)).Inc()
	m.validationDur.WithLabelValues(strategy).Observe(d.Seconds())
}

func (m *Metrics) ValidationTimedOut(strategy string) {
	m.timeouts.WithLabelValues(strategy).Inc()
}

func (m *Metrics) FileValidated(compliant bool, d time.Duration) {
	m.files.WithLabelValues(strconv.FormatBool(compliant)).Inc()
	m.fileDuration.Observe(d.Seconds())
}

func (m *Metrics) GraphBuilt(nodes, edges, cycles int) {
	m.graphNodes.Set(float64(nodes))
	m.graphEdges.Set(float64(edges))
	m.graphCycles.Add(float64(cycles))
}

func (m *Metrics) CacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// Middleware records request rate, errors and duration per route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		path := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			path = rc.RoutePattern()
		}
		status := strconv.Itoa(ww.Status())
		m.httpDuration.WithLabelValues(path, r.Method, status).Observe(time.Since(start).Seconds())
		m.httpRequests.WithLabelValues(path, r.Method, status).Inc()
	})
}
