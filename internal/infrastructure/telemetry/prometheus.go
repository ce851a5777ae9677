package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusRegistry holds the series scraped from /metrics
type PrometheusRegistry struct {
	registry *prometheus.Registry

	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	ledgerOps        *prometheus.CounterVec
	ledgerRejections *prometheus.CounterVec
	ledgerDuration   *prometheus.HistogramVec
	writeFailures    *prometheus.CounterVec
	auditFindings    prometheus.Gauge
	breakerState     *prometheus.GaugeVec
}

// NewPrometheusRegistry creates a private registry with Go and process collectors
func NewPrometheusRegistry(namespace string) *PrometheusRegistry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &PrometheusRegistry{
		registry: registry,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		ledgerOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_operations_total",
			Help:      "Ledger operations by outcome",
		}, []string{"operation", "outcome"}),
		ledgerRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_rejections_total",
			Help:      "Rejected ledger operations by error code",
		}, []string{"operation", "code"}),
		ledgerDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ledger_operation_duration_seconds",
			Help:      "Ledger operation duration in seconds",
			Buckets:   OperationDurationBuckets,
		}, []string{"operation"}),
		writeFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_write_through_failures_total",
			Help:      "Collection writes that failed after commit",
		}, []string{"collection"}),
		auditFindings: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ledger_audit_findings",
			Help:      "Findings reported by the last ledger audit",
		}),
		breakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "record_store_breaker_state",
			Help:      "Record store circuit breaker state (0 closed, 1 half-open, 2 open)",
		}, []string{"name"}),
	}

	registry.MustRegister(
		r.httpRequests,
		r.httpDuration,
		r.ledgerOps,
		r.ledgerRejections,
		r.ledgerDuration,
		r.writeFailures,
		r.auditFindings,
		r.breakerState,
	)
	return r
}

// Handler serves the registry in the Prometheus exposition format
func (r *PrometheusRegistry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Registry exposes the underlying registry, mainly for tests
func (r *PrometheusRegistry) Registry() *prometheus.Registry {
	return r.registry
}

// RecordHTTPRequest records one served request
func (r *PrometheusRegistry) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	r.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	r.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// SetAuditFindings records the size of the latest audit report
func (r *PrometheusRegistry) SetAuditFindings(n int) {
	r.auditFindings.Set(float64(n))
}

// SetBreakerState records a breaker state transition
func (r *PrometheusRegistry) SetBreakerState(name string, state int) {
	r.breakerState.WithLabelValues(name).Set(float64(state))
}
