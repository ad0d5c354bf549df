// Package metrics exposes queryrun's Prometheus metrics: HTTP request
// counts by status code, query outcomes, and query latency. Metrics
// are registered on a private registry and scraped via Handler.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Set holds the registered collectors for one server.
type Set struct {
	registry *prometheus.Registry

	httpRequests  *prometheus.CounterVec
	queries       *prometheus.CounterVec
	queryDuration prometheus.Histogram
}

// New creates and registers the metric set.
func New() *Set {
	reg := prometheus.NewRegistry()
	s := &Set{
		registry: reg,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "queryrun_http_requests_total",
			Help: "HTTP requests served, by status code.",
		}, []string{"code"}),
		queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "queryrun_queries_total",
			Help: "Query runs, by outcome.",
		}, []string{"status"}),
		queryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "queryrun_query_duration_seconds",
			Help:    "Wall time of query runs.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(s.httpRequests, s.queries, s.queryDuration)
	return s
}

// ObserveHTTP records one served HTTP request.
func (s *Set) ObserveHTTP(code int) {
	s.httpRequests.With(prometheus.Labels{"code": strconv.Itoa(code)}).Inc()
}

// ObserveQuery records one query run and its duration. ok means the
// response carried no errors.
func (s *Set) ObserveQuery(ok bool, d time.Duration) {
	status := "ok"
	if !ok {
		status = "error"
	}
	s.queries.With(prometheus.Labels{"status": status}).Inc()
	s.queryDuration.Observe(d.Seconds())
}

// Handler returns the scrape endpoint for this set.
func (s *Set) Handler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
}
