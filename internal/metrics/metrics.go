// Package metrics exposes Prometheus instruments for provider calls, HTTP
// requests, searches and stored promotions.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/coupn-app/coupn/internal/common"
	"github.com/coupn-app/coupn/internal/llm"
	"github.com/coupn-app/coupn/internal/model"
)

// Prometheus metric names.
const (
	MetricUpstreamCallsTotal     = "coupn_upstream_calls_total"
	MetricUpstreamCallSeconds    = "coupn_upstream_call_duration_seconds"
	MetricHTTPRequestsTotal      = "coupn_http_requests_total"
	MetricHTTPRequestSeconds     = "coupn_http_request_duration_seconds"
	MetricSearchesTotal          = "coupn_searches_total"
	MetricPromotionsStored       = "coupn_promotions_stored"
	MetricIngestedPromotionTotal = "coupn_ingested_promotions_total"
)

// Search outcomes.
const (
	SearchMatched = "matched"
	SearchEmpty   = "empty"
	SearchFailed  = "failed"
)

var promotionsStoredDesc = prometheus.NewDesc(
	MetricPromotionsStored,
	"Stored promotions by category",
	[]string{"category"},
	nil,
)

// CategoryCounter reports stored promotion counts.
type CategoryCounter interface {
	CategoryCounts(ctx context.Context) (map[model.Category]int, error)
}

// Metrics owns a registry and the application's instruments.
//
// Thread Safety: Safe for concurrent use by multiple goroutines.
type Metrics struct {
	registry         *prometheus.Registry
	upstreamCalls    *prometheus.CounterVec
	upstreamDuration *prometheus.HistogramVec
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	searches         *prometheus.CounterVec
	ingested         prometheus.Counter
}

// New creates instruments on a fresh registry, including Go runtime and
// process collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		upstreamCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricUpstreamCallsTotal,
			Help: "Outbound provider calls by provider, operation and outcome",
		}, []string{"provider", "op", "outcome"}),
		upstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    MetricUpstreamCallSeconds,
			Help:    "Outbound provider call latency",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"provider", "op"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricHTTPRequestsTotal,
			Help: "HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    MetricHTTPRequestSeconds,
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		searches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricSearchesTotal,
			Help: "Relevance searches by outcome",
		}, []string{"outcome"}),
		ingested: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricIngestedPromotionTotal,
			Help: "Promotions extracted from email and stored",
		}),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.upstreamCalls,
		m.upstreamDuration,
		m.httpRequests,
		m.httpDuration,
		m.searches,
		m.ingested,
	)

	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveCall implements llm.Observer.
func (m *Metrics) ObserveCall(provider, op string, elapsed time.Duration, err error) {
	m.upstreamCalls.WithLabelValues(provider, op, outcome(err)).Inc()
	m.upstreamDuration.WithLabelValues(provider, op).Observe(elapsed.Seconds())
}

// ObserveRequest records one served HTTP request.
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// ObserveSearch records a search outcome.
func (m *Metrics) ObserveSearch(outcome string) {
	m.searches.WithLabelValues(outcome).Inc()
}

// AddIngested counts promotions stored by an ingest run.
func (m *Metrics) AddIngested(n int) {
	if n > 0 {
		m.ingested.Add(float64(n))
	}
}

// RegisterStore exposes stored promotion counts, read on every scrape.
func (m *Metrics) RegisterStore(counter CategoryCounter) error {
	return m.registry.Register(&storeCollector{counter: counter})
}

// storeCollector reads promotion counts from storage on each scrape.
type storeCollector struct {
	counter CategoryCounter
}

// Describe sends the metric descriptor to the channel.
func (c *storeCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- promotionsStoredDesc
}

// Collect queries storage and emits one gauge per category.
func (c *storeCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	counts, err := c.counter.CategoryCounts(ctx)
	if err != nil {
		common.LogError(err, "failed to collect promotion metrics", common.Fields{"metric": MetricPromotionsStored})
		return
	}
	for category, count := range counts {
		ch <- prometheus.MustNewConstMetric(
			promotionsStoredDesc,
			prometheus.GaugeValue,
			float64(count),
			string(category),
		)
	}
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	switch llm.KindOf(err) {
	case llm.KindTransport:
		return "transport"
	case llm.KindTimeout:
		return "timeout"
	case llm.KindUpstreamStatus:
		return "upstream_status"
	case llm.KindMalformedResponse:
		return "malformed_response"
	case llm.KindContractViolation:
		return "contract_violation"
	case llm.KindConfiguration:
		return "configuration"
	default:
		return "error"
	}
}

var _ llm.Observer = (*Metrics)(nil)
