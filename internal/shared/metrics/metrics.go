package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// QuotesTotal counts computed quotes by strategy and outcome
	QuotesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricing_quotes_total",
			Help: "Total number of price quotes computed",
		},
		[]string{"strategy", "status"},
	)

	// QuoteDuration observes end-to-end quote computation latency
	QuoteDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pricing_quote_duration_seconds",
			Help:    "Quote computation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"strategy"},
	)

	// QuoteAmount observes the distribution of final pre-tax quote amounts
	QuoteAmount = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pricing_quote_amount_ht",
			Help:    "Final pre-tax quote amount distribution",
			Buckets: []float64{10, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		},
		[]string{"strategy", "currency"},
	)

	// RuleCacheHits counts rule-list cache hits and misses
	RuleCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricing_rule_cache_total",
			Help: "Rule cache lookups by result",
		},
		[]string{"result"},
	)

	// HTTPRequestsTotal counts HTTP requests by route and status
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPRequestDuration observes HTTP request latency
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// EventsPublished counts quote events by outcome
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricing_events_published_total",
			Help: "Quote events published to the broker",
		},
		[]string{"status"},
	)
)
