// Package metrics holds the gateway's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// UnknownAction labels requests whose action never resolved.
const UnknownAction = "unknown"

var (
	Requests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "action_gateway_requests_total",
		Help: "Dispatched requests, labelled by method, resolved action and outcome.",
	}, []string{"method", "action", "outcome"})

	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "action_gateway_request_duration_ms",
		Help:    "Dispatch latency in milliseconds.",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 10000},
	}, []string{"method"})

	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "action_gateway_cache_lookups_total",
		Help: "Cache reads by cache-backed lookups, labelled by namespace and result (hit, miss, corrupt).",
	}, []string{"namespace", "result"})

	UpstreamCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "action_gateway_upstream_calls_total",
		Help: "External calls made on cache misses, labelled by namespace and status (ok, error).",
	}, []string{"namespace", "status"})

	RateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "action_gateway_rate_limited_total",
		Help: "Requests rejected by the per-client rate limiter.",
	})

	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "action_gateway_events_published_total",
		Help: "Audit events handed to the publisher, labelled by status (ok, error).",
	}, []string{"status"})
)
