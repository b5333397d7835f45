// Package metrics declares the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "urst_http_requests_total",
		Help: "HTTP requests by route, method and status code",
	}, []string{"route", "method", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "urst_http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"route", "method"})

	LinksCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "urst_links_created_total",
		Help: "Short links inserted",
	})

	// result: found, not_found
	Redirects = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "urst_redirects_total",
		Help: "Short code resolutions",
	}, []string{"result"})

	// result: hit, miss
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "urst_cache_lookups_total",
		Help: "Link cache lookups",
	}, []string{"result"})

	// outcome: recorded, dropped, failed
	ClickEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "urst_click_events_total",
		Help: "Click increments by outcome",
	}, []string{"outcome"})

	CollisionRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "urst_collision_retries_total",
		Help: "Extra key attempts taken after a code collision",
	})

	LinksPurged = promauto.NewCounter(prometheus.CounterOpts{
		Name: "urst_links_purged_total",
		Help: "Expired links removed by cleanup",
	})

	RateLimited = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "urst_rate_limited_total",
		Help: "Requests rejected by the rate limiter",
	}, []string{"strategy"})
)
