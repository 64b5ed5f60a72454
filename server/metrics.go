package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lpdash_http_requests_total",
		Help: "HTTP requests by route, method and status code.",
	}, []string{"route", "method", "code"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "lpdash_http_request_duration_seconds",
		Help:    "HTTP request latency by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method"})

	rateLimitedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lpdash_http_rate_limited_total",
		Help: "Requests rejected by the per-identity rate limiter.",
	})

	eventClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lpdash_event_clients",
		Help: "Connected live-event websocket clients.",
	})

	eventDrops = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lpdash_event_drops_total",
		Help: "Live events dropped because a client or the hub queue was full.",
	})
)
