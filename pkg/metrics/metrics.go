package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Request metrics
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "linkly_request_duration_seconds",
			Help:    "Request duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "status"},
	)

	RequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linkly_requests_total",
			Help: "Total number of requests",
		},
		[]string{"method", "status"},
	)

	// Domain metrics
	LinksCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "linkly_links_created_total",
			Help: "Total number of links created",
		},
	)

	RedirectTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linkly_redirects_total",
			Help: "Total number of redirect resolutions by outcome",
		},
		[]string{"outcome"}, // "success", "not_found", "gone"
	)
)
