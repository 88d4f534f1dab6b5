package server

//
// instrumentation.go
// Copyright (C) 2025 Karol Będkowski <Karol Będkowski@kkomp>
//
// Distributed under terms of the GPLv3 license.
//

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals
var (
	connectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "httpd_connections_total",
		Help: "Tracks the number of accepted connections.",
	})
	connectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "httpd_connections_active",
		Help: "A gauge of connections currently handled by workers.",
	})
	connectionsQueued = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "httpd_connections_queued",
		Help: "A gauge of accepted connections waiting for free worker.",
	})
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Tracks the number of HTTP requests.",
		}, []string{"method", "code"},
	)
	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Tracks the latencies for HTTP requests.",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "code"},
	)
	requestSize = promauto.NewSummaryVec(
		prometheus.SummaryOpts{
			Name: "http_request_size_bytes",
			Help: "Tracks the size of HTTP requests body.",
		},
		[]string{"method", "code"},
	)
	responseSize = promauto.NewSummaryVec(
		prometheus.SummaryOpts{
			Name: "http_response_size_bytes",
			Help: "Tracks the size of HTTP responses body.",
		},
		[]string{"method", "code"},
	)
	badRequestsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "httpd_bad_requests_total",
		Help: "Tracks the number of requests rejected by parser.",
	})
)

func observeRequest(method string, code int, reqSize, respSize int, start time.Time) {
	labels := prometheus.Labels{"method": method, "code": strconv.Itoa(code)}

	requestsTotal.With(labels).Inc()
	requestDuration.With(labels).Observe(time.Since(start).Seconds())
	requestSize.With(labels).Observe(float64(reqSize))
	responseSize.With(labels).Observe(float64(respSize))
}
