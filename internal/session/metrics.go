package session

//
// metrics.go
// Copyright (C) 2025 Karol Będkowski <Karol Będkowski@kkomp>
//
// Distributed under terms of the GPLv3 license.
//

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals
var (
	sessionsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "httpd_sessions_created_total",
		Help: "Number of created sessions.",
	})
	sessionsInvalidated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "httpd_sessions_invalidated_total",
		Help: "Number of explicitly invalidated sessions.",
	})
	sessionsExpired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "httpd_sessions_expired_total",
		Help: "Number of sessions removed after expiration.",
	})
)
