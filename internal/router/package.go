package router

//
// package.go
// Copyright (C) 2025 Karol Będkowski <Karol Będkowski@kkomp>
//
// Distributed under terms of the GPLv3 license.
//

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"github.com/samber/do/v2"
	"gitlab.com/kabes/go-httpd/internal/config"
	"gitlab.com/kabes/go-httpd/internal/web"
)

//nolint:gochecknoglobals
var Package = do.Package(
	do.Lazy(NewRouterI),
)

func NewRouterI(i do.Injector) (*Router, error) {
	cfg := do.MustInvoke[*config.ServerConf](i)

	return NewDefault(cfg), nil
}

// NewDefault create router for configured mode with built-in routes.
func NewDefault(cfg *config.ServerConf) *Router {
	var renderer web.Renderer
	if cfg.WebRoot != "" {
		renderer = web.NewTemplateRenderer(cfg.WebRoot)
	}

	rtr := New(NewFallback(cfg.RouterMode, cfg.WebRoot, renderer))
	rtr.Get("/ping", Ping)
	rtr.Get("/session", SessionInfo)
	rtr.Post("/session/invalidate", SessionInvalidate)

	if cfg.EnableMetrics {
		rtr.Get("/metrics", NewMetricsHandler(cfg, prometheus.DefaultGatherer))
	}

	if cfg.DebugFlags.HasFlag(config.DebugRouter) {
		for _, route := range rtr.Routes() {
			log.Logger.Debug().Msgf("Router: ROUTE: %s", route)
		}
	}

	return rtr
}
