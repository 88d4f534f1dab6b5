package cli

//
// serve.go
// Copyright (C) 2025 Karol Będkowski <Karol Będkowski@kkomp>
//
// Distributed under terms of the GPLv3 license.
//
import (
	"context"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Merovius/systemd"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/samber/do/v2"
	"github.com/urfave/cli/v3"
	"gitlab.com/kabes/go-httpd/internal/aerr"
	"gitlab.com/kabes/go-httpd/internal/config"
	"gitlab.com/kabes/go-httpd/internal/db"
	"gitlab.com/kabes/go-httpd/internal/router"
	"gitlab.com/kabes/go-httpd/internal/server"
	"gitlab.com/kabes/go-httpd/internal/session"
)

func newStartServerCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "start server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "address",
				Value:   ":8000",
				Usage:   "listen address",
				Aliases: []string{"a"},
				Sources: cli.EnvVars("GOHTTPD_SERVER_ADDRESS"),
				Config:  cli.StringConfig{TrimSpace: true},
			},
			&cli.StringFlag{
				Name:      "web-root",
				Value:     ".",
				Usage:     "directory with served files",
				Aliases:   []string{"w"},
				Sources:   cli.EnvVars("GOHTTPD_SERVER_WEBROOT"),
				Config:    cli.StringConfig{TrimSpace: true},
				TakesFile: true,
			},
			&cli.IntFlag{
				Name:    "workers",
				Value:   config.DefaultWorkers,
				Usage:   "number of connection handling workers",
				Sources: cli.EnvVars("GOHTTPD_SERVER_WORKERS"),
			},
			&cli.DurationFlag{
				Name:    "read-timeout",
				Value:   config.DefaultReadTimeout,
				Usage:   "max time of waiting for request on connection",
				Sources: cli.EnvVars("GOHTTPD_SERVER_READ_TIMEOUT"),
			},
			&cli.DurationFlag{
				Name:    "shutdown-timeout",
				Value:   config.DefaultShutdownTimeout,
				Usage:   "max time of waiting for open connections on shutdown",
				Sources: cli.EnvVars("GOHTTPD_SERVER_SHUTDOWN_TIMEOUT"),
			},
			&cli.StringFlag{
				Name:    "router",
				Value:   string(config.RouterStatic),
				Usage:   "handling of requests not matching any route (static, api, hybrid)",
				Sources: cli.EnvVars("GOHTTPD_SERVER_ROUTER"),
				Config:  cli.StringConfig{TrimSpace: true},
			},
			&cli.BoolFlag{
				Name:    "enable-metrics",
				Usage:   "enable prometheus metrics (/metrics endpoint)",
				Sources: cli.EnvVars("GOHTTPD_SERVER_METRICS"),
			},
			&cli.StringFlag{
				Name:    "metrics-access-list",
				Value:   "",
				Usage:   "list of ip or networks separated by ',' allowed to read metrics.",
				Sources: cli.EnvVars("GOHTTPD_SERVER_METRICS_ACCESS_LIST"),
				Config:  cli.StringConfig{TrimSpace: true},
			},
		},
		Action: wrap(startServerCmd),
	}
}

func startServerCmd(ctx context.Context, clicmd *cli.Command, rootInjector do.Injector) error {
	injector := rootInjector.Scope("server",
		router.Package,
		server.Package,
	)

	serverConf := config.ServerConf{
		Address:           clicmd.String("address"),
		WebRoot:           strings.TrimSuffix(clicmd.String("web-root"), "/"),
		Workers:           int(clicmd.Int("workers")),
		ReadTimeout:       clicmd.Duration("read-timeout"),
		ShutdownTimeout:   clicmd.Duration("shutdown-timeout"),
		RouterMode:        config.RouterMode(strings.ToLower(clicmd.String("router"))),
		DebugFlags:        config.NewDebugFLags(clicmd.String("debug")),
		EnableMetrics:     clicmd.Bool("enable-metrics"),
		MetricsAccessList: clicmd.String("metrics-access-list"),
	}

	if serverConf.WebRoot == "" {
		serverConf.WebRoot = "/"
	}

	if err := serverConf.Validate(); err != nil {
		return aerr.Wrapf(err, "server config validation failed")
	}

	do.ProvideValue(injector, &serverConf)

	s := Server{}

	return s.start(ctx, injector, &serverConf)
}

type Server struct{}

func (s *Server) start(ctx context.Context, injector do.Injector, cfg *config.ServerConf) error {
	logger := log.Ctx(ctx)
	logger.Log().Object("build", config.BuildInfo()).Msg("Starting go-httpd...")
	logger.Debug().Msgf("Server: debug_flags=%q", cfg.DebugFlags)

	s.startSystemdWatchdog(logger)

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	sessions := do.MustInvoke[*session.Manager](injector)
	s.registerDBMetrics(injector, cfg)

	srv := do.MustInvoke[*server.Server](injector)
	if err := srv.Start(ctx); err != nil {
		logger.Error().Err(err).Msgf("start server failed error=%q", err)

		return aerr.Wrapf(err, "failed start server").WithUserMsg("can't start server")
	}

	sessions.Start(ctx)

	systemd.NotifyReady()           //nolint:errcheck
	systemd.NotifyStatus("running") //nolint:errcheck

	<-ctx.Done()

	logger.Log().Msg("Server: shutting down...")
	systemd.NotifyStatus("stopping") //nolint:errcheck

	return nil
}

func (*Server) startSystemdWatchdog(logger *zerolog.Logger) {
	if ok, dur, err := systemd.AutoWatchdog(); ok {
		logger.Info().Msgf("Systemd: autowatchdog started; duration=%s", dur)
	} else if err != nil {
		logger.Warn().Err(err).Msgf("Systemd: autowatchdog start error=%q", err)
	}
}

// registerDBMetrics enable database statistics when sessions are kept in sql database.
func (*Server) registerDBMetrics(injector do.Injector, cfg *config.ServerConf) {
	if !cfg.EnableMetrics {
		return
	}

	sessConf := do.MustInvoke[*config.SessionConf](injector)
	if _, ok := sessConf.DBConfig(); !ok {
		return
	}

	database := do.MustInvoke[*db.Database](injector)
	if database.IsConnected() {
		database.RegisterMetrics(cfg.DebugFlags.HasFlag(config.DebugDBQueryMetrics))
	}
}
