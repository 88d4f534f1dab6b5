package cli

//
// common.go
// Copyright (C) 2025 Karol Będkowski <Karol Będkowski@kkomp>
//
// Distributed under terms of the GPLv3 license.
//

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/samber/do/v2"
	"github.com/urfave/cli/v3"
	"gitlab.com/kabes/go-httpd/internal/config"
	"gitlab.com/kabes/go-httpd/internal/db"
	"gitlab.com/kabes/go-httpd/internal/infra"
	"gitlab.com/kabes/go-httpd/internal/session"
)

func wrap(
	cmdfunc func(ctx context.Context, clicmd *cli.Command, i do.Injector) error,
) func(ctx context.Context, clicmd *cli.Command) error {
	return func(ctx context.Context, clicmd *cli.Command) error {
		if err := initializeLogger(clicmd.String("log.level"), clicmd.String("log.format")); err != nil {
			return err
		}

		ctx = log.Logger.WithContext(ctx)

		sessConf, err := sessionConfFromCmd(clicmd)
		if err != nil {
			return err
		}

		injector := createInjector(ctx)
		do.ProvideValue(injector, sessConf)

		debugFlags := config.NewDebugFLags(clicmd.String("debug"))
		if debugFlags.HasFlag(config.DebugDo) {
			enableDoDebug(ctx, injector)
		}

		defer shutdownInjector(ctx, injector)

		return cmdfunc(ctx, clicmd, injector)
	}
}

func createInjector(ctx context.Context) do.Injector {
	injector := do.New(
		db.Package,
		infra.Package,
		session.Package,
	)

	logger := log.Ctx(ctx)
	logger.Debug().Msgf("Injector: available services: %v", injector.ListProvidedServices())

	return injector
}

func enableDoDebug(ctx context.Context, injector do.Injector) {
	explanation := do.ExplainInjector(injector)
	log.Ctx(ctx).Debug().Msgf("Injector: %s", explanation.String())
}

func shutdownInjector(ctx context.Context, injector do.Injector) {
	logger := log.Ctx(ctx)
	logger.Debug().Msg("Injector: shutdown services...")

	if report := injector.ShutdownWithContext(ctx); report != nil && !report.Succeed {
		logger.Error().Msgf("Injector: shutdown services error=%q", report.Error())
	}
}
