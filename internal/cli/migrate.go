package cli

//
// migrate.go
// Copyright (C) 2025 Karol Będkowski <Karol Będkowski@kkomp>
//
// Distributed under terms of the GPLv3 license.
//

import (
	"context"
	"fmt"

	"github.com/samber/do/v2"
	"github.com/urfave/cli/v3"
	"gitlab.com/kabes/go-httpd/internal/aerr"
	"gitlab.com/kabes/go-httpd/internal/config"
	"gitlab.com/kabes/go-httpd/internal/db"
)

func newMigrateCmd() *cli.Command {
	return &cli.Command{
		Name:   "migrate",
		Usage:  "create or update session database",
		Action: wrap(migrateCmd),
	}
}

func migrateCmd(ctx context.Context, _ *cli.Command, injector do.Injector) error {
	database, err := connectSessionDB(ctx, injector)
	if err != nil {
		return err
	}

	if err := database.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate error: %w", err)
	}

	//nolint:forbidigo
	fmt.Println("Migration finished")

	return nil
}

func newMaintenanceCmd() *cli.Command {
	return &cli.Command{
		Name:   "maintenance",
		Usage:  "maintenance session database",
		Action: wrap(maintenanceCmd),
	}
}

func maintenanceCmd(ctx context.Context, _ *cli.Command, injector do.Injector) error {
	database, err := connectSessionDB(ctx, injector)
	if err != nil {
		return err
	}

	if err := database.Maintenance(ctx); err != nil {
		return fmt.Errorf("maintenance error: %w", err)
	}

	//nolint:forbidigo
	fmt.Println("Done")

	return nil
}

func connectSessionDB(ctx context.Context, injector do.Injector) (*db.Database, error) {
	sessConf := do.MustInvoke[*config.SessionConf](injector)

	dbconf, ok := sessConf.DBConfig()
	if !ok {
		return nil, aerr.ErrInvalidConf.WithUserMsg("session storage %q not use database", sessConf.Storage)
	}

	database := do.MustInvoke[*db.Database](injector)
	if err := database.Connect(ctx, dbconf); err != nil {
		return nil, aerr.Wrapf(err, "connect to database failed")
	}

	return database, nil
}
