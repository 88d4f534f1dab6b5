package infra

//
// package.go
// Copyright (C) 2025 Karol Będkowski <Karol Będkowski@kkomp>
//
// Distributed under terms of the GPLv3 license.
//

import (
	"github.com/samber/do/v2"
	"gitlab.com/kabes/go-httpd/internal/aerr"
	"gitlab.com/kabes/go-httpd/internal/config"
	"gitlab.com/kabes/go-httpd/internal/db"
	"gitlab.com/kabes/go-httpd/internal/infra/file"
	"gitlab.com/kabes/go-httpd/internal/infra/memory"
	"gitlab.com/kabes/go-httpd/internal/infra/sqldb"
	"gitlab.com/kabes/go-httpd/internal/session"
)

// Package provide session.Storage selected by config.SessionConf.
var Package = do.Package(
	do.Lazy(NewStorage),
)

func NewStorage(i do.Injector) (session.Storage, error) {
	conf := do.MustInvoke[*config.SessionConf](i)

	switch conf.Storage {
	case config.StorageMemory:
		return memory.New(), nil
	case config.StorageFile:
		return file.New(conf.StoragePath), nil
	case config.StorageSQLite, config.StoragePostgres:
		dbconf, _ := conf.DBConfig()

		return sqldb.New(do.MustInvoke[*db.Database](i), dbconf), nil
	}

	return nil, aerr.ErrInvalidConf.WithUserMsg("unsupported session storage %q", conf.Storage)
}
