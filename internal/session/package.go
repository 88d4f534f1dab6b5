package session

//
// package.go
// Copyright (C) 2025 Karol Będkowski <Karol Będkowski@kkomp>
//
// Distributed under terms of the GPLv3 license.
//

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/samber/do/v2"
	"gitlab.com/kabes/go-httpd/internal/config"
)

//nolint:gochecknoglobals
var Package = do.Package(
	do.Lazy(NewManagerI),
)

func NewManagerI(i do.Injector) (*Manager, error) {
	storage := do.MustInvoke[Storage](i)
	conf := do.MustInvoke[*config.SessionConf](i)

	return NewManager(log.Logger.WithContext(context.Background()), storage, *conf)
}
