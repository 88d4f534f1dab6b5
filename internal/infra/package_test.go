package infra

//
// package_test.go
// Copyright (C) 2025 Karol Będkowski <Karol Będkowski@kkomp>
//
// Distributed under terms of the GPLv3 license.
//

import (
	"fmt"
	"testing"

	"github.com/samber/do/v2"
	"gitlab.com/kabes/go-httpd/internal/assert"
	"gitlab.com/kabes/go-httpd/internal/config"
	"gitlab.com/kabes/go-httpd/internal/db"
	"gitlab.com/kabes/go-httpd/internal/infra/file"
	"gitlab.com/kabes/go-httpd/internal/infra/memory"
	"gitlab.com/kabes/go-httpd/internal/infra/sqldb"
	"gitlab.com/kabes/go-httpd/internal/session"
)

func TestNewStorage(t *testing.T) {
	tests := []struct {
		kind     config.StorageKind
		expected string
	}{
		{config.StorageMemory, fmt.Sprintf("%T", &memory.Storage{})},
		{config.StorageFile, fmt.Sprintf("%T", &file.Storage{})},
		{config.StorageSQLite, fmt.Sprintf("%T", &sqldb.Storage{})},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			conf := config.NewSessionConf()
			conf.Storage = tt.kind
			conf.StoragePath = t.TempDir()

			i := do.New(Package, db.Package)
			do.ProvideValue(i, &conf)

			storage, err := do.Invoke[session.Storage](i)
			assert.NoErr(t, err)
			assert.Equal(t, fmt.Sprintf("%T", storage), tt.expected)
		})
	}
}
