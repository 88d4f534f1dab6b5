package config

//
// dbconfig.go
// Copyright (C) 2025 Karol Będkowski <Karol Będkowski@kkomp>
//
// Distributed under terms of the GPLv3 license.
//

import (
	"gitlab.com/kabes/go-httpd/internal/aerr"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "pgx"
)

type DBConfig struct {
	Driver  string
	Connstr string
}

func NewDBConfig(driver, connstr string) DBConfig {
	return DBConfig{
		Driver:  mapDriverName(driver),
		Connstr: connstr,
	}
}

func (d *DBConfig) Validate() error {
	if d.Connstr == "" {
		return aerr.New("database connection string can't be empty").WithTag(aerr.ValidationError)
	}

	if d.Driver == "" {
		return aerr.New("database driver can't be empty").WithTag(aerr.ValidationError)
	} else if d.Driver != DriverSQLite && d.Driver != DriverPostgres {
		return aerr.New("invalid (unsupported) database driver").WithTag(aerr.ValidationError).
			WithMeta("driver", d.Driver)
	}

	return nil
}

func (d *DBConfig) IsPostgres() bool {
	return d.Driver == DriverPostgres
}

func mapDriverName(driver string) string {
	switch driver {
	case "sqlite", "sqlite3":
		return DriverSQLite
	case "pg", "pgx", "postgresql", "postgres":
		return DriverPostgres
	}

	return driver
}
