package config

//
// session.go
// Copyright (C) 2025 Karol Będkowski <Karol Będkowski@kkomp>
//
// Distributed under terms of the GPLv3 license.
//

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gitlab.com/kabes/go-httpd/internal/aerr"
	"gitlab.com/kabes/go-httpd/internal/cookie"
)

// StorageKind select where sessions are kept.
type StorageKind string

const (
	StorageMemory   = StorageKind("memory")
	StorageFile     = StorageKind("file")
	StorageSQLite   = StorageKind("sqlite")
	StoragePostgres = StorageKind("postgres")
)

const (
	DefaultSessionTTL      = 1800
	DefaultCleanupInterval = 120 * time.Second
	DefaultStoragePath     = ".sessions"
	DefaultCookieName      = "JSESSIONID"

	sqliteFileName = "sessions.db"
)

// SessionConf configure session storage, expiration and session cookie.
type SessionConf struct {
	Storage     StorageKind
	StoragePath string
	// DBConnstr is used only by postgres storage.
	DBConnstr string

	// DefaultTTL is max inactive interval for new sessions in seconds; negative = never expire.
	DefaultTTL      int
	CleanupInterval time.Duration

	CookieName     string
	CookieHTTPOnly bool
	CookieSecure   bool
	CookieSameSite cookie.SameSite
	CookiePath     string
	CookieDomain   string
}

// NewSessionConf return configuration with default values.
func NewSessionConf() SessionConf {
	return SessionConf{
		Storage:         StorageMemory,
		StoragePath:     DefaultStoragePath,
		DefaultTTL:      DefaultSessionTTL,
		CleanupInterval: DefaultCleanupInterval,
		CookieName:      DefaultCookieName,
		CookieHTTPOnly:  true,
		CookieSecure:    false,
		CookieSameSite:  cookie.SameSiteLax,
		CookiePath:      "/",
	}
}

func (c *SessionConf) Validate() error {
	switch c.Storage {
	case "":
		c.Storage = StorageMemory
	case StorageMemory:
	case StorageFile, StorageSQLite:
		if strings.TrimSpace(c.StoragePath) == "" {
			return aerr.ErrInvalidConf.WithUserMsg("session storage path can't be empty")
		}
	case StoragePostgres:
		if c.DBConnstr == "" {
			return aerr.ErrInvalidConf.WithUserMsg("missing database connection string for postgres session storage")
		}
	default:
		return aerr.ErrInvalidConf.WithUserMsg("invalid session storage %q", c.Storage)
	}

	if c.CleanupInterval <= 0 {
		return aerr.ErrInvalidConf.WithUserMsg("session cleanup interval must be positive")
	}

	if c.CookieName == "" || strings.ContainsAny(c.CookieName, "=;, \t\r\n") {
		return aerr.ErrInvalidConf.WithUserMsg("invalid session cookie name %q", c.CookieName)
	}

	if c.CookiePath == "" {
		c.CookiePath = "/"
	} else if !strings.HasPrefix(c.CookiePath, "/") {
		return aerr.ErrInvalidConf.WithUserMsg("session cookie path must start with '/'")
	}

	if c.CookieSameSite == cookie.SameSiteNone && !c.CookieSecure {
		return aerr.ErrInvalidConf.WithUserMsg("SameSite=None session cookie require secure flag")
	}

	return nil
}

// DBConfig return database configuration for sql based storages.
func (c *SessionConf) DBConfig() (DBConfig, bool) {
	switch c.Storage { //nolint:exhaustive
	case StorageSQLite:
		return NewDBConfig(DriverSQLite, filepath.Join(c.StoragePath, sqliteFileName)), true
	case StoragePostgres:
		return NewDBConfig(DriverPostgres, c.DBConnstr), true
	}

	return DBConfig{}, false
}

// NewCookie create session cookie according to configuration.
func (c *SessionConf) NewCookie(sessionID string) *cookie.Cookie {
	return cookie.New(c.CookieName, sessionID).
		WithPath(c.CookiePath).
		WithDomain(c.CookieDomain).
		WithHTTPOnly(c.CookieHTTPOnly).
		WithSecure(c.CookieSecure).
		WithSameSite(c.CookieSameSite)
}

func (c *SessionConf) MarshalZerologObject(event *zerolog.Event) {
	event.Str("storage", string(c.Storage)).
		Str("storage_path", c.StoragePath).
		Int("default_ttl", c.DefaultTTL).
		Dur("cleanup_interval", c.CleanupInterval).
		Str("cookie_name", c.CookieName).
		Bool("cookie_secure", c.CookieSecure).
		Str("cookie_samesite", c.CookieSameSite.String())
}
