package sqldb

//
// sqldb.go
// Copyright (C) 2025 Karol Będkowski <Karol Będkowski@kkomp>
//
// Distributed under terms of the GPLv3 license.
//

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"gitlab.com/kabes/go-httpd/internal/aerr"
	"gitlab.com/kabes/go-httpd/internal/common"
	"gitlab.com/kabes/go-httpd/internal/config"
	"gitlab.com/kabes/go-httpd/internal/db"
	"gitlab.com/kabes/go-httpd/internal/session"
)

// neverExpires is stored in expires_at for sessions with negative ttl.
const neverExpires = int64(math.MaxInt64)

const upsertSQL = "INSERT INTO sessions(id, data, created_at, last_accessed, expires_at) VALUES (?, ?, ?, ?, ?) " +
	"ON CONFLICT(id) DO UPDATE SET data=excluded.data, last_accessed=excluded.last_accessed, " +
	"expires_at=excluded.expires_at"

// Storage keep sessions in sql database (sqlite or postgresql).
type Storage struct {
	db     *db.Database
	dbconf config.DBConfig
}

func New(database *db.Database, dbconf config.DBConfig) *Storage {
	return &Storage{db: database, dbconf: dbconf}
}

// Initialize connect to database (when not connected yet) and create schema.
func (s *Storage) Initialize(ctx context.Context) error {
	if s.db.IsConnected() {
		return nil
	}

	if !s.dbconf.IsPostgres() && s.dbconf.Connstr != ":memory:" {
		dir := filepath.Dir(s.dbconf.Connstr)
		if err := os.MkdirAll(dir, 0o700); err != nil { //nolint:mnd
			return aerr.Wrapf(err, "create session database directory failed").WithMeta("dir", dir)
		}
	}

	if err := s.db.Connect(ctx, s.dbconf); err != nil {
		return aerr.Wrapf(err, "connect to session database failed")
	}

	if err := s.db.Migrate(ctx); err != nil {
		return aerr.Wrapf(err, "prepare session database failed")
	}

	log.Ctx(ctx).Debug().Msgf("sqldb.Storage: initialized driver=%s", s.dbconf.Driver)

	return nil
}

// Save insert or update session.
func (s *Storage) Save(ctx context.Context, sess *session.Session) error {
	log.Ctx(ctx).Debug().Str(common.LogKeySessionID, sess.ID()).
		Msgf("sqldb.Storage: save session session_id=%s", sess.ID())

	data, err := sess.MarshalBinary()
	if err != nil {
		return aerr.Wrapf(err, "encode session failed").WithMeta("sid", sess.ID())
	}

	expiresAt := neverExpires
	if exp := sess.ExpiresAt(); !exp.IsZero() {
		expiresAt = exp.UnixMilli()
	}

	return db.InTransaction(ctx, s.db, func(dbctx db.Interface) error {
		_, err := dbctx.ExecContext(ctx, dbctx.Rebind(upsertSQL),
			sess.ID(), data, sess.CreationTime().UnixMilli(), sess.LastAccessedTime().UnixMilli(), expiresAt)
		if err != nil {
			return aerr.ApplyFor(aerr.ErrDatabase, err, "upsert session failed").WithMeta("sid", sess.ID())
		}

		return nil
	})
}

// Load return not expired session.
func (s *Storage) Load(ctx context.Context, id string) (*session.Session, error) {
	logger := log.Ctx(ctx)
	logger.Debug().Str(common.LogKeySessionID, id).Msgf("sqldb.Storage: load session session_id=%s", id)

	data, err := db.InConnectionR(ctx, s.db, func(dbctx db.Interface) ([]byte, error) {
		var data []byte

		err := dbctx.GetContext(ctx, &data,
			dbctx.Rebind("SELECT data FROM sessions WHERE id=? AND expires_at > ?"),
			id, time.Now().UnixMilli())

		return data, err //nolint:wrapcheck
	})

	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, session.ErrNotFound
	case err != nil:
		return nil, aerr.ApplyFor(aerr.ErrDatabase, err, "select session failed").WithMeta("sid", id)
	}

	sess, err := session.Decode(data)
	if err != nil {
		logger.Warn().Err(err).Str(common.LogKeySessionID, id).
			Msgf("sqldb.Storage: corrupted session session_id=%s error=%q", id, err)

		return nil, session.ErrNotFound
	}

	return sess, nil
}

func (s *Storage) Delete(ctx context.Context, id string) error {
	log.Ctx(ctx).Debug().Str(common.LogKeySessionID, id).Msgf("sqldb.Storage: delete session session_id=%s", id)

	return db.InTransaction(ctx, s.db, func(dbctx db.Interface) error {
		_, err := dbctx.ExecContext(ctx, dbctx.Rebind("DELETE FROM sessions WHERE id=?"), id)
		if err != nil {
			return aerr.ApplyFor(aerr.ErrDatabase, err, "delete session failed").WithMeta("sid", id)
		}

		return nil
	})
}

// Cleanup delete expired sessions.
func (s *Storage) Cleanup(ctx context.Context) (int, error) {
	logger := log.Ctx(ctx)

	removed, err := db.InTransactionR(ctx, s.db, func(dbctx db.Interface) (int64, error) {
		res, err := dbctx.ExecContext(ctx, dbctx.Rebind("DELETE FROM sessions WHERE expires_at <= ?"),
			time.Now().UnixMilli())
		if err != nil {
			return 0, aerr.ApplyFor(aerr.ErrDatabase, err, "delete expired sessions failed")
		}

		affected, err := res.RowsAffected()
		if err != nil {
			return 0, aerr.ApplyFor(aerr.ErrDatabase, err, "delete expired sessions - get affected rows failed")
		}

		return affected, nil
	})
	if err != nil {
		return 0, err
	}

	logger.Debug().Msgf("sqldb.Storage: cleanup finished removed=%d", removed)

	return int(removed), nil
}

// Count return number of stored sessions (including expired).
func (s *Storage) Count(ctx context.Context) (int, error) {
	return db.InConnectionR(ctx, s.db, func(dbctx db.Interface) (int, error) {
		var total int

		if err := dbctx.GetContext(ctx, &total, "SELECT COUNT(*) FROM sessions"); err != nil {
			return 0, aerr.ApplyFor(aerr.ErrDatabase, err, "count sessions failed")
		}

		return total, nil
	})
}

// Shutdown do nothing; database is closed by its owner.
func (s *Storage) Shutdown(ctx context.Context) error {
	log.Ctx(ctx).Debug().Msg("sqldb.Storage: closed")

	return nil
}
