package db

//
// db.go
// Copyright (C) 2025 Karol Będkowski <Karol Będkowski@kkomp>
//
// Distributed under terms of the GPLv3 license.
//

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"runtime"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
	"github.com/samber/do/v2"
	"gitlab.com/kabes/go-httpd/internal/aerr"
	"gitlab.com/kabes/go-httpd/internal/config"

	// database drivers.
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed "migrations/sqlite/*.sql" "migrations/postgres/*.sql"
var embedMigrations embed.FS

type Database struct {
	db     *sqlx.DB
	driver string

	queryDuration *prometheus.HistogramVec
}

func NewDatabaseI(_ do.Injector) (*Database, error) {
	return &Database{}, nil
}

func (r *Database) Connect(ctx context.Context, dbconf config.DBConfig) error {
	if err := dbconf.Validate(); err != nil {
		return aerr.ApplyFor(aerr.ErrInvalidConf, err, "invalid database configuration")
	}

	connstr := dbconf.Connstr

	if !dbconf.IsPostgres() {
		var err error

		// add some required parameters to connstr
		connstr, err = prepareSqliteConnstr(connstr)
		if err != nil {
			return err
		}
	}

	logger := log.Ctx(ctx)
	logger.Info().Msgf("DB: connecting to %q %q", dbconf.Driver, connstr)

	var err error

	r.driver = dbconf.Driver

	r.db, err = sqlx.Open(dbconf.Driver, connstr)
	if err != nil {
		return aerr.Wrapf(err, "open database failed").WithTag(aerr.InternalError).WithMeta("connstr", connstr)
	}

	r.db.SetConnMaxIdleTime(30 * time.Second) //nolint:mnd
	r.db.SetConnMaxLifetime(60 * time.Second) //nolint:mnd
	r.db.SetMaxIdleConns(1)

	if connstr == sqliteMemory {
		// each connection to :memory: open separate database
		r.db.SetMaxOpenConns(1)
		r.db.SetConnMaxLifetime(0)
		r.db.SetConnMaxIdleTime(0)
	} else {
		r.db.SetMaxOpenConns(10) //nolint:mnd
	}

	if err := r.onConnect(ctx, r.db); err != nil {
		return aerr.Wrapf(err, "call startup scripts error").WithTag(aerr.InternalError)
	}

	if err := r.db.PingContext(ctx); err != nil {
		return aerr.Wrapf(err, "ping database failed").WithTag(aerr.InternalError)
	}

	return nil
}

// IsConnected return true when Connect was called.
func (r *Database) IsConnected() bool {
	return r.db != nil
}

func (r *Database) RegisterMetrics(queryTime bool) {
	// gather stats from database
	if err := prometheus.DefaultRegisterer.Register(collectors.NewDBStatsCollector(r.db.DB, "sessions")); err != nil {
		log.Logger.Warn().Err(err).Msgf("DB: register db stats collector error=%q", err)
	}

	if queryTime {
		r.queryDuration = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "database_query_duration_seconds",
				Help:    "Tracks the latencies for database query.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.2, 0.5, 1, 2},
			},
			[]string{"caller"},
		)

		prometheus.DefaultRegisterer.MustRegister(r.queryDuration)
	}
}

// Shutdown close database. Called by samber/do.
func (r *Database) Shutdown(ctx context.Context) error {
	if r.db == nil {
		return nil
	}

	if err := r.db.Close(); err != nil {
		return fmt.Errorf("close db error: %w", err)
	}

	r.db = nil

	logger := log.Ctx(ctx)
	logger.Debug().Msg("DB: closed")

	return nil
}

func (r *Database) Migrate(ctx context.Context) error {
	logger := log.Ctx(ctx)

	dialect, dir := goose.DialectSQLite3, "migrations/sqlite"
	if r.driver == config.DriverPostgres {
		dialect, dir = goose.DialectPostgres, "migrations/postgres"
	}

	migdir, err := fs.Sub(embedMigrations, dir)
	if err != nil {
		panic(fmt.Errorf("prepare migration fs failed: %w", err))
	}

	provider, err := goose.NewProvider(dialect, r.db.DB, migdir)
	if err != nil {
		panic(fmt.Errorf("create goose provider failed: %w", err))
	}

	ver, err := provider.GetDBVersion(ctx)
	if err != nil {
		return aerr.ApplyFor(aerr.ErrDatabase, err, "", "failed to check current database version")
	}

	logger.Debug().Msgf("DB: current database version: %d", ver)

	for {
		res, err := provider.UpByOne(ctx)
		if res != nil {
			logger.Debug().Msgf("DB: migration: %s", res)
		}

		if errors.Is(err, goose.ErrNoNextVersion) {
			break
		} else if err != nil {
			return aerr.ApplyFor(aerr.ErrDatabase, err, "", "migrate database up failed")
		}
	}

	ver, err = provider.GetDBVersion(ctx)
	if err != nil {
		return aerr.ApplyFor(aerr.ErrDatabase, err, "", "failed to check current database version")
	}

	logger.Info().Msgf("DB: migrated database version: %d", ver)

	return nil
}

func (r *Database) GetConnection(ctx context.Context) (*sqlx.Conn, error) {
	conn, err := r.db.Connx(ctx)
	if err != nil {
		return nil, aerr.ApplyFor(aerr.ErrDatabase, err, "failed open connection")
	}

	return conn, nil
}

func (r *Database) CloseConnection(ctx context.Context, conn *sqlx.Conn) {
	if err := conn.Close(); err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("DB: close connection failed")
	}
}

// Maintenance run vacuum/analyze on database.
func (r *Database) Maintenance(ctx context.Context) error {
	logger := log.Ctx(ctx)

	scripts := sqliteMaintScripts
	if r.driver == config.DriverPostgres {
		scripts = pgMaintScripts
	}

	for idx, sql := range scripts {
		logger.Debug().Msgf("DB: run maintenance script[%d]: %q", idx, sql)

		if _, err := r.db.ExecContext(ctx, sql); err != nil {
			return aerr.ApplyFor(aerr.ErrDatabase, err, "execute maintenance script failed").
				WithMeta("sql", sql)
		}
	}

	logger.Info().Msg("DB: database maintenance finished")

	return nil
}

func (r *Database) onConnect(ctx context.Context, db sqlx.ExecerContext) error {
	if r.driver == config.DriverPostgres {
		return nil
	}

	_, err := db.ExecContext(ctx,
		"PRAGMA temp_store = MEMORY;",
	)
	if err != nil {
		return aerr.ApplyFor(aerr.ErrDatabase, err, "execute onConnect script failed")
	}

	return nil
}

func (r *Database) observeQueryDuration(start time.Time) {
	if r.queryDuration == nil {
		return
	}

	const skipFrames = 3

	rpc := make([]uintptr, 1)
	if n := runtime.Callers(skipFrames, rpc); n < 1 {
		return
	}

	frame, _ := runtime.CallersFrames(rpc).Next()
	if frame.PC == 0 {
		return
	}

	caller := frame.Function
	r.queryDuration.WithLabelValues(caller).Observe(time.Since(start).Seconds())
}

//------------------------------------------------------------------------------

const sqliteMemory = ":memory:"

func prepareSqliteConnstr(connstr string) (string, error) {
	if connstr == "" {
		return "", aerr.ErrInvalidConf.WithUserMsg("invalid (empty) database connection string")
	}

	if connstr == sqliteMemory {
		return sqliteMemory, nil
	}

	parsed, err := url.Parse(connstr)
	if err != nil {
		return "", aerr.ApplyFor(aerr.ErrInvalidConf, err, "", "failed to parse database connections string")
	}

	if parsed.Path == "" {
		return "", aerr.ErrInvalidConf.WithUserMsg("invalid database connection string - missing path")
	}

	query := parsed.Query()
	if !query.Has("_journal_mode") && !query.Has("_journal") {
		query.Set("_journal_mode", "WAL")
	}

	if !query.Has("_synchronous") && !query.Has("_sync") {
		query.Set("_synchronous", "NORMAL")
	}

	if !query.Has("_busy_timeout") && !query.Has("_timeout") {
		query.Set("_busy_timeout", "5000")
	}

	parsed.RawQuery = query.Encode()

	return parsed.String(), nil
}

//------------------------------------------------------------------------------

// InConnectionR run `fun` in database context. Open/close connection. Return `fun` result and error.
func InConnectionR[T any](ctx context.Context, r *Database,
	fun func(Interface) (T, error),
) (T, error) {
	start := time.Now()
	defer r.observeQueryDuration(start)

	conn, err := r.GetConnection(ctx)
	if err != nil {
		return *new(T), err
	}

	defer r.CloseConnection(ctx, conn)

	return fun(conn)
}

// InTransaction run `fun` in db transaction; commit when fun succeed, rollback otherwise.
func InTransaction(ctx context.Context, r *Database, fun func(Interface) error) error {
	_, err := InTransactionR(ctx, r, func(dbctx Interface) (struct{}, error) {
		return struct{}{}, fun(dbctx)
	})

	return err
}

// InTransactionR run `fun` in db transactions; return `fun` result and error.
func InTransactionR[T any](ctx context.Context, r *Database,
	fun func(Interface) (T, error),
) (T, error) {
	start := time.Now()
	defer r.observeQueryDuration(start)

	conn, err := r.GetConnection(ctx)
	if err != nil {
		return *new(T), err
	}

	defer r.CloseConnection(ctx, conn)

	tx, err := conn.BeginTxx(ctx, nil)
	if err != nil {
		return *new(T), aerr.ApplyFor(aerr.ErrDatabase, err, "begin tx failed")
	}

	res, err := fun(tx)
	if err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			merr := errors.Join(err, fmt.Errorf("rollback error: %w", rerr))

			return res, aerr.ApplyFor(aerr.ErrDatabase, merr, "execute func in trans and rollback error")
		}

		return res, err
	}

	if err := tx.Commit(); err != nil {
		return res, aerr.ApplyFor(aerr.ErrDatabase, err, "commit tx failed")
	}

	return res, nil
}

//------------------------------------------------------------------------------

var sqliteMaintScripts = []string{
	"VACUUM;",
	"ANALYZE;",
	"PRAGMA optimize;",
}

var pgMaintScripts = []string{
	"VACUUM ANALYZE sessions;",
}
