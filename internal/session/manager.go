package session

//
// manager.go
// Copyright (C) 2025 Karol Będkowski <Karol Będkowski@kkomp>
//
// Distributed under terms of the GPLv3 license.
//

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/xid"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"
	"gitlab.com/kabes/go-httpd/internal/aerr"
	"gitlab.com/kabes/go-httpd/internal/common"
	"gitlab.com/kabes/go-httpd/internal/config"
	"gitlab.com/kabes/go-httpd/internal/cookie"
)

const shutdownWait = 5 * time.Second

// Manager create, load, invalidate and periodically clean sessions.
// All operations are serialized.
type Manager struct {
	mu      sync.Mutex
	storage Storage
	conf    config.SessionConf

	cancel context.CancelFunc
	done   chan struct{}
}

// NewManager validate configuration and initialize storage.
func NewManager(ctx context.Context, storage Storage, conf config.SessionConf) (*Manager, error) {
	if err := conf.Validate(); err != nil {
		return nil, aerr.Wrapf(err, "invalid session configuration")
	}

	if err := storage.Initialize(ctx); err != nil {
		return nil, aerr.ApplyFor(aerr.ErrStorage, err, "initialize session storage failed")
	}

	log.Ctx(ctx).Debug().Object("conf", &conf).Msg("SessionManager: created")

	return &Manager{
		storage: storage,
		conf:    conf,
	}, nil
}

// CreateSession create and store new session with given ttl (in seconds).
func (m *Manager) CreateSession(ctx context.Context, ttl int) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess := New(ttl, m.onInvalidate)

	if err := m.storage.Save(ctx, sess); err != nil {
		return nil, aerr.ApplyFor(aerr.ErrStorage, err, "save new session failed").WithMeta("sid", sess.ID())
	}

	sessionsCreated.Inc()

	log.Ctx(ctx).Debug().Str(common.LogKeySessionID, sess.ID()).
		Msgf("SessionManager: session created session_id=%s ttl=%d", sess.ID(), ttl)

	return sess, nil
}

// CreateDefaultSession create session with default ttl.
func (m *Manager) CreateDefaultSession(ctx context.Context) (*Session, error) {
	return m.CreateSession(ctx, m.conf.DefaultTTL)
}

// GetSession load session by id. Expired session are removed and ErrNotFound
// is returned. Otherwise last accessed time is updated and session is saved.
func (m *Manager) GetSession(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, ErrNotFound
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	logger := log.Ctx(ctx)

	sess, err := m.storage.Load(ctx, id)
	if errors.Is(err, ErrNotFound) {
		logger.Debug().Str(common.LogKeySessionID, id).Msgf("SessionManager: session not found session_id=%s", id)

		return nil, ErrNotFound
	} else if err != nil {
		return nil, aerr.ApplyFor(aerr.ErrStorage, err, "load session failed").WithMeta("sid", id)
	}

	if sess.IsExpired() {
		logger.Debug().Object("session", sess).Msgf("SessionManager: session expired session_id=%s", id)

		if err := m.storage.Delete(ctx, id); err != nil {
			return nil, aerr.ApplyFor(aerr.ErrStorage, err, "delete expired session failed").WithMeta("sid", id)
		}

		sessionsExpired.Inc()

		return nil, ErrNotFound
	}

	sess.UpdateLastAccessedTime()
	sess.bind(m.onInvalidate)

	if err := m.storage.Save(ctx, sess); err != nil {
		return nil, aerr.ApplyFor(aerr.ErrStorage, err, "save session failed").WithMeta("sid", id)
	}

	return sess, nil
}

// Save store session; invalidated sessions are skipped.
func (m *Manager) Save(ctx context.Context, sess *Session) error {
	if sess.IsInvalidated() {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.storage.Save(ctx, sess); err != nil {
		return aerr.ApplyFor(aerr.ErrStorage, err, "save session failed").WithMeta("sid", sess.ID())
	}

	return nil
}

// Invalidate remove session from storage. Calling it for not existing
// session is not an error.
func (m *Manager) Invalidate(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.storage.Delete(ctx, id); err != nil {
		return aerr.ApplyFor(aerr.ErrStorage, err, "delete session failed").WithMeta("sid", id)
	}

	sessionsInvalidated.Inc()

	log.Ctx(ctx).Debug().Str(common.LogKeySessionID, id).
		Msgf("SessionManager: session invalidated session_id=%s", id)

	return nil
}

// Cleanup remove expired sessions from storage.
func (m *Manager) Cleanup(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed, err := m.storage.Cleanup(ctx)
	if err != nil {
		return removed, aerr.ApplyFor(aerr.ErrStorage, err, "cleanup sessions failed")
	}

	sessionsExpired.Add(float64(removed))

	return removed, nil
}

// CookieName return name of session cookie.
func (m *Manager) CookieName() string {
	return m.conf.CookieName
}

// SessionCookie create cookie carrying session id.
func (m *Manager) SessionCookie(id string) *cookie.Cookie {
	return m.conf.NewCookie(id)
}

// DeleteCookie create cookie that remove session cookie from client.
func (m *Manager) DeleteCookie() *cookie.Cookie {
	return m.conf.NewCookie("").Expired()
}

//-------------------------------------------------------------

// Start launch background task removing expired sessions.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cancel != nil {
		return
	}

	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})

	go m.cleanupTask(ctx)
}

// Shutdown stop cleanup task and storage. Called by samber/do.
func (m *Manager) Shutdown(ctx context.Context) error {
	logger := log.Ctx(ctx)
	logger.Debug().Msg("SessionManager: stopping...")

	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel = nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()

		select {
		case <-done:
		case <-time.After(shutdownWait):
			logger.Warn().Msg("SessionManager: cleanup task not finished in time")
		}
	}

	if err := m.storage.Shutdown(ctx); err != nil {
		return aerr.ApplyFor(aerr.ErrStorage, err, "shutdown session storage failed")
	}

	logger.Debug().Msg("SessionManager: stopped")

	return nil
}

func (m *Manager) cleanupTask(ctx context.Context) {
	defer close(m.done)

	logger := log.Ctx(ctx)
	logger.Info().Msgf("SessionManager: start background cleanup task; interval=%s", m.conf.CleanupInterval)

	eventlog := common.NewEventLog("session cleanup", "worker")
	defer eventlog.Close()

	ticker := time.NewTicker(m.conf.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Debug().Msg("SessionManager: cleanup task finished")

			return
		case <-ticker.C:
			taskid := xid.New()
			llog := logger.With().Str(common.LogKeyTaskID, taskid.String()).Logger()

			eventlog.Printf("start cleanup task_id=%s", taskid.String())

			tctx := llog.WithContext(hlog.CtxWithID(ctx, taskid))

			removed, err := m.Cleanup(tctx)
			if err != nil {
				llog.Error().Err(err).Msgf("SessionManager: cleanup sessions error=%q", err)
				eventlog.Errorf("cleanup error task_id=%s error=%q", taskid.String(), err)

				continue
			}

			if removed > 0 {
				llog.Info().Msgf("SessionManager: expired sessions removed count=%d", removed)
			}

			eventlog.Printf("cleanup finished task_id=%s removed=%d", taskid.String(), removed)
		}
	}
}

func (m *Manager) onInvalidate(ctx context.Context, id string) {
	if err := m.Invalidate(ctx, id); err != nil {
		log.Ctx(ctx).Error().Err(err).Str(common.LogKeySessionID, id).
			Msgf("SessionManager: invalidate session error=%q", err)
	}
}
