package session

//
// manager_test.go
// Copyright (C) 2025 Karol Będkowski <Karol Będkowski@kkomp>
//
// Distributed under terms of the GPLv3 license.
//

import (
	"context"
	"errors"
	stdlog "log"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gitlab.com/kabes/go-httpd/internal/assert"
	"gitlab.com/kabes/go-httpd/internal/config"
)

// mapStorage keep encoded sessions in map, so each load return new object.
type mapStorage struct {
	mu          sync.Mutex
	data        map[string][]byte
	initialized bool
	shutdown    bool
	failSave    error
}

func newMapStorage() *mapStorage {
	return &mapStorage{data: make(map[string][]byte)}
}

func (m *mapStorage) Initialize(_ context.Context) error {
	m.initialized = true

	return nil
}

func (m *mapStorage) Save(_ context.Context, sess *Session) error {
	if m.failSave != nil {
		return m.failSave
	}

	data, err := sess.MarshalBinary()
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.data[sess.ID()] = data

	return nil
}

func (m *mapStorage) Load(_ context.Context, id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, ok := m.data[id]
	if !ok {
		return nil, ErrNotFound
	}

	return Decode(data)
}

func (m *mapStorage) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.data, id)

	return nil
}

func (m *mapStorage) Cleanup(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0

	for id, data := range m.data {
		if sess, err := Decode(data); err != nil || sess.IsExpired() {
			delete(m.data, id)

			removed++
		}
	}

	return removed, nil
}

func (m *mapStorage) Shutdown(_ context.Context) error {
	m.shutdown = true

	return nil
}

func (m *mapStorage) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.data)
}

//-------------------------------------------------------------

func prepareTests(t *testing.T) (context.Context, *Manager, *mapStorage) {
	t.Helper()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout}).With().Caller().Logger()
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	stdlog.SetFlags(0)
	stdlog.SetOutput(log.Logger)

	ctx := log.Logger.WithContext(context.Background())
	storage := newMapStorage()

	conf := config.NewSessionConf()
	conf.CleanupInterval = 20 * time.Millisecond

	mgr, err := NewManager(ctx, storage, conf)
	if err != nil {
		t.Fatalf("create manager error: %#+v", err)
	}

	return ctx, mgr, storage
}

func TestManagerCreateGet(t *testing.T) {
	ctx, mgr, storage := prepareTests(t)
	assert.True(t, storage.initialized)

	sess, err := mgr.CreateDefaultSession(ctx)
	assert.NoErr(t, err)
	assert.Equal(t, sess.MaxInactiveInterval(), config.DefaultSessionTTL)
	assert.Equal(t, storage.len(), 1)

	sess.Set("user", "abc")
	assert.NoErr(t, mgr.Save(ctx, sess))

	loaded, err := mgr.GetSession(ctx, sess.ID())
	assert.NoErr(t, err)
	assert.True(t, loaded != sess)
	assert.Equal(t, loaded.Get("user"), any("abc"))

	_, err = mgr.GetSession(ctx, "missing")
	assert.ErrSpec(t, err, ErrNotFound)

	_, err = mgr.GetSession(ctx, "")
	assert.ErrSpec(t, err, ErrNotFound)
}

func TestManagerGetExpired(t *testing.T) {
	ctx, mgr, storage := prepareTests(t)

	old := Restore("old", nil, time.Now().Add(-time.Hour), time.Now().Add(-time.Minute), 10)
	assert.NoErr(t, storage.Save(ctx, old))

	_, err := mgr.GetSession(ctx, "old")
	assert.ErrSpec(t, err, ErrNotFound)
	// expired session is removed
	assert.Equal(t, storage.len(), 0)
}

func TestManagerGetTouch(t *testing.T) {
	ctx, mgr, storage := prepareTests(t)

	accessed := time.Now().Add(-5 * time.Second)
	sess := Restore("s1", nil, accessed, accessed, 10)
	assert.NoErr(t, storage.Save(ctx, sess))

	loaded, err := mgr.GetSession(ctx, "s1")
	assert.NoErr(t, err)
	assert.True(t, loaded.LastAccessedTime().After(accessed.Add(time.Second)))

	// touched session is saved
	reloaded, err := storage.Load(ctx, "s1")
	assert.NoErr(t, err)
	assert.True(t, reloaded.LastAccessedTime().After(accessed.Add(time.Second)))
}

func TestManagerInvalidate(t *testing.T) {
	ctx, mgr, storage := prepareTests(t)

	sess, err := mgr.CreateSession(ctx, 60)
	assert.NoErr(t, err)

	assert.NoErr(t, mgr.Invalidate(ctx, sess.ID()))
	assert.Equal(t, storage.len(), 0)

	// idempotent
	assert.NoErr(t, mgr.Invalidate(ctx, sess.ID()))
	assert.NoErr(t, mgr.Invalidate(ctx, ""))

	_, err = mgr.GetSession(ctx, sess.ID())
	assert.ErrSpec(t, err, ErrNotFound)
}

func TestManagerSessionInvalidate(t *testing.T) {
	ctx, mgr, storage := prepareTests(t)

	sess, err := mgr.CreateSession(ctx, 60)
	assert.NoErr(t, err)

	loaded, err := mgr.GetSession(ctx, sess.ID())
	assert.NoErr(t, err)

	// session notify manager
	loaded.Invalidate(ctx)
	assert.Equal(t, storage.len(), 0)

	// invalidated session is not saved again
	assert.NoErr(t, mgr.Save(ctx, loaded))
	assert.Equal(t, storage.len(), 0)
}

func TestManagerStorageError(t *testing.T) {
	ctx, mgr, storage := prepareTests(t)

	storage.failSave = errors.New("disk full")

	_, err := mgr.CreateSession(ctx, 60)
	assert.ErrSpec(t, err, storage.failSave)
	assert.ErrSpec(t, err, "save new session failed")
}

func TestManagerCleanupTask(t *testing.T) {
	ctx, mgr, storage := prepareTests(t)

	now := time.Now()
	assert.NoErr(t, storage.Save(ctx, Restore("e1", nil, now, now.Add(-time.Minute), 1)))
	assert.NoErr(t, storage.Save(ctx, Restore("e2", nil, now, now.Add(-time.Minute), 1)))
	assert.NoErr(t, storage.Save(ctx, Restore("ok", nil, now, now, 60)))

	mgr.Start(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for storage.len() > 1 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	assert.Equal(t, storage.len(), 1)

	assert.NoErr(t, mgr.Shutdown(ctx))
	assert.True(t, storage.shutdown)
}

func TestManagerInvalidConf(t *testing.T) {
	conf := config.NewSessionConf()
	conf.CleanupInterval = 0

	_, err := NewManager(context.Background(), newMapStorage(), conf)
	assert.ErrSpec(t, err, "invalid session configuration")
}

func TestManagerCookies(t *testing.T) {
	_, mgr, _ := prepareTests(t)

	assert.Equal(t, mgr.CookieName(), "JSESSIONID")
	assert.Equal(t, mgr.SessionCookie("abc").String(), "JSESSIONID=abc; Path=/; HttpOnly; SameSite=Lax")
	assert.Equal(t, mgr.DeleteCookie().String(), "JSESSIONID=; Path=/; Max-Age=0; HttpOnly; SameSite=Lax")
}
