package file

//
// file_test.go
// Copyright (C) 2025 Karol Będkowski <Karol Będkowski@kkomp>
//
// Distributed under terms of the GPLv3 license.
//

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/xid"
	"gitlab.com/kabes/go-httpd/internal/assert"
	"gitlab.com/kabes/go-httpd/internal/session"
)

func prepareStorage(t *testing.T) (context.Context, *Storage, string) {
	t.Helper()

	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "sessions")

	storage := New(dir)
	if err := storage.Initialize(ctx); err != nil {
		t.Fatalf("initialize storage error: %#+v", err)
	}

	return ctx, storage, dir
}

func TestFileStorage(t *testing.T) {
	ctx, storage, dir := prepareStorage(t)

	sess := session.New(60, nil)
	sess.Set("a", 1)
	sess.Set("b", "abc")
	assert.NoErr(t, storage.Save(ctx, sess))

	_, err := os.Stat(filepath.Join(dir, sess.ID()+".jssid"))
	assert.NoErr(t, err)

	loaded, err := storage.Load(ctx, sess.ID())
	assert.NoErr(t, err)
	assert.True(t, loaded != sess)
	assert.Equal(t, loaded.ID(), sess.ID())
	assert.Equal(t, loaded.Get("a"), any(1))
	assert.Equal(t, loaded.Get("b"), any("abc"))

	sess.Set("a", 2)
	assert.NoErr(t, storage.Save(ctx, sess))

	loaded, err = storage.Load(ctx, sess.ID())
	assert.NoErr(t, err)
	assert.Equal(t, loaded.Get("a"), any(2))

	assert.NoErr(t, storage.Delete(ctx, sess.ID()))
	_, err = storage.Load(ctx, sess.ID())
	assert.ErrSpec(t, err, session.ErrNotFound)

	// delete missing and invalid
	assert.NoErr(t, storage.Delete(ctx, sess.ID()))
	assert.NoErr(t, storage.Delete(ctx, "../../etc/passwd"))

	_, err = storage.Load(ctx, "../../etc/passwd")
	assert.ErrSpec(t, err, session.ErrNotFound)
}

func TestFileStorageCleanup(t *testing.T) {
	ctx, storage, dir := prepareStorage(t)

	s1 := session.New(60, nil)
	s2 := session.New(-1, nil)
	now := time.Now()
	expired := session.Restore(xid.New().String(), nil, now.Add(-time.Hour), now.Add(-2*time.Minute), 60)

	for _, s := range []*session.Session{s1, s2, expired} {
		assert.NoErr(t, storage.Save(ctx, s))
	}

	// corrupted file
	corrupted := xid.New().String()
	assert.NoErr(t, os.WriteFile(filepath.Join(dir, corrupted+".jssid"), []byte("garbage"), 0o600))

	_, err := storage.Load(ctx, corrupted)
	assert.ErrSpec(t, err, session.ErrNotFound)

	// other files are ignored
	assert.NoErr(t, os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("garbage"), 0o600))

	removed, err := storage.Cleanup(ctx)
	assert.NoErr(t, err)
	assert.Equal(t, removed, 2)

	for _, s := range []*session.Session{s1, s2} {
		_, err := storage.Load(ctx, s.ID())
		assert.NoErr(t, err)
	}

	_, err = os.Stat(filepath.Join(dir, "readme.txt"))
	assert.NoErr(t, err)
}
