package file

//
// file.go
// Copyright (C) 2025 Karol Będkowski <Karol Będkowski@kkomp>
//
// Distributed under terms of the GPLv3 license.
//

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/xid"
	"github.com/rs/zerolog/log"
	"gitlab.com/kabes/go-httpd/internal/aerr"
	"gitlab.com/kabes/go-httpd/internal/common"
	"gitlab.com/kabes/go-httpd/internal/session"
)

const fileExt = ".jssid"

// Storage keep each session in separate file in directory.
type Storage struct {
	mu  sync.Mutex
	dir string
}

func New(dir string) *Storage {
	return &Storage{dir: dir}
}

func (s *Storage) Initialize(ctx context.Context) error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil { //nolint:mnd
		return aerr.Wrapf(err, "create session directory failed").WithMeta("dir", s.dir)
	}

	log.Ctx(ctx).Debug().Msgf("file.Storage: initialized dir=%q", s.dir)

	return nil
}

func (s *Storage) Save(ctx context.Context, sess *session.Session) error {
	log.Ctx(ctx).Debug().Str(common.LogKeySessionID, sess.ID()).
		Msgf("file.Storage: save session session_id=%s", sess.ID())

	fname, err := s.filename(sess.ID())
	if err != nil {
		return err
	}

	data, err := sess.MarshalBinary()
	if err != nil {
		return aerr.Wrapf(err, "encode session failed").WithMeta("sid", sess.ID())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(s.dir, "tmp-*")
	if err != nil {
		return aerr.Wrapf(err, "create temp file failed").WithMeta("dir", s.dir)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())

		return aerr.Wrapf(err, "write session file failed").WithMeta("sid", sess.ID())
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())

		return aerr.Wrapf(err, "close session file failed").WithMeta("sid", sess.ID())
	}

	if err := os.Rename(tmp.Name(), fname); err != nil {
		os.Remove(tmp.Name())

		return aerr.Wrapf(err, "rename session file failed").WithMeta("sid", sess.ID())
	}

	return nil
}

// Load read session from file. Missing or corrupted file is reported as not found.
func (s *Storage) Load(ctx context.Context, id string) (*session.Session, error) {
	fname, err := s.filename(id)
	if err != nil {
		return nil, session.ErrNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(fname)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, session.ErrNotFound
	} else if err != nil {
		return nil, aerr.Wrapf(err, "read session file failed").WithMeta("sid", id)
	}

	sess, err := session.Decode(data)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Str(common.LogKeySessionID, id).
			Msgf("file.Storage: corrupted session file=%q error=%q", fname, err)

		return nil, session.ErrNotFound
	}

	return sess, nil
}

func (s *Storage) Delete(ctx context.Context, id string) error {
	log.Ctx(ctx).Debug().Str(common.LogKeySessionID, id).
		Msgf("file.Storage: delete session session_id=%s", id)

	fname, err := s.filename(id)
	if err != nil {
		return nil //nolint:nilerr
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(fname); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return aerr.Wrapf(err, "delete session file failed").WithMeta("sid", id)
	}

	return nil
}

// Cleanup delete files with expired or unreadable sessions.
func (s *Storage) Cleanup(ctx context.Context) (int, error) {
	logger := log.Ctx(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, aerr.Wrapf(err, "read session directory failed").WithMeta("dir", s.dir)
	}

	removed := 0

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), fileExt) {
			continue
		}

		fname := filepath.Join(s.dir, entry.Name())

		data, err := os.ReadFile(fname)
		if err != nil {
			logger.Warn().Err(err).Msgf("file.Storage: read file=%q error=%q", fname, err)

			continue
		}

		if sess, err := session.Decode(data); err == nil && !sess.IsExpired() {
			continue
		}

		if err := os.Remove(fname); err != nil {
			logger.Warn().Err(err).Msgf("file.Storage: delete file=%q error=%q", fname, err)

			continue
		}

		removed++
	}

	logger.Debug().Msgf("file.Storage: cleanup finished removed=%d", removed)

	return removed, nil
}

func (s *Storage) Shutdown(ctx context.Context) error {
	log.Ctx(ctx).Debug().Msg("file.Storage: closed")

	return nil
}

// filename return path to session file; id must be valid xid so it can't
// point outside storage directory.
func (s *Storage) filename(id string) (string, error) {
	if _, err := xid.FromString(id); err != nil {
		return "", aerr.Wrapf(err, "invalid session id").WithTag(aerr.ValidationError).WithMeta("sid", id)
	}

	return filepath.Join(s.dir, id+fileExt), nil
}
