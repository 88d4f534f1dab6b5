package memory

//
// memory.go
// Copyright (C) 2025 Karol Będkowski <Karol Będkowski@kkomp>
//
// Distributed under terms of the GPLv3 license.
//

import (
	"context"

	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog/log"
	"gitlab.com/kabes/go-httpd/internal/common"
	"gitlab.com/kabes/go-httpd/internal/session"
)

// Storage keep sessions in process memory. Expiration is handled by session
// manager, so cache items never expire and cache janitor is disabled.
type Storage struct {
	cache *cache.Cache
}

func New() *Storage {
	return &Storage{
		cache: cache.New(cache.NoExpiration, 0),
	}
}

func (s *Storage) Initialize(ctx context.Context) error {
	log.Ctx(ctx).Debug().Msg("memory.Storage: initialized")

	return nil
}

func (s *Storage) Save(ctx context.Context, sess *session.Session) error {
	log.Ctx(ctx).Debug().Str(common.LogKeySessionID, sess.ID()).
		Msgf("memory.Storage: save session session_id=%s", sess.ID())

	s.cache.Set(sess.ID(), sess, cache.NoExpiration)

	return nil
}

func (s *Storage) Load(ctx context.Context, id string) (*session.Session, error) {
	item, ok := s.cache.Get(id)
	if !ok {
		return nil, session.ErrNotFound
	}

	sess, ok := item.(*session.Session)
	if !ok {
		log.Ctx(ctx).Warn().Str(common.LogKeySessionID, id).Msgf("memory.Storage: invalid item type=%T", item)
		s.cache.Delete(id)

		return nil, session.ErrNotFound
	}

	return sess, nil
}

func (s *Storage) Delete(ctx context.Context, id string) error {
	log.Ctx(ctx).Debug().Str(common.LogKeySessionID, id).
		Msgf("memory.Storage: delete session session_id=%s", id)

	s.cache.Delete(id)

	return nil
}

func (s *Storage) Cleanup(ctx context.Context) (int, error) {
	removed := 0

	for id, item := range s.cache.Items() {
		sess, ok := item.Object.(*session.Session)
		if ok && !sess.IsExpired() {
			continue
		}

		s.cache.Delete(id)

		removed++
	}

	log.Ctx(ctx).Debug().Msgf("memory.Storage: cleanup finished removed=%d", removed)

	return removed, nil
}

func (s *Storage) Shutdown(ctx context.Context) error {
	s.cache.Flush()
	log.Ctx(ctx).Debug().Msg("memory.Storage: closed")

	return nil
}

// Count return number of stored sessions (including expired).
func (s *Storage) Count() int {
	return s.cache.ItemCount()
}
