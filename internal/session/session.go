package session

//
// session.go
// Copyright (C) 2025 Karol Będkowski <Karol Będkowski@kkomp>
//
// Distributed under terms of the GPLv3 license.
//

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/rs/xid"
	"github.com/rs/zerolog"
)

// InvalidateFunc is called when session is invalidated; it should remove
// session from storage.
type InvalidateFunc func(ctx context.Context, id string)

// Session is server-side state bound to a client by session cookie.
type Session struct {
	mu sync.RWMutex

	id         string
	attributes map[string]any

	creationTime     time.Time
	lastAccessedTime time.Time
	// maxInactiveInterval in seconds; negative value = never expire.
	maxInactiveInterval int
	invalidated         bool

	onInvalidate InvalidateFunc
}

// New create session with new, unique id.
func New(ttl int, onInvalidate InvalidateFunc) *Session {
	now := time.Now()

	return &Session{
		id:                  xid.New().String(),
		attributes:          make(map[string]any),
		creationTime:        now,
		lastAccessedTime:    now,
		maxInactiveInterval: ttl,
		onInvalidate:        onInvalidate,
	}
}

// Restore create session from stored values.
func Restore(id string, attributes map[string]any, created, lastAccessed time.Time, ttl int) *Session {
	if attributes == nil {
		attributes = make(map[string]any)
	}

	return &Session{
		id:                  id,
		attributes:          attributes,
		creationTime:        created,
		lastAccessedTime:    lastAccessed,
		maxInactiveInterval: ttl,
	}
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) Get(key string) any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.attributes[key]
}

// GetOr return attribute value or defaultValue when attribute not exists.
func (s *Session) GetOr(key string, defaultValue any) any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if v, ok := s.attributes[key]; ok {
		return v
	}

	return defaultValue
}

func (s *Session) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.attributes[key] = value
}

func (s *Session) Remove(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.attributes, key)
}

func (s *Session) Exists(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.attributes[key]

	return ok
}

// Attributes return copy of all session attributes.
func (s *Session) Attributes() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return maps.Clone(s.attributes)
}

func (s *Session) CreationTime() time.Time {
	return s.creationTime
}

func (s *Session) LastAccessedTime() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.lastAccessedTime
}

func (s *Session) MaxInactiveInterval() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.maxInactiveInterval
}

func (s *Session) SetMaxInactiveInterval(ttl int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.maxInactiveInterval = ttl
}

// IsExpired is true when ttl is not negative and session was not accessed
// for more than ttl seconds.
func (s *Session) IsExpired() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.isExpired(time.Now())
}

func (s *Session) isExpired(now time.Time) bool {
	if s.maxInactiveInterval < 0 {
		return false
	}

	return now.Sub(s.lastAccessedTime) > time.Duration(s.maxInactiveInterval)*time.Second
}

// ExpiresAt return time when session expire if not accessed; zero time for
// never expiring sessions.
func (s *Session) ExpiresAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.maxInactiveInterval < 0 {
		return time.Time{}
	}

	return s.lastAccessedTime.Add(time.Duration(s.maxInactiveInterval) * time.Second)
}

func (s *Session) UpdateLastAccessedTime() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastAccessedTime = time.Now()
}

// IsInvalidated is true after Invalidate was called.
func (s *Session) IsInvalidated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.invalidated
}

// Invalidate clear attributes, set ttl to 0 and notify session owner.
func (s *Session) Invalidate(ctx context.Context) {
	s.mu.Lock()
	clear(s.attributes)
	s.maxInactiveInterval = 0
	s.invalidated = true
	callback := s.onInvalidate
	s.mu.Unlock()

	if callback != nil {
		callback(ctx, s.id)
	}
}

func (s *Session) bind(onInvalidate InvalidateFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.onInvalidate = onInvalidate
}

func (s *Session) MarshalZerologObject(event *zerolog.Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	event.Str("id", s.id).
		Time("created", s.creationTime).
		Time("last_accessed", s.lastAccessedTime).
		Int("ttl", s.maxInactiveInterval).
		Int("attributes", len(s.attributes))
}
