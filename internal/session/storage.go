package session

//
// storage.go
// Copyright (C) 2025 Karol Będkowski <Karol Będkowski@kkomp>
//
// Distributed under terms of the GPLv3 license.
//

import (
	"context"
	"errors"
)

// ErrNotFound is returned when session not exists or is expired.
var ErrNotFound = errors.New("session not found")

// Storage keep sessions. Implementations must be safe for concurrent use.
type Storage interface {
	// Initialize prepare storage (create directories, tables, etc.).
	Initialize(ctx context.Context) error
	// Save insert or replace session.
	Save(ctx context.Context, session *Session) error
	// Load return session or ErrNotFound.
	Load(ctx context.Context, id string) (*Session, error)
	// Delete remove session; missing session is not an error.
	Delete(ctx context.Context, id string) error
	// Cleanup remove expired sessions and return number of removed.
	Cleanup(ctx context.Context) (int, error)
	// Shutdown release all resources.
	Shutdown(ctx context.Context) error
}
