package session

//
// encoding.go
// Copyright (C) 2025 Karol Będkowski <Karol Będkowski@kkomp>
//
// Distributed under terms of the GPLv3 license.
//

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"time"

	chisession "gitea.com/go-chi/session"
)

// record is on-disk form of the session.
type record struct {
	ID                  string
	Attributes          []byte
	CreationTime        int64
	LastAccessedTime    int64
	MaxInactiveInterval int
}

// MarshalBinary encode session; attributes are encoded with gob so their
// types must be gob-encodable.
func (s *Session) MarshalBinary() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	attrs, err := encodeAttributes(s.attributes)
	if err != nil {
		return nil, err
	}

	rec := record{
		ID:                  s.id,
		Attributes:          attrs,
		CreationTime:        s.creationTime.UnixMilli(),
		LastAccessedTime:    s.lastAccessedTime.UnixMilli(),
		MaxInactiveInterval: s.maxInactiveInterval,
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&rec); err != nil {
		return nil, fmt.Errorf("encode session error: %w", err)
	}

	return buf.Bytes(), nil
}

func (s *Session) UnmarshalBinary(data []byte) error {
	rec, attrs, err := decodeRecord(data)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.id = rec.ID
	s.attributes = attrs
	s.creationTime = time.UnixMilli(rec.CreationTime)
	s.lastAccessedTime = time.UnixMilli(rec.LastAccessedTime)
	s.maxInactiveInterval = rec.MaxInactiveInterval

	return nil
}

// Decode create session from data created by MarshalBinary.
func Decode(data []byte) (*Session, error) {
	rec, attrs, err := decodeRecord(data)
	if err != nil {
		return nil, err
	}

	return Restore(rec.ID, attrs, time.UnixMilli(rec.CreationTime), time.UnixMilli(rec.LastAccessedTime),
		rec.MaxInactiveInterval), nil
}

func decodeRecord(data []byte) (*record, map[string]any, error) {
	var rec record
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&rec); err != nil {
		return nil, nil, fmt.Errorf("decode session error: %w", err)
	}

	if rec.ID == "" {
		return nil, nil, fmt.Errorf("decode session error: missing id")
	}

	attrs, err := decodeAttributes(rec.Attributes)
	if err != nil {
		return nil, nil, err
	}

	return &rec, attrs, nil
}

func encodeAttributes(attrs map[string]any) ([]byte, error) {
	// skip encoding if there is no data
	if len(attrs) == 0 {
		return nil, nil
	}

	data := make(map[any]any, len(attrs))
	for k, v := range attrs {
		data[k] = v
	}

	encoded, err := chisession.EncodeGob(data)
	if err != nil {
		return nil, fmt.Errorf("session attributes encode error: %w", err)
	}

	return encoded, nil
}

func decodeAttributes(encoded []byte) (map[string]any, error) {
	attrs := make(map[string]any)

	if len(encoded) == 0 {
		return attrs, nil
	}

	data, err := chisession.DecodeGob(encoded)
	if err != nil {
		return nil, fmt.Errorf("session attributes decode error: %w", err)
	}

	for k, v := range data {
		if key, ok := k.(string); ok {
			attrs[key] = v
		}
	}

	return attrs, nil
}
