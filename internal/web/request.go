package web

//
// request.go
// Copyright (C) 2025 Karol Będkowski <Karol Będkowski@kkomp>
//
// Distributed under terms of the GPLv3 license.
//

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gitlab.com/kabes/go-httpd/internal/aerr"
	"gitlab.com/kabes/go-httpd/internal/common"
	"gitlab.com/kabes/go-httpd/internal/cookie"
	"gitlab.com/kabes/go-httpd/internal/session"
)

const (
	// MaxBodySize is maximal accepted Content-Length.
	MaxBodySize = 10 * 1024 * 1024

	maxHeaderLines = 100
	maxLineLength  = 8 * 1024
)

var (
	ErrMalformedRequest     = aerr.NewSimple("malformed request").WithTag(aerr.ProtocolError)
	ErrInvalidContentLength = aerr.NewSimple("invalid content length").WithTag(aerr.ProtocolError)
)

// SessionProvider create, load and persist sessions bound to requests.
type SessionProvider interface {
	CookieName() string
	GetSession(ctx context.Context, id string) (*session.Session, error)
	CreateDefaultSession(ctx context.Context) (*session.Session, error)
	Save(ctx context.Context, sess *session.Session) error
	SessionCookie(id string) *cookie.Cookie
	DeleteCookie() *cookie.Cookie
}

// Request is parsed http request.
type Request struct {
	Method  string
	Path    string
	Version string
	// Query contains decoded query parameters.
	Query map[string]string
	// Headers with lower-case names.
	Headers map[string]string
	// Body is decoded body (form fields, "raw" for json, "text" for plain text).
	Body    map[string]string
	RawBody []byte
	Cookies map[string]*cookie.Cookie

	session  *session.Session
	sessions SessionProvider
}

// ReadRequest read and parse one request from reader. Return io.EOF when
// connection was closed before first byte of request.
func ReadRequest(reader *bufio.Reader) (*Request, error) {
	line, err := readRequestLine(reader)
	if err != nil {
		return nil, err
	}

	parts := strings.SplitN(line, " ", 3) //nolint:mnd
	if len(parts) < 3 {                   //nolint:mnd
		return nil, ErrMalformedRequest.WithMeta("line", line)
	}

	req := &Request{
		Method:  strings.ToUpper(parts[0]),
		Version: strings.TrimSpace(parts[2]),
		Body:    make(map[string]string),
	}

	path, query, _ := strings.Cut(parts[1], "?")
	req.Path = path
	req.Query = parseQuery(query)

	req.Headers, err = readHeaders(reader)
	if err != nil {
		return nil, err
	}

	req.Cookies = cookie.ParseHeader(req.Headers["cookie"])

	if cl, ok := req.Headers["content-length"]; ok {
		length, err := strconv.Atoi(strings.TrimSpace(cl))
		if err != nil || length < 0 || length > MaxBodySize {
			return nil, ErrInvalidContentLength.WithMeta("content_length", cl)
		}

		if err := req.readBody(reader, length); err != nil {
			return nil, err
		}
	}

	return req, nil
}

// Header return value of header by case-insensitive name.
func (r *Request) Header(name string) string {
	return r.Headers[strings.ToLower(name)]
}

// Cookie return value of cookie or empty string.
func (r *Request) Cookie(name string) string {
	if c, ok := r.Cookies[name]; ok {
		return c.Value
	}

	return ""
}

func (r *Request) IsHTTP10() bool {
	return strings.EqualFold(r.Version, "HTTP/1.0")
}

// KeepAlive check if connection may be reused after this request.
// HTTP/1.0 connections are always closed.
func (r *Request) KeepAlive() bool {
	if r.IsHTTP10() {
		return false
	}

	return !strings.EqualFold(strings.TrimSpace(r.Header("connection")), "close")
}

func (r *Request) IsHead() bool {
	return r.Method == "HEAD"
}

// Session return session bound to request; nil when no session provider was used.
func (r *Request) Session() *session.Session {
	return r.session
}

// BindSession load session identified by cookie or create new one.
func (r *Request) BindSession(ctx context.Context, sessions SessionProvider) error {
	r.sessions = sessions
	logger := log.Ctx(ctx)

	if sid := r.Cookie(sessions.CookieName()); sid != "" {
		sess, err := sessions.GetSession(ctx, sid)

		switch {
		case err == nil:
			r.session = sess

			return nil
		case errors.Is(err, session.ErrNotFound):
			logger.Debug().Str(common.LogKeySessionID, sid).
				Msgf("Request: session not found or expired session_id=%s", sid)
		default:
			return aerr.ApplyFor(aerr.ErrStorage, err, "load session failed")
		}
	}

	sess, err := sessions.CreateDefaultSession(ctx)
	if err != nil {
		return aerr.ApplyFor(aerr.ErrStorage, err, "create session failed")
	}

	r.session = sess

	return nil
}

// SaveSession persist bound session.
func (r *Request) SaveSession(ctx context.Context) error {
	if r.session == nil || r.sessions == nil {
		return nil
	}

	if err := r.sessions.Save(ctx, r.session); err != nil {
		return aerr.ApplyFor(aerr.ErrStorage, err, "save session failed")
	}

	return nil
}

// SessionCookie return cookie that should be sent to client for bound session.
// Invalidated session result in expired cookie.
func (r *Request) SessionCookie() *cookie.Cookie {
	if r.session == nil || r.sessions == nil {
		return nil
	}

	if r.session.IsInvalidated() {
		return r.sessions.DeleteCookie()
	}

	return r.sessions.SessionCookie(r.session.ID())
}

func (r *Request) MarshalZerologObject(event *zerolog.Event) {
	event.Str("method", r.Method).
		Str("path", r.Path).
		Str("version", r.Version)

	if len(r.Query) > 0 {
		event.Interface("query", r.Query)
	}

	if r.session != nil {
		event.Str(common.LogKeySessionID, r.session.ID())
	}
}

func (r *Request) readBody(reader *bufio.Reader, length int) error {
	if length == 0 {
		return nil
	}

	buf := make([]byte, length)

	n, err := io.ReadFull(reader, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return aerr.Wrapf(err, "read body failed")
	}

	r.RawBody = buf[:n]
	r.Body = decodeBody(r.Headers["content-type"], string(r.RawBody))

	return nil
}

//-------------------------------------------------------------

// readRequestLine return first line of request; one empty line sent before
// request (i.e. after body of previous request) is skipped. io.EOF mean
// client closed connection or sent no request.
func readRequestLine(reader *bufio.Reader) (string, error) {
	for range 2 {
		line, err := readLine(reader)
		if err != nil {
			if errors.Is(err, io.EOF) && line == "" {
				return "", io.EOF
			}

			return "", err
		}

		if line != "" {
			return line, nil
		}
	}

	return "", io.EOF
}

func readLine(reader *bufio.Reader) (string, error) {
	var buf []byte

	for {
		chunk, isPrefix, err := reader.ReadLine()
		if err != nil {
			return string(buf), err //nolint:wrapcheck
		}

		buf = append(buf, chunk...)
		if len(buf) > maxLineLength {
			return "", ErrMalformedRequest.WithMeta("reason", "line too long")
		}

		if !isPrefix {
			return string(buf), nil
		}
	}
}

func readHeaders(reader *bufio.Reader) (map[string]string, error) {
	headers := make(map[string]string)

	for lines := 0; ; lines++ {
		if lines >= maxHeaderLines {
			return nil, ErrMalformedRequest.WithMeta("reason", "too many headers")
		}

		line, err := readLine(reader)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return headers, nil
			}

			return nil, err
		}

		if line == "" {
			return headers, nil
		}

		name, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}

		name = strings.ToLower(strings.TrimSpace(name))
		value = strings.TrimSpace(value)

		if prev, ok := headers[name]; ok {
			sep := ", "
			if name == "cookie" {
				sep = "; "
			}

			value = prev + sep + value
		}

		headers[name] = value
	}
}

func parseQuery(query string) map[string]string {
	params := make(map[string]string)
	if query == "" {
		return params
	}

	for pair := range strings.SplitSeq(query, "&") {
		if pair == "" {
			continue
		}

		key, value, _ := strings.Cut(pair, "=")
		params[unescape(key)] = unescape(value)
	}

	return params
}

func decodeBody(contentType, body string) map[string]string {
	contentType = strings.ToLower(strings.TrimSpace(contentType))

	switch {
	case strings.HasPrefix(contentType, "application/x-www-form-urlencoded"):
		form := make(map[string]string)

		for pair := range strings.SplitSeq(body, "&") {
			key, value, ok := strings.Cut(pair, "=")
			if !ok {
				continue
			}

			form[unescape(key)] = unescape(value)
		}

		return form
	case strings.HasPrefix(contentType, MimeJSON):
		return map[string]string{"raw": body}
	case strings.HasPrefix(contentType, MimeText):
		return map[string]string{"text": body}
	}

	return make(map[string]string)
}

func unescape(value string) string {
	if dec, err := url.QueryUnescape(value); err == nil {
		return dec
	}

	return value
}
