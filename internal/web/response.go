package web

//
// response.go
// Copyright (C) 2025 Karol Będkowski <Karol Będkowski@kkomp>
//
// Distributed under terms of the GPLv3 license.
//

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gitlab.com/kabes/go-httpd/internal/aerr"
	"gitlab.com/kabes/go-httpd/internal/cookie"
	"gitlab.com/kabes/go-httpd/internal/web/templates"
)

var (
	ErrUnsupportedStatus = aerr.NewSimple("unsupported status code").WithTag(aerr.ValidationError)
	ErrInvalidRedirect   = aerr.NewSimple("redirect only supports 301, 302 or 303").WithTag(aerr.ValidationError)
	ErrInvalidHeader     = aerr.NewSimple("invalid header").WithTag(aerr.ValidationError)
)

type headerField struct {
	name  string
	value string
}

// valid check header name is a token and value not contain line breaks.
func (h headerField) valid() bool {
	if h.name == "" || strings.ContainsAny(h.name, ":\r\n \t") {
		return false
	}

	return !strings.ContainsAny(h.value, "\r\n")
}

// Response is immutable http response; With* methods return modified copy.
type Response struct {
	code    int
	mime    string
	body    []byte
	headers []headerField
	cookies []*cookie.Cookie
}

// New create response with given status, content type, body and extra headers.
func New(code int, mime string, body []byte, headers map[string]string) (*Response, error) {
	if !IsStatusSupported(code) {
		return nil, ErrUnsupportedStatus.WithMeta("code", code)
	}

	resp := &Response{code: code, mime: mime}

	if bodyAllowed(code) {
		resp.body = body
	}

	// keep headers order stable
	names := make([]string, 0, len(headers))
	for name := range headers {
		names = append(names, name)
	}

	slices.Sort(names)

	for _, name := range names {
		field := headerField{strings.TrimSpace(name), strings.TrimSpace(headers[name])}
		if !field.valid() {
			return nil, ErrInvalidHeader.WithMeta("name", name)
		}

		resp.headers = append(resp.headers, field)
	}

	return resp, nil
}

func newResponse(code int, mime string, body []byte) *Response {
	if !bodyAllowed(code) {
		body = nil
	}

	return &Response{code: code, mime: mime, body: body}
}

// File load file content; directory is replaced by its index.html.
func File(path string) (*Response, error) {
	path = IndexIfDirectory(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, aerr.Wrapf(err, "read file failed").WithMeta("path", path)
	}

	return newResponse(StatusOK, MimeType(path), data), nil
}

// IndexIfDirectory return path to index.html when path is directory.
func IndexIfDirectory(path string) string {
	if st, err := os.Stat(path); err == nil && st.IsDir() {
		return filepath.Join(path, "index.html")
	}

	return path
}

func Text(text string) *Response {
	return newResponse(StatusOK, MimeText, []byte(text))
}

func JSON(json string) *Response {
	return newResponse(StatusOK, MimeJSON, []byte(json))
}

func JSONStatus(json string, code int) (*Response, error) {
	if !IsStatusSupported(code) {
		return nil, ErrUnsupportedStatus.WithMeta("code", code)
	}

	return newResponse(code, MimeJSON, []byte(json)), nil
}

// Redirect create 302 Found response.
func Redirect(url string) (*Response, error) {
	return RedirectCode(url, StatusFound)
}

func RedirectCode(url string, code int) (*Response, error) {
	if code != StatusMovedPermanently && code != StatusFound && code != StatusSeeOther {
		return nil, ErrInvalidRedirect.WithMeta("code", code)
	}

	location := headerField{"Location", strings.TrimSpace(url)}
	if location.value == "" || !location.valid() {
		return nil, ErrInvalidHeader.WithMeta("name", location.name)
	}

	resp := newResponse(code, MimeText, nil)
	resp.headers = []headerField{location}

	return resp, nil
}

// Error create html error page.
func Error(code int) (*Response, error) {
	if !IsStatusSupported(code) {
		return nil, ErrUnsupportedStatus.WithMeta("code", code)
	}

	if !bodyAllowed(code) {
		return newResponse(code, MimeText, nil), nil
	}

	return newResponse(code, MimeHTML, errorPage(code)), nil
}

// MustError is like Error but panics when code is not supported. For use with
// Status* constants.
func MustError(code int) *Response {
	resp, err := Error(code)
	if err != nil {
		panic(err)
	}

	return resp
}

// JSONError create json error body `{"error": "<reason>", "code": <code>}`.
func JSONError(code int) (*Response, error) {
	if !IsStatusSupported(code) {
		return nil, ErrUnsupportedStatus.WithMeta("code", code)
	}

	if !bodyAllowed(code) {
		return newResponse(code, MimeText, nil), nil
	}

	reason, _ := StatusText(code)
	body := fmt.Sprintf(`{"error": %q, "code": %d}`, reason, code)

	return newResponse(code, MimeJSON, []byte(body)), nil
}

// MustJSONError is like JSONError but panics when code is not supported.
func MustJSONError(code int) *Response {
	resp, err := JSONError(code)
	if err != nil {
		panic(err)
	}

	return resp
}

func (r *Response) Code() int {
	return r.code
}

func (r *Response) MimeType() string {
	return r.mime
}

// Body return body as sent to client; for errors it is the standard error page.
func (r *Response) Body() []byte {
	if r.code >= StatusBadRequest {
		return errorPage(r.code)
	}

	return r.body
}

// Header return first extra header with given name (case-insensitive).
func (r *Response) Header(name string) (string, bool) {
	for _, h := range r.headers {
		if strings.EqualFold(h.name, name) {
			return h.value, true
		}
	}

	return "", false
}

func (r *Response) Cookies() []*cookie.Cookie {
	return slices.Clone(r.cookies)
}

// WithCookie return copy of response with additional cookie. Cookie that
// serialize to more than one line is dropped.
func (r *Response) WithCookie(c *cookie.Cookie) *Response {
	n := r.clone()

	switch {
	case c == nil:
	case strings.ContainsAny(c.String(), "\r\n"):
		log.Warn().Str("cookie", c.Name).Msg("Response: cookie with line break dropped")
	default:
		n.cookies = append(n.cookies, c)
	}

	return n
}

// WithHeader return copy of response with additional header. Invalid header
// (empty or malformed name, line break in value) is dropped.
func (r *Response) WithHeader(name, value string) *Response {
	n := r.clone()

	field := headerField{strings.TrimSpace(name), strings.TrimSpace(value)}
	if !field.valid() {
		log.Warn().Str("header", name).Msg("Response: invalid header dropped")

		return n
	}

	n.headers = append(n.headers, field)

	return n
}

// Serialize encode response into wire format. Body is omitted for HEAD requests.
func (r *Response) Serialize(headOnly bool) []byte {
	var buf bytes.Buffer

	_ = r.write(&buf, headOnly)

	return buf.Bytes()
}

// WriteResponse write response to w.
func WriteResponse(w io.Writer, resp *Response, headOnly bool) error {
	if err := resp.write(w, headOnly); err != nil {
		return aerr.Wrapf(err, "write response failed")
	}

	return nil
}

func (r *Response) MarshalZerologObject(event *zerolog.Event) {
	event.Int("code", r.code).
		Str("content_type", r.mime).
		Int("size", len(r.Body()))
}

func (r *Response) write(w io.Writer, headOnly bool) error {
	body := r.Body()
	mime := r.mime

	if r.code >= StatusBadRequest {
		mime = MimeHTML
	}

	if mime == "" {
		mime = MimeBinary
	}

	reason, _ := StatusText(r.code)

	var head strings.Builder

	head.WriteString("HTTP/1.1 ")
	head.WriteString(strconv.Itoa(r.code))
	head.WriteByte(' ')
	head.WriteString(reason)
	head.WriteString("\r\n")

	if _, ok := r.Header("Content-Type"); !ok {
		head.WriteString("Content-Type: ")
		head.WriteString(mime)

		if strings.HasPrefix(mime, "text/") {
			head.WriteString("; charset=UTF-8")
		}

		head.WriteString("\r\n")
	}

	if _, ok := r.Header("Content-Length"); !ok {
		head.WriteString("Content-Length: ")
		head.WriteString(strconv.Itoa(len(body)))
		head.WriteString("\r\n")
	}

	for _, h := range r.headers {
		head.WriteString(h.name)
		head.WriteString(": ")
		head.WriteString(h.value)
		head.WriteString("\r\n")
	}

	for _, c := range r.cookies {
		head.WriteString("Set-Cookie: ")
		head.WriteString(c.String())
		head.WriteString("\r\n")
	}

	head.WriteString("\r\n")

	if _, err := io.WriteString(w, head.String()); err != nil {
		return err //nolint:wrapcheck
	}

	if headOnly || len(body) == 0 {
		return nil
	}

	_, err := w.Write(body)

	return err //nolint:wrapcheck
}

func (r *Response) clone() *Response {
	return &Response{
		code:    r.code,
		mime:    r.mime,
		body:    r.body,
		headers: slices.Clone(r.headers),
		cookies: slices.Clone(r.cookies),
	}
}

func errorPage(code int) []byte {
	reason, _ := StatusText(code)

	return []byte(templates.ErrorPage(code, reason))
}
