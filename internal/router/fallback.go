package router

//
// fallback.go
// Copyright (C) 2025 Karol Będkowski <Karol Będkowski@kkomp>
//
// Distributed under terms of the GPLv3 license.
//

import (
	"context"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"gitlab.com/kabes/go-httpd/internal/config"
	"gitlab.com/kabes/go-httpd/internal/session"
	"gitlab.com/kabes/go-httpd/internal/web"
)

// NotFoundFallback respond 404 for every request.
func NotFoundFallback(_ context.Context, _ *web.Request) *web.Response {
	return web.MustError(web.StatusNotFound)
}

// APIFallback respond json 404.
func APIFallback(_ context.Context, _ *web.Request) *web.Response {
	return web.MustJSONError(web.StatusNotFound)
}

// StaticFallback serve files from webRoot. Files with web.TemplateExt are
// rendered by renderer when it is not nil.
func StaticFallback(webRoot string, renderer web.Renderer) Fallback {
	root := canonicalPath(webRoot)

	return func(ctx context.Context, req *web.Request) *web.Response {
		return serveStatic(ctx, root, renderer, req)
	}
}

// HybridFallback serve static files for GET and HEAD; other methods are not allowed.
func HybridFallback(webRoot string, renderer web.Renderer) Fallback {
	static := StaticFallback(webRoot, renderer)

	return func(ctx context.Context, req *web.Request) *web.Response {
		if !isStaticMethod(req.Method) {
			return web.MustError(web.StatusMethodNotAllowed)
		}

		return static(ctx, req)
	}
}

// NewFallback create fallback for router mode.
func NewFallback(mode config.RouterMode, webRoot string, renderer web.Renderer) Fallback {
	switch mode {
	case config.RouterAPI:
		return APIFallback
	case config.RouterHybrid:
		return HybridFallback(webRoot, renderer)
	case config.RouterStatic:
		return StaticFallback(webRoot, renderer)
	}

	return NotFoundFallback
}

//-------------------------------------------------------------

// TemplateContext is data passed to rendered templates.
type TemplateContext struct {
	Method  string
	Path    string
	Query   map[string]string
	Body    map[string]string
	Headers map[string]string
	Session *session.Session
}

func newTemplateContext(req *web.Request) *TemplateContext {
	return &TemplateContext{
		Method:  req.Method,
		Path:    req.Path,
		Query:   req.Query,
		Body:    req.Body,
		Headers: req.Headers,
		Session: req.Session(),
	}
}

func serveStatic(ctx context.Context, root string, renderer web.Renderer, req *web.Request) *web.Response {
	logger := log.Ctx(ctx)

	decoded, err := url.PathUnescape(strings.TrimPrefix(req.Path, "/"))
	if err != nil {
		return web.MustError(web.StatusBadRequest)
	}

	resource := canonicalPath(filepath.Join(root, filepath.FromSlash(decoded)))
	resource = web.IndexIfDirectory(resource)

	rel, ok := underRoot(root, resource)

	switch {
	case !ok:
		logger.Warn().Msgf("Router: path outside web root path=%q", req.Path)

		return web.MustError(web.StatusForbidden)
	case !isStaticMethod(req.Method):
		return web.MustError(web.StatusMethodNotAllowed)
	case !isRegularFile(resource):
		return web.MustError(web.StatusNotFound)
	}

	if renderer != nil && strings.EqualFold(filepath.Ext(resource), web.TemplateExt) {
		return web.Render(ctx, renderer, rel, newTemplateContext(req))
	}

	resp, err := web.File(resource)
	if err != nil {
		logger.Error().Err(err).Msgf("Router: load file %q error=%q", resource, err)

		return web.MustError(web.StatusInternalServerError)
	}

	return resp
}

func isStaticMethod(method string) bool {
	return method == "GET" || method == "HEAD"
}

func isRegularFile(path string) bool {
	st, err := os.Stat(path)

	return err == nil && st.Mode().IsRegular()
}

// canonicalPath return absolute path with resolved symlinks (when path exists).
func canonicalPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}

	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		return resolved
	}

	return filepath.Clean(path)
}

// underRoot check is path inside root and return path relative to root.
func underRoot(root, path string) (string, bool) {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}

	return filepath.ToSlash(rel), true
}
