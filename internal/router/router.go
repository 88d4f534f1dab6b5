package router

//
// router.go
// Copyright (C) 2025 Karol Będkowski <Karol Będkowski@kkomp>
//
// Distributed under terms of the GPLv3 license.
//

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/rs/zerolog/log"
	"gitlab.com/kabes/go-httpd/internal/common"
	"gitlab.com/kabes/go-httpd/internal/web"
)

// HandlerFunc handle request matched by method and path.
type HandlerFunc func(ctx context.Context, req *web.Request) (*web.Response, error)

// Fallback handle request not matched by any route.
type Fallback func(ctx context.Context, req *web.Request) *web.Response

// Router resolve requests by exact method and path match.
type Router struct {
	routes   map[string]map[string]HandlerFunc
	fallback Fallback
}

func New(fallback Fallback) *Router {
	if fallback == nil {
		fallback = NotFoundFallback
	}

	return &Router{
		routes:   make(map[string]map[string]HandlerFunc),
		fallback: fallback,
	}
}

func (r *Router) Get(path string, handler HandlerFunc) {
	r.Handle("GET", path, handler)
}

func (r *Router) Post(path string, handler HandlerFunc) {
	r.Handle("POST", path, handler)
}

func (r *Router) Put(path string, handler HandlerFunc) {
	r.Handle("PUT", path, handler)
}

func (r *Router) Patch(path string, handler HandlerFunc) {
	r.Handle("PATCH", path, handler)
}

func (r *Router) Delete(path string, handler HandlerFunc) {
	r.Handle("DELETE", path, handler)
}

// Handle register handler for method and path; previous handler is replaced.
func (r *Router) Handle(method, path string, handler HandlerFunc) {
	method = strings.ToUpper(method)

	routes, ok := r.routes[method]
	if !ok {
		routes = make(map[string]HandlerFunc)
		r.routes[method] = routes
	}

	routes[path] = handler
}

// Resolve find handler for request. HEAD requests use GET handlers when
// there is no dedicated one. Handler errors are reported as 500.
func (r *Router) Resolve(ctx context.Context, req *web.Request) *web.Response {
	if req.Method == "" || req.Path == "" {
		return web.MustError(web.StatusBadRequest)
	}

	handler, ok := r.find(req.Method, req.Path)
	if !ok {
		return r.fallback(ctx, req)
	}

	resp, err := handler(ctx, req)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msgf("Router: handler for %s %s error=%q", req.Method, req.Path, err)
		common.TraceErrorLazyPrintf(ctx, "Router: handler error=%q", err)

		return web.MustError(web.StatusInternalServerError)
	}

	if resp == nil {
		return web.MustError(web.StatusInternalServerError)
	}

	return resp
}

// Routes return sorted list of registered routes.
func (r *Router) Routes() []string {
	var res []string

	for method, routes := range r.routes {
		for path := range routes {
			res = append(res, fmt.Sprintf("%s %s", method, path))
		}
	}

	slices.Sort(res)

	return res
}

func (r *Router) find(method, path string) (HandlerFunc, bool) {
	if handler, ok := r.routes[method][path]; ok {
		return handler, true
	}

	if method == "HEAD" {
		handler, ok := r.routes["GET"][path]

		return handler, ok
	}

	return nil, false
}
