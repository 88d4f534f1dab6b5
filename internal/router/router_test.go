package router

//
// router_test.go
// Copyright (C) 2025 Karol Będkowski <Karol Będkowski@kkomp>
//
// Distributed under terms of the GPLv3 license.
//

import (
	"bufio"
	"context"
	"errors"
	"strings"
	"testing"

	"gitlab.com/kabes/go-httpd/internal/assert"
	"gitlab.com/kabes/go-httpd/internal/web"
)

func newRequest(t *testing.T, method, path string) *web.Request {
	t.Helper()

	raw := method + " " + path + " HTTP/1.1\r\nHost: localhost\r\n\r\n"

	req, err := web.ReadRequest(bufio.NewReader(strings.NewReader(raw)))
	if err != nil {
		t.Fatalf("parse request error: %#+v", err)
	}

	return req
}

func TestRouterResolve(t *testing.T) {
	rtr := New(APIFallback)
	rtr.Get("/a", func(_ context.Context, _ *web.Request) (*web.Response, error) {
		return web.Text("get a"), nil
	})
	rtr.Post("/a", func(_ context.Context, _ *web.Request) (*web.Response, error) {
		return web.Text("post a"), nil
	})
	rtr.Put("/err", func(_ context.Context, _ *web.Request) (*web.Response, error) {
		return nil, errors.New("failed")
	})
	rtr.Patch("/nil", func(_ context.Context, _ *web.Request) (*web.Response, error) {
		return nil, nil
	})
	rtr.Delete("/a", func(_ context.Context, req *web.Request) (*web.Response, error) {
		return web.Text("delete " + req.Query["id"]), nil
	})
	rtr.Handle("options", "/a", func(_ context.Context, _ *web.Request) (*web.Response, error) {
		return web.Text("options a"), nil
	})

	tests := []struct {
		method string
		path   string
		code   int
		body   string
	}{
		{"GET", "/a", 200, "get a"},
		{"HEAD", "/a", 200, "get a"},
		{"POST", "/a", 200, "post a"},
		{"DELETE", "/a?id=12", 200, "delete 12"},
		{"OPTIONS", "/a", 200, "options a"},
		{"GET", "/a/", 404, ""},
		{"PATCH", "/a", 404, ""},
		{"PUT", "/err", 500, ""},
		{"PATCH", "/nil", 500, ""},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			resp := rtr.Resolve(context.Background(), newRequest(t, tt.method, tt.path))
			assert.Equal(t, resp.Code(), tt.code)

			if tt.body != "" {
				assert.Equal(t, string(resp.Body()), tt.body)
			}
		})
	}

	assert.Equal(t, rtr.Routes(), []string{
		"DELETE /a", "GET /a", "OPTIONS /a", "PATCH /nil", "POST /a", "PUT /err",
	})
}

func TestRouterDefaultFallback(t *testing.T) {
	rtr := New(nil)

	resp := rtr.Resolve(context.Background(), newRequest(t, "GET", "/x"))
	assert.Equal(t, resp.Code(), web.StatusNotFound)
	assert.Equal(t, resp.MimeType(), web.MimeHTML)

	// request without path
	resp = rtr.Resolve(context.Background(), &web.Request{Method: "GET"})
	assert.Equal(t, resp.Code(), web.StatusBadRequest)
}
