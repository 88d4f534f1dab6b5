package router

//
// fallback_test.go
// Copyright (C) 2025 Karol Będkowski <Karol Będkowski@kkomp>
//
// Distributed under terms of the GPLv3 license.
//

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"gitlab.com/kabes/go-httpd/internal/assert"
	"gitlab.com/kabes/go-httpd/internal/config"
	"gitlab.com/kabes/go-httpd/internal/web"
)

func prepareWebRoot(t *testing.T) string {
	t.Helper()

	base := t.TempDir()
	root := filepath.Join(base, "www")

	files := map[string]string{
		filepath.Join(base, "secret.txt"):              "secret",
		filepath.Join(root, "index.html"):              "<p>index</p>",
		filepath.Join(root, "css", "style.css"):        "body {}",
		filepath.Join(root, "docs", "index.html"):      "<p>docs</p>",
		filepath.Join(root, "hello world.txt"):         "hello",
		filepath.Join(root, "page.gohtml"):             "<p>{{ .Method }} {{ index .Query \"name\" }}</p>",
		filepath.Join(root, "empty", ".keep"):          "",
		filepath.Join(root, "data", "report.unknown"): "xx",
	}

	for path, content := range files {
		assert.NoErr(t, os.MkdirAll(filepath.Dir(path), 0o700))
		assert.NoErr(t, os.WriteFile(path, []byte(content), 0o600))
	}

	return root
}

func TestStaticFallback(t *testing.T) {
	root := prepareWebRoot(t)
	fallback := StaticFallback(root, web.NewTemplateRenderer(root))

	tests := []struct {
		method string
		path   string
		code   int
		mime   string
		body   string
	}{
		{"GET", "/", 200, "text/html", "<p>index</p>"},
		{"HEAD", "/", 200, "text/html", "<p>index</p>"},
		{"GET", "/css/style.css", 200, "text/css", "body {}"},
		{"GET", "/docs", 200, "text/html", "<p>docs</p>"},
		{"GET", "/docs/", 200, "text/html", "<p>docs</p>"},
		{"GET", "/hello%20world.txt", 200, "text/plain", "hello"},
		{"GET", "/data/report.unknown", 200, "application/octet-stream", "xx"},
		{"GET", "/page.gohtml?name=abc", 200, "text/html", "<p>GET abc</p>"},
		{"GET", "/missing.html", 404, "text/html", ""},
		{"GET", "/empty", 404, "text/html", ""},
		{"GET", "/../secret.txt", 403, "text/html", ""},
		{"GET", "/%2e%2e/secret.txt", 403, "text/html", ""},
		{"GET", "/css/../../secret.txt", 403, "text/html", ""},
		{"POST", "/", 405, "text/html", ""},
		{"DELETE", "/missing", 405, "text/html", ""},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			resp := fallback(context.Background(), newRequest(t, tt.method, tt.path))
			assert.Equal(t, resp.Code(), tt.code)
			assert.Equal(t, resp.MimeType(), tt.mime)

			if tt.body != "" {
				assert.Equal(t, string(resp.Body()), tt.body)
			}
		})
	}
}

func TestStaticFallbackSymlinkEscape(t *testing.T) {
	root := prepareWebRoot(t)

	if err := os.Symlink(filepath.Join(root, "..", "secret.txt"), filepath.Join(root, "link.txt")); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}

	resp := StaticFallback(root, nil)(context.Background(), newRequest(t, "GET", "/link.txt"))
	assert.Equal(t, resp.Code(), web.StatusForbidden)
}

func TestAPIFallback(t *testing.T) {
	resp := APIFallback(context.Background(), newRequest(t, "GET", "/x"))
	assert.Equal(t, resp.Code(), web.StatusNotFound)
	assert.Equal(t, resp.MimeType(), web.MimeJSON)
}

func TestHybridFallback(t *testing.T) {
	root := prepareWebRoot(t)
	fallback := HybridFallback(root, nil)

	resp := fallback(context.Background(), newRequest(t, "GET", "/css/style.css"))
	assert.Equal(t, resp.Code(), web.StatusOK)

	resp = fallback(context.Background(), newRequest(t, "POST", "/css/style.css"))
	assert.Equal(t, resp.Code(), web.StatusMethodNotAllowed)

	// without renderer templates are served as files
	resp = fallback(context.Background(), newRequest(t, "GET", "/page.gohtml"))
	assert.Equal(t, resp.Code(), web.StatusOK)
	assert.Equal(t, resp.MimeType(), web.MimeBinary)
}

func TestNewFallback(t *testing.T) {
	root := prepareWebRoot(t)

	tests := []struct {
		mode config.RouterMode
		code int
		mime string
	}{
		{config.RouterStatic, 405, web.MimeHTML},
		{config.RouterHybrid, 405, web.MimeHTML},
		{config.RouterAPI, 404, web.MimeJSON},
		{config.RouterMode("other"), 404, web.MimeHTML},
	}

	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			resp := NewFallback(tt.mode, root, nil)(context.Background(), newRequest(t, "PUT", "/index.html"))
			assert.Equal(t, resp.Code(), tt.code)
			assert.Equal(t, resp.MimeType(), tt.mime)
		})
	}
}
