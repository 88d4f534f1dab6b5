package web

//
// render_test.go
// Copyright (C) 2025 Karol Będkowski <Karol Będkowski@kkomp>
//
// Distributed under terms of the GPLv3 license.
//

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gitlab.com/kabes/go-httpd/internal/assert"
)

type failingRenderer struct{}

func (failingRenderer) Render(string, any) (string, error) {
	return "", errors.New("boom")
}

func TestTemplateRenderer(t *testing.T) {
	dir := t.TempDir()
	assert.NoErr(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o700))
	assert.NoErr(t, os.WriteFile(filepath.Join(dir, "sub", "page.gohtml"),
		[]byte("<p>Hello {{ .Name }}</p>"), 0o600))
	assert.NoErr(t, os.WriteFile(filepath.Join(dir, "bad.gohtml"), []byte("{{ .Name "), 0o600))

	renderer := NewTemplateRenderer(dir)

	out, err := renderer.Render("sub/page.gohtml", map[string]string{"Name": "<b>"})
	assert.NoErr(t, err)
	assert.Equal(t, out, "<p>Hello &lt;b&gt;</p>")

	// cached
	out, err = renderer.Render("/sub/page.gohtml", map[string]string{"Name": "x"})
	assert.NoErr(t, err)
	assert.Equal(t, out, "<p>Hello x</p>")

	_, err = renderer.Render("bad.gohtml", nil)
	assert.ErrSpec(t, err, "parse template failed")

	_, err = renderer.Render("missing.gohtml", nil)
	assert.ErrSpec(t, err, "template not found")

	resp := Render(context.Background(), renderer, "sub/page.gohtml", map[string]string{"Name": "y"})
	assert.Equal(t, resp.Code(), StatusOK)
	assert.Equal(t, resp.MimeType(), MimeHTML)
	assert.Equal(t, string(resp.Body()), "<p>Hello y</p>")
}

func TestRenderFailed(t *testing.T) {
	resp := Render(context.Background(), failingRenderer{}, "x", nil)
	assert.Equal(t, resp.Code(), StatusInternalServerError)
	assert.Equal(t, resp.MimeType(), MimeHTML)
	assert.True(t, !strings.Contains(string(resp.Serialize(false)), "boom"))
}
