package web

//
// render.go
// Copyright (C) 2025 Karol Będkowski <Karol Będkowski@kkomp>
//
// Distributed under terms of the GPLv3 license.
//

import (
	"bytes"
	"context"
	"html/template"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"gitlab.com/kabes/go-httpd/internal/aerr"
)

// TemplateExt is extension of files rendered by TemplateRenderer.
const TemplateExt = ".gohtml"

// Renderer render template located by path relative to web root.
type Renderer interface {
	Render(relPath string, data any) (string, error)
}

// Render create html response from template. Rendering error is logged and
// result in 500 error page.
func Render(ctx context.Context, renderer Renderer, relPath string, data any) *Response {
	content, err := renderer.Render(relPath, data)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msgf("Render: render template %q error=%q", relPath, err)

		return MustError(StatusInternalServerError)
	}

	return newResponse(StatusOK, MimeHTML, []byte(content))
}

//-------------------------------------------------------------

// TemplateRenderer render html/template files from web root. Parsed templates
// are cached until file modification time changes.
type TemplateRenderer struct {
	webRoot string

	mu    sync.Mutex
	cache map[string]cachedTemplate
}

type cachedTemplate struct {
	tmpl    *template.Template
	modTime int64
}

func NewTemplateRenderer(webRoot string) *TemplateRenderer {
	return &TemplateRenderer{
		webRoot: webRoot,
		cache:   make(map[string]cachedTemplate),
	}
}

func (t *TemplateRenderer) Render(relPath string, data any) (string, error) {
	tmpl, err := t.load(relPath)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", aerr.Wrapf(err, "execute template failed").WithMeta("path", relPath)
	}

	return buf.String(), nil
}

func (t *TemplateRenderer) load(relPath string) (*template.Template, error) {
	relPath = filepath.Clean("/" + relPath)
	path := filepath.Join(t.webRoot, relPath)

	st, err := os.Stat(path)
	if err != nil {
		return nil, aerr.Wrapf(err, "template not found").WithMeta("path", relPath)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if c, ok := t.cache[relPath]; ok && c.modTime == st.ModTime().UnixNano() {
		return c.tmpl, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, aerr.Wrapf(err, "read template failed").WithMeta("path", relPath)
	}

	name := strings.TrimPrefix(relPath, "/")

	tmpl, err := template.New(name).Parse(string(content))
	if err != nil {
		return nil, aerr.Wrapf(err, "parse template failed").WithMeta("path", relPath)
	}

	t.cache[relPath] = cachedTemplate{tmpl, st.ModTime().UnixNano()}

	return tmpl, nil
}
