package web

//
// mime.go
// Copyright (C) 2025 Karol Będkowski <Karol Będkowski@kkomp>
//
// Distributed under terms of the GPLv3 license.
//

import (
	"path/filepath"
	"strings"
)

const (
	MimeHTML   = "text/html"
	MimeText   = "text/plain"
	MimeJSON   = "application/json"
	MimeBinary = "application/octet-stream"
)

//nolint:gochecknoglobals
var mimeTypes = map[string]string{
	".html":  MimeHTML,
	".htm":   MimeHTML,
	".css":   "text/css",
	".js":    "application/javascript",
	".json":  MimeJSON,
	".png":   "image/png",
	".jpg":   "image/jpeg",
	".jpeg":  "image/jpeg",
	".gif":   "image/gif",
	".ico":   "image/x-icon",
	".svg":   "image/svg+xml",
	".webp":  "image/webp",
	".txt":   MimeText,
	".xml":   "application/xml",
	".woff":  "font/woff",
	".woff2": "font/woff2",
	".ttf":   "font/ttf",
	".mp4":   "video/mp4",
	".pdf":   "application/pdf",
}

// MimeType guess content type by file extension.
func MimeType(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if mime, ok := mimeTypes[ext]; ok {
		return mime
	}

	return MimeBinary
}
