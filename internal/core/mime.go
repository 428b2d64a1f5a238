package core

import (
	"path/filepath"
	"strings"
)

type AssetKind string

const (
	KindStylesheet AssetKind = "stylesheet"
	KindScript     AssetKind = "script"
	KindOther      AssetKind = "other"
)

var contentTypes = map[string]string{
	".css":   "text/css; charset=utf-8",
	".js":    "application/javascript; charset=utf-8",
	".mjs":   "application/javascript; charset=utf-8",
	".json":  "application/json",
	".html":  "text/html; charset=utf-8",
	".txt":   "text/plain; charset=utf-8",
	".png":   "image/png",
	".jpg":   "image/jpeg",
	".jpeg":  "image/jpeg",
	".gif":   "image/gif",
	".svg":   "image/svg+xml",
	".webp":  "image/webp",
	".woff":  "font/woff",
	".woff2": "font/woff2",
	".ttf":   "font/ttf",
	".eot":   "application/vnd.ms-fontobject",
	".ico":   "image/x-icon",
	".map":   "application/json",
}

func GetContentType(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if ct, ok := contentTypes[ext]; ok {
		return ct
	}
	return "application/octet-stream"
}

func KindForPath(path string) AssetKind {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".css":
		return KindStylesheet
	case ".js", ".mjs":
		return KindScript
	}
	return KindOther
}

func (k AssetKind) MediaType() string {
	switch k {
	case KindStylesheet:
		return "text/css"
	case KindScript:
		return "application/javascript"
	}
	return ""
}
