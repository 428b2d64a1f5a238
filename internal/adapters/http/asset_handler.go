package http

import (
	"bytes"
	iofs "io/fs"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/3-lines-studio/assetrev/internal/adapters/compress"
	"github.com/3-lines-studio/assetrev/internal/core"
)

const (
	immutableCacheControl  = "public, max-age=31536000, immutable"
	revalidateCacheControl = "no-cache"
)

// AssetHandler serves a build output root. Fingerprinted files are cached
// forever; precompressed sidecars are served when the client accepts them.
type AssetHandler struct {
	fsys      iofs.FS
	immutable func(name string) bool
}

// NewAssetHandler serves fsys. immutable decides which paths get the
// long-lived cache header, typically the manifest's physical names; nil
// falls back to the revisioned name shape.
func NewAssetHandler(fsys iofs.FS, immutable func(name string) bool) http.Handler {
	if immutable == nil {
		immutable = core.IsRevisionedName
	}
	return &AssetHandler{fsys: fsys, immutable: immutable}
}

func (h *AssetHandler) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet && req.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	name := strings.TrimPrefix(path.Clean("/"+req.URL.Path), "/")
	if name == "" || !iofs.ValidPath(name) {
		http.NotFound(w, req)
		return
	}

	info, err := iofs.Stat(h.fsys, name)
	if err != nil || info.IsDir() {
		http.NotFound(w, req)
		return
	}

	header := w.Header()
	header.Set("Content-Type", core.GetContentType(name))
	if h.immutable(name) {
		header.Set("Cache-Control", immutableCacheControl)
	} else {
		header.Set("Cache-Control", revalidateCacheControl)
	}

	servePath := name
	if enc, ok := h.negotiate(req, name); ok {
		servePath = name + enc.Ext()
		header.Set("Content-Encoding", string(enc))
		header.Add("Vary", "Accept-Encoding")
	} else if h.hasSidecar(name) {
		header.Add("Vary", "Accept-Encoding")
	}

	data, err := iofs.ReadFile(h.fsys, servePath)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	http.ServeContent(w, req, path.Base(name), info.ModTime(), bytes.NewReader(data))
}

// negotiate picks the first sidecar, zstd before gzip, that exists and that
// the client accepts.
func (h *AssetHandler) negotiate(req *http.Request, name string) (compress.Encoding, bool) {
	accepted := acceptedEncodings(req.Header.Get("Accept-Encoding"))
	for _, enc := range []compress.Encoding{compress.Zstd, compress.Gzip} {
		if !accepted[string(enc)] {
			continue
		}
		if _, err := iofs.Stat(h.fsys, name+enc.Ext()); err == nil {
			return enc, true
		}
	}
	return "", false
}

func (h *AssetHandler) hasSidecar(name string) bool {
	for _, enc := range []compress.Encoding{compress.Zstd, compress.Gzip} {
		if _, err := iofs.Stat(h.fsys, name+enc.Ext()); err == nil {
			return true
		}
	}
	return false
}

func acceptedEncodings(header string) map[string]bool {
	accepted := make(map[string]bool)
	for _, part := range strings.Split(header, ",") {
		token, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		token = strings.ToLower(strings.TrimSpace(token))
		if token == "" {
			continue
		}
		q := 1.0
		for _, param := range strings.Split(params, ";") {
			key, value, ok := strings.Cut(strings.TrimSpace(param), "=")
			if ok && strings.TrimSpace(key) == "q" {
				if parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
					q = parsed
				}
			}
		}
		accepted[token] = q > 0
	}
	if accepted["*"] {
		for _, enc := range []string{"gzip", "zstd"} {
			if _, set := accepted[enc]; !set {
				accepted[enc] = true
			}
		}
	}
	return accepted
}
