// Package assetrev serves assets produced by the assetrev build tool and
// resolves logical names such as "css/style-v1.css" to their fingerprinted
// URLs for use in templates.
package assetrev

import (
	"html/template"
	iofs "io/fs"
	"net/http"
	"strings"

	"github.com/3-lines-studio/assetrev/internal/adapters/fs"
	assethttp "github.com/3-lines-studio/assetrev/internal/adapters/http"
	"github.com/3-lines-studio/assetrev/internal/assets"
)

const (
	DefaultManifest = "rev-manifest.json"
	DefaultPrefix   = "/static/"
)

// ErrUnknownAsset is returned by Versioned in strict mode.
var ErrUnknownAsset = assets.ErrUnknownAsset

type options struct {
	manifestFS   iofs.FS
	manifestPath string
	prefix       string
	strict       bool
	disabled     bool
}

type Option func(*options)

// WithManifest reads the manifest from path inside fsys instead of
// DefaultManifest inside the output root.
func WithManifest(fsys iofs.FS, path string) Option {
	return func(o *options) {
		o.manifestFS = fsys
		o.manifestPath = path
	}
}

func WithPrefix(prefix string) Option {
	return func(o *options) { o.prefix = prefix }
}

// WithStrict makes Versioned fail for names missing from the manifest.
func WithStrict() Option {
	return func(o *options) { o.strict = true }
}

// WithoutVersioning returns logical names unchanged, for development
// against unbuilt sources.
func WithoutVersioning() Option {
	return func(o *options) { o.disabled = true }
}

type App struct {
	resolver *assets.Resolver
	handler  http.Handler
	prefix   string
}

type router interface {
	http.Handler
	Handle(pattern string, handler http.Handler)
}

// New serves the build output in outputFS and loads its manifest.
func New(outputFS iofs.FS, opts ...Option) (*App, error) {
	o := options{
		manifestFS:   outputFS,
		manifestPath: DefaultManifest,
		prefix:       DefaultPrefix,
	}
	for _, opt := range opts {
		opt(&o)
	}
	prefix := normalizePrefix(o.prefix)

	resolver, err := assets.NewResolver(assets.FileOptions{
		Options: assets.Options{
			Enabled:   !o.disabled,
			Strict:    o.strict,
			URLPrefix: prefix,
		},
		FS:           fs.NewReadOnlyFileSystem(o.manifestFS),
		ManifestPath: o.manifestPath,
	})
	if err != nil {
		return nil, err
	}

	var immutable func(string) bool
	if !o.disabled {
		immutable = resolver.IsVersioned
	}

	return &App{
		resolver: resolver,
		handler:  assethttp.NewAssetHandler(outputFS, immutable),
		prefix:   prefix,
	}, nil
}

func (a *App) Versioned(name string) (string, error) {
	return a.resolver.Versioned(name)
}

// FuncMap exposes Versioned to html/template as "versioned".
func (a *App) FuncMap() template.FuncMap {
	return a.resolver.FuncMap()
}

// Reload re-reads the manifest after a rebuild.
func (a *App) Reload() error {
	return a.resolver.Reload()
}

// Wrap mounts the asset handler on api under the configured prefix.
func (a *App) Wrap(api router) http.Handler {
	if api == nil {
		panic("assetrev: nil router passed to Wrap; use app.Handler()")
	}
	api.Handle(a.prefix, http.StripPrefix(strings.TrimSuffix(a.prefix, "/"), a.handler))
	return api
}

func (a *App) Handler() http.Handler {
	return a.Wrap(http.NewServeMux())
}

func normalizePrefix(prefix string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return "/"
	}
	return "/" + prefix + "/"
}
