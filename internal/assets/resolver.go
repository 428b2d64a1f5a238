// Package assets resolves logical asset names to the fingerprinted URLs
// recorded in a build manifest, for use from server-side templates.
package assets

import (
	"errors"
	"fmt"
	"html/template"
	"strings"
	"sync"

	"github.com/3-lines-studio/assetrev/internal/adapters/fs"
	"github.com/3-lines-studio/assetrev/internal/core"
)

var ErrUnknownAsset = errors.New("unknown asset")

type Options struct {
	// Enabled turns manifest lookups on. A disabled resolver returns names
	// unchanged, which suits development against unbuilt sources.
	Enabled bool
	// Strict makes names missing from the manifest an error instead of
	// passing them through.
	Strict bool
	// URLPrefix is prepended to resolved names, e.g. "/static/".
	URLPrefix string
}

type Resolver struct {
	opts FileOptions

	mu        sync.RWMutex
	manifest  *core.Manifest
	physicals map[string]struct{}
}

// FileOptions locates the manifest on FS.
type FileOptions struct {
	Options
	FS           fs.FileSystem
	ManifestPath string
}

func NewResolver(opts FileOptions) (*Resolver, error) {
	r := &Resolver{opts: opts}
	if !opts.Enabled {
		return r, nil
	}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// NewResolverFromManifest builds an enabled resolver over an in-memory
// manifest.
func NewResolverFromManifest(m *core.Manifest, opts Options) *Resolver {
	opts.Enabled = true
	r := &Resolver{opts: FileOptions{Options: opts}}
	r.setManifest(m)
	return r
}

// Reload re-reads the manifest, e.g. after a watch rebuild.
func (r *Resolver) Reload() error {
	if r.opts.FS == nil {
		return fmt.Errorf("no manifest source configured")
	}
	data, err := r.opts.FS.ReadFile(r.opts.ManifestPath)
	if err != nil {
		return fmt.Errorf("failed to read manifest %s: %w", r.opts.ManifestPath, err)
	}
	m, err := core.ParseManifest(data)
	if err != nil {
		return fmt.Errorf("failed to parse manifest %s: %w", r.opts.ManifestPath, err)
	}

	r.setManifest(m)
	return nil
}

func (r *Resolver) setManifest(m *core.Manifest) {
	physicals := make(map[string]struct{}, m.Len())
	for _, entry := range m.Entries() {
		physicals[entry.Physical] = struct{}{}
	}

	r.mu.Lock()
	r.manifest = m
	r.physicals = physicals
	r.mu.Unlock()
}

// IsVersioned reports whether name, relative to the output root, is a
// fingerprinted file recorded in the manifest.
func (r *Resolver) IsVersioned(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.physicals[core.NormalizeLogicalPath(name)]
	return ok
}

// Versioned maps a logical name such as "css/style-v1.css" to its
// fingerprinted URL.
func (r *Resolver) Versioned(name string) (string, error) {
	if !r.opts.Enabled {
		return name, nil
	}

	logical := core.NormalizeLogicalPath(name)
	r.mu.RLock()
	physical, ok := r.manifest.Lookup(logical)
	r.mu.RUnlock()

	if !ok {
		if r.opts.Strict {
			return "", fmt.Errorf("%w: %s", ErrUnknownAsset, name)
		}
		return r.url(logical), nil
	}
	return r.url(physical), nil
}

func (r *Resolver) url(p string) string {
	if r.opts.URLPrefix == "" {
		return p
	}
	return strings.TrimSuffix(r.opts.URLPrefix, "/") + "/" + p
}

// FuncMap exposes Versioned as the "versioned" template function.
func (r *Resolver) FuncMap() template.FuncMap {
	return template.FuncMap{
		"versioned": r.Versioned,
	}
}
