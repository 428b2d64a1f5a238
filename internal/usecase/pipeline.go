package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"

	"github.com/3-lines-studio/assetrev/internal/adapters/compress"
	"github.com/3-lines-studio/assetrev/internal/adapters/glob"
	"github.com/3-lines-studio/assetrev/internal/cache"
	"github.com/3-lines-studio/assetrev/internal/config"
	"github.com/3-lines-studio/assetrev/internal/core"
)

// Pipeline turns one source asset into its output file:
// read, transform, fingerprint, rename, record, write.
type Pipeline struct {
	transformer Transformer
	fs          FileSystem
	cache       TransformCache
}

func NewPipeline(transformer Transformer, fs FileSystem, cache TransformCache) *Pipeline {
	return &Pipeline{
		transformer: transformer,
		fs:          fs,
		cache:       cache,
	}
}

// Transform minifies source, consulting the cache first. key is the cache
// key for source, empty when no cache is configured.
func (p *Pipeline) Transform(path string, kind core.AssetKind, source []byte) (out []byte, key string, cached bool, err error) {
	if p.cache != nil {
		key = cache.Key(kind, source)
		if out, ok := p.cache.Get(key); ok {
			return out, key, true, nil
		}
	}

	out, err = p.transformer.Transform(path, kind, source)
	if err != nil {
		return nil, key, false, err
	}
	if p.cache != nil {
		p.cache.Set(key, out)
	}
	return out, key, false, nil
}

// OutputName derives the output path (relative to the output root) for an
// asset with the given minified content.
func OutputName(target config.Target, asset glob.Match, content []byte) (string, error) {
	name := core.SuffixedName(asset.Rel, target.Suffix)
	if target.Revision {
		revisioned, err := core.RevisionedName(name, core.Fingerprint(content))
		if err != nil {
			return "", err
		}
		name = revisioned
	}
	return core.JoinOutputPath(target.Dest, name)
}

// ProcessAsset runs a stylesheet or script through the pipeline. Syntax
// and duplicate-name failures are returned as *core.AssetError and leave
// no output behind; I/O failures wrap core.ErrIO.
func (p *Pipeline) ProcessAsset(ctx context.Context, bc *BuildContext, name string, target config.Target, asset glob.Match) (Output, error) {
	if err := ctx.Err(); err != nil {
		return Output{}, err
	}

	cfg := bc.Config
	srcPath := filepath.Join(cfg.SourceRoot, filepath.FromSlash(asset.Path))
	source, err := p.fs.ReadFile(srcPath)
	if err != nil {
		return Output{}, core.NewIOError(asset.Path, err)
	}

	kind := assetKind(target, asset.Path)
	minified, key, cached, err := p.Transform(asset.Path, kind, source)
	if err != nil {
		return Output{}, err
	}
	if key != "" {
		bc.useCacheKey(key)
	}

	physical, err := OutputName(target, asset, minified)
	if err != nil {
		return Output{}, &core.AssetError{Path: asset.Path, Kind: core.ErrInvalidName, Err: err}
	}

	if target.Revision {
		if err := bc.Manifest.Record(asset.Path, physical); err != nil {
			return Output{}, err
		}
		bc.markRevisioned()
	}

	if err := p.write(cfg, physical, minified); err != nil {
		return Output{}, core.NewIOError(asset.Path, err)
	}

	out := Output{
		Target:     name,
		Logical:    asset.Path,
		Physical:   physical,
		SourceSize: len(source),
		OutputSize: len(minified),
		Cached:     cached,
	}
	bc.addOutput(out)
	slog.Debug("asset processed", "run", bc.ID, "target", name, "logical", asset.Path, "physical", physical, "cached", cached)
	return out, nil
}

// CopyAsset copies a file verbatim below the target's dest.
func (p *Pipeline) CopyAsset(ctx context.Context, bc *BuildContext, name string, target config.Target, asset glob.Match) (Output, error) {
	if err := ctx.Err(); err != nil {
		return Output{}, err
	}

	cfg := bc.Config
	physical, err := core.JoinOutputPath(target.Dest, asset.Rel)
	if err != nil {
		return Output{}, &core.AssetError{Path: asset.Path, Kind: core.ErrInvalidName, Err: err}
	}

	srcPath := filepath.Join(cfg.SourceRoot, filepath.FromSlash(asset.Path))
	dstPath := filepath.Join(cfg.OutputRoot, filepath.FromSlash(physical))
	if err := p.fs.MkdirAll(filepath.Dir(dstPath), 0755); err != nil {
		return Output{}, core.NewIOError(asset.Path, err)
	}

	size := 0
	if copier, ok := p.fs.(fileCopier); ok {
		if err := copier.CopyFile(srcPath, dstPath); err != nil {
			return Output{}, core.NewIOError(asset.Path, err)
		}
	} else {
		data, err := p.fs.ReadFile(srcPath)
		if err != nil {
			return Output{}, core.NewIOError(asset.Path, err)
		}
		if err := p.fs.WriteFile(dstPath, data, 0644); err != nil {
			return Output{}, core.NewIOError(asset.Path, err)
		}
		size = len(data)
	}

	out := Output{
		Target:     name,
		Logical:    asset.Path,
		Physical:   physical,
		SourceSize: size,
		OutputSize: size,
		Copied:     true,
	}
	bc.addOutput(out)
	return out, nil
}

func (p *Pipeline) write(cfg *config.Config, physical string, data []byte) error {
	dstPath := filepath.Join(cfg.OutputRoot, filepath.FromSlash(physical))
	if err := p.fs.MkdirAll(filepath.Dir(dstPath), 0755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}
	if err := p.fs.WriteFile(dstPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", physical, err)
	}

	written := []string{dstPath}
	for _, enc := range cfg.Encodings() {
		encoded, err := compress.Encode(enc, data)
		if err == nil {
			err = p.fs.WriteFile(dstPath+enc.Ext(), encoded, 0644)
		}
		if err != nil {
			p.removeAll(written)
			return fmt.Errorf("failed to write %s%s: %w", physical, enc.Ext(), err)
		}
		written = append(written, dstPath+enc.Ext())
	}
	return nil
}

// removeAll drops the files of a partially written asset.
func (p *Pipeline) removeAll(names []string) {
	for _, name := range names {
		if err := p.fs.Remove(name); err != nil {
			slog.Warn("failed to remove partial output", "path", name, "error", err)
		}
	}
}

// EmitManifest serializes the run's manifest and writes it to the
// configured path.
func (p *Pipeline) EmitManifest(bc *BuildContext) ([]byte, error) {
	data, err := bc.Manifest.Marshal()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize manifest: %w", err)
	}

	manifestPath := bc.Config.Manifest
	if err := p.fs.MkdirAll(filepath.Dir(manifestPath), 0755); err != nil {
		return nil, core.NewIOError(manifestPath, err)
	}
	if err := p.fs.WriteFile(manifestPath, data, 0644); err != nil {
		return nil, core.NewIOError(manifestPath, err)
	}
	return data, nil
}

func assetKind(target config.Target, p string) core.AssetKind {
	switch target.Kind {
	case config.KindStylesheet:
		return core.KindStylesheet
	case config.KindScript:
		return core.KindScript
	}
	return core.KindForPath(path.Base(p))
}

// isFatal reports whether err should abort the whole run rather than
// fail a single asset.
func isFatal(err error) bool {
	switch {
	case errors.Is(err, core.ErrSyntax),
		errors.Is(err, core.ErrDuplicateLogicalName),
		errors.Is(err, core.ErrInvalidName):
		return false
	}
	return true
}
