package usecase

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/3-lines-studio/assetrev/internal/adapters/cli"
	"github.com/3-lines-studio/assetrev/internal/adapters/fs"
	"github.com/3-lines-studio/assetrev/internal/cache"
	"github.com/3-lines-studio/assetrev/internal/config"
	"github.com/3-lines-studio/assetrev/internal/core"
	"github.com/3-lines-studio/assetrev/internal/transform"
)

type countingTransformer struct {
	calls atomic.Int64
}

func (c *countingTransformer) Transform(path string, kind core.AssetKind, source []byte) ([]byte, error) {
	c.calls.Add(1)
	return bytes.TrimSpace(source), nil
}

type failingTransformer struct{}

func (failingTransformer) Transform(path string, kind core.AssetKind, source []byte) ([]byte, error) {
	return nil, core.NewSyntaxError(path, 1, 1, errors.New("transformer should not run"))
}

func newProject(t *testing.T, files map[string]string) *config.Config {
	t.Helper()
	root := t.TempDir()
	cfg := config.Default()
	cfg.Resolve(root)

	for name, content := range files {
		p := filepath.Join(cfg.SourceRoot, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return cfg
}

func newBuildService(cfg *config.Config, transformer Transformer, store *cache.Cache) (*BuildService, *bytes.Buffer) {
	var buf bytes.Buffer
	return NewBuildService(cfg, transformer, fs.NewOSFileSystem(), cli.NewWriterOutput(&buf), store), &buf
}

func readManifest(t *testing.T, cfg *config.Config) *core.Manifest {
	t.Helper()
	data, err := os.ReadFile(cfg.Manifest)
	if err != nil {
		t.Fatalf("failed to read manifest: %v", err)
	}
	m, err := core.ParseManifest(data)
	if err != nil {
		t.Fatalf("failed to parse manifest: %v", err)
	}
	return m
}

func readOutput(t *testing.T, cfg *config.Config, physical string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(cfg.OutputRoot, filepath.FromSlash(physical)))
	if err != nil {
		t.Fatalf("failed to read output %s: %v", physical, err)
	}
	return data
}

func TestBuildStylesheetAndScript(t *testing.T) {
	cfg := newProject(t, map[string]string{
		"css/style-v1.css": "body { color: red; }",
		"js/app.js":        "function f(){return 1;}",
	})
	service, _ := newBuildService(cfg, transform.NewMinifier(), nil)

	result, err := service.Run(context.Background(), BuildInput{})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	m := readManifest(t, cfg)
	if m.Len() != 2 {
		t.Fatalf("manifest has %d entries, want 2: %v", m.Len(), m.Entries())
	}

	cssPhysical, ok := m.Lookup("css/style-v1.css")
	if !ok {
		t.Fatal("missing manifest entry for css/style-v1.css")
	}
	wantCSS := "body{color:red}"
	if want := "css/style-v1-" + core.Fingerprint([]byte(wantCSS)) + ".css"; cssPhysical != want {
		t.Errorf("css physical = %q, want %q", cssPhysical, want)
	}
	if got := string(readOutput(t, cfg, cssPhysical)); got != wantCSS {
		t.Errorf("css output = %q, want %q", got, wantCSS)
	}

	jsPhysical, ok := m.Lookup("js/app.js")
	if !ok {
		t.Fatal("missing manifest entry for js/app.js")
	}
	parts, err := core.ParseRevisionedName(jsPhysical)
	if err != nil {
		t.Fatalf("js physical %q is not revisioned: %v", jsPhysical, err)
	}
	if parts.Dir != "js/" || parts.Stem != "app.min" || parts.Ext != ".js" {
		t.Errorf("unexpected js name parts: %+v", parts)
	}
	if got := core.Fingerprint(readOutput(t, cfg, jsPhysical)); got != parts.Token {
		t.Errorf("js token %s does not match content fingerprint %s", parts.Token, got)
	}

	if len(result.Context.Outputs()) != 2 {
		t.Errorf("outputs = %d, want 2", len(result.Context.Outputs()))
	}
	if !bytes.Equal(result.Manifest, mustRead(t, cfg.Manifest)) {
		t.Error("result manifest differs from the file on disk")
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	cfg := newProject(t, map[string]string{
		"css/style-v1.css": "body { color: red; }",
		"css/print-v1.css": "@media print { a { color: black } }",
		"js/app.js":        "function f(){return 1;}",
	})

	service, _ := newBuildService(cfg, transform.NewMinifier(), nil)
	if _, err := service.Run(context.Background(), BuildInput{}); err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	first := mustRead(t, cfg.Manifest)

	service, _ = newBuildService(cfg, transform.NewMinifier(), nil)
	if _, err := service.Run(context.Background(), BuildInput{}); err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	second := mustRead(t, cfg.Manifest)

	if !bytes.Equal(first, second) {
		t.Errorf("manifest changed between runs:\n%s\n%s", first, second)
	}
	if !strings.HasSuffix(string(first), "\n") {
		t.Error("manifest should end with a newline")
	}
}

func TestBuildSyntaxErrorIsolated(t *testing.T) {
	cfg := newProject(t, map[string]string{
		"css/style-v1.css": "body { color: red;",
		"js/app.js":        "function f(){return 1;}",
	})
	service, out := newBuildService(cfg, transform.NewMinifier(), nil)

	result, err := service.Run(context.Background(), BuildInput{})
	if err == nil {
		t.Fatal("expected build to fail")
	}
	if !errors.Is(err, ErrBuildFailed) {
		t.Errorf("expected ErrBuildFailed, got %v", err)
	}
	if !errors.Is(err, core.ErrSyntax) {
		t.Errorf("expected ErrSyntax, got %v", err)
	}

	if _, statErr := os.Stat(cfg.Manifest); !os.IsNotExist(statErr) {
		t.Error("manifest must not be written when an asset failed")
	}
	if _, ok := result.Context.Manifest.Lookup("css/style-v1.css"); ok {
		t.Error("failed stylesheet must not be recorded")
	}
	matches, _ := filepath.Glob(filepath.Join(cfg.OutputRoot, "css", "*"))
	if len(matches) != 0 {
		t.Errorf("failed stylesheet left output: %v", matches)
	}

	if _, ok := result.Context.Manifest.Lookup("js/app.js"); !ok {
		t.Error("script should still be processed")
	}
	if !strings.Contains(out.String(), "css/style-v1.css") {
		t.Errorf("report should name the failed asset:\n%s", out.String())
	}
}

func TestBuildKeepsPreviousManifestOnFailure(t *testing.T) {
	cfg := newProject(t, map[string]string{
		"css/style-v1.css": "body { color: red; }",
	})
	service, _ := newBuildService(cfg, transform.NewMinifier(), nil)
	if _, err := service.Run(context.Background(), BuildInput{Targets: []string{"css"}}); err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	before := mustRead(t, cfg.Manifest)

	broken := filepath.Join(cfg.SourceRoot, "css", "style-v1.css")
	if err := os.WriteFile(broken, []byte("body { color: blue;"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := service.Run(context.Background(), BuildInput{Targets: []string{"css"}}); err == nil {
		t.Fatal("expected second run to fail")
	}

	if after := mustRead(t, cfg.Manifest); !bytes.Equal(before, after) {
		t.Errorf("manifest changed after failed run:\n%s\n%s", before, after)
	}
}

func TestBuildDuplicateLogicalNames(t *testing.T) {
	files := map[string]string{"js/app.js": "function f(){return 1;}"}
	targets := map[string]config.Target{
		"a":       {Kind: config.KindScript, Src: []string{"js/*.js"}, Dest: "a", Revision: true},
		"b":       {Kind: config.KindScript, Src: []string{"js/*.js"}, Dest: "b", Revision: true},
		"default": {Kind: config.KindGroup, Deps: []string{"a", "b"}},
	}

	t.Run("fail", func(t *testing.T) {
		cfg := newProject(t, files)
		cfg.Targets = targets
		service, _ := newBuildService(cfg, transform.NewMinifier(), nil)

		_, err := service.Run(context.Background(), BuildInput{})
		if !errors.Is(err, core.ErrDuplicateLogicalName) {
			t.Fatalf("expected ErrDuplicateLogicalName, got %v", err)
		}
		if _, statErr := os.Stat(cfg.Manifest); !os.IsNotExist(statErr) {
			t.Error("manifest must not be written")
		}
	})

	t.Run("overwrite", func(t *testing.T) {
		cfg := newProject(t, files)
		cfg.Targets = targets
		cfg.Duplicates = string(core.DuplicateOverwrite)
		service, _ := newBuildService(cfg, transform.NewMinifier(), nil)

		if _, err := service.Run(context.Background(), BuildInput{}); err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		m := readManifest(t, cfg)
		physical, ok := m.Lookup("js/app.js")
		if !ok || !strings.HasPrefix(physical, "b/") {
			t.Errorf("expected last target to win, got %q", physical)
		}
	})
}

func TestBuildCopyTarget(t *testing.T) {
	cfg := newProject(t, map[string]string{
		"css/style-v1.css": "body { color: red; }",
		"img/logo.png":     "png-bytes",
		"robots.txt":       "User-agent: *",
	})
	service, _ := newBuildService(cfg, transform.NewMinifier(), nil)

	if _, err := service.Run(context.Background(), BuildInput{Targets: []string{"copy"}}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if got := string(readOutput(t, cfg, "img/logo.png")); got != "png-bytes" {
		t.Errorf("logo = %q", got)
	}
	if got := string(readOutput(t, cfg, "robots.txt")); got != "User-agent: *" {
		t.Errorf("robots = %q", got)
	}
	if _, err := os.Stat(filepath.Join(cfg.OutputRoot, "css")); !os.IsNotExist(err) {
		t.Error("copy target must skip css/")
	}
	if _, err := os.Stat(cfg.Manifest); !os.IsNotExist(err) {
		t.Error("copy-only run must not write a manifest")
	}
}

func TestBuildScriptExclusions(t *testing.T) {
	cfg := newProject(t, map[string]string{
		"js/app.js":        "function f(){return 1;}",
		"js/vendor.min.js": "var a=1;",
		"js/lib_min.js":    "var b=2;",
	})
	service, _ := newBuildService(cfg, transform.NewMinifier(), nil)

	if _, err := service.Run(context.Background(), BuildInput{Targets: []string{"js"}}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	m := readManifest(t, cfg)
	entries := m.Entries()
	if len(entries) != 1 || entries[0].Logical != "js/app.js" {
		t.Errorf("unexpected entries: %v", entries)
	}
}

func TestBuildPrecompress(t *testing.T) {
	cfg := newProject(t, map[string]string{
		"css/style-v1.css": "body { color: red; }",
	})
	cfg.Precompress = []string{"gzip", "zstd"}
	service, _ := newBuildService(cfg, transform.NewMinifier(), nil)

	if _, err := service.Run(context.Background(), BuildInput{Targets: []string{"css"}}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	physical, _ := readManifest(t, cfg).Lookup("css/style-v1.css")
	plain := readOutput(t, cfg, physical)

	gz, err := gzip.NewReader(bytes.NewReader(readOutput(t, cfg, physical+".gz")))
	if err != nil {
		t.Fatalf("gzip sidecar: %v", err)
	}
	fromGzip, err := io.ReadAll(gz)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(fromGzip, plain) {
		t.Errorf("gzip sidecar = %q, want %q", fromGzip, plain)
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		t.Fatal(err)
	}
	defer dec.Close()
	fromZstd, err := dec.DecodeAll(readOutput(t, cfg, physical+".zst"), nil)
	if err != nil {
		t.Fatalf("zstd sidecar: %v", err)
	}
	if !bytes.Equal(fromZstd, plain) {
		t.Errorf("zstd sidecar = %q, want %q", fromZstd, plain)
	}
}

func TestBuildPersistentCache(t *testing.T) {
	cfg := newProject(t, map[string]string{
		"css/style-v1.css": "body{color:red}",
		"js/app.js":        "var a=1;",
	})
	cfg.CacheFile = filepath.Join(filepath.Dir(cfg.SourceRoot), ".assetrev-cache")

	store, err := cache.New(cfg.CacheFile)
	if err != nil {
		t.Fatal(err)
	}
	counting := &countingTransformer{}
	service, _ := newBuildService(cfg, counting, store)
	if _, err := service.Run(context.Background(), BuildInput{}); err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	store.Close()
	if counting.calls.Load() != 2 {
		t.Errorf("transform calls = %d, want 2", counting.calls.Load())
	}
	first := mustRead(t, cfg.Manifest)

	warm, err := cache.New(cfg.CacheFile)
	if err != nil {
		t.Fatal(err)
	}
	defer warm.Close()
	if warm.Len() != 2 {
		t.Fatalf("cache entries = %d, want 2", warm.Len())
	}

	service, _ = newBuildService(cfg, failingTransformer{}, warm)
	result, err := service.Run(context.Background(), BuildInput{})
	if err != nil {
		t.Fatalf("warm run failed: %v", err)
	}
	for _, out := range result.Context.Outputs() {
		if !out.Cached && !out.Copied {
			t.Errorf("%s was not served from cache", out.Logical)
		}
	}
	if second := mustRead(t, cfg.Manifest); !bytes.Equal(first, second) {
		t.Error("cached run produced a different manifest")
	}
}

func TestBuildMissingSourceRoot(t *testing.T) {
	cfg := config.Default()
	cfg.Resolve(t.TempDir())
	service, _ := newBuildService(cfg, transform.NewMinifier(), nil)

	_, err := service.Run(context.Background(), BuildInput{})
	if !errors.Is(err, core.ErrIO) {
		t.Errorf("expected ErrIO, got %v", err)
	}
}

func TestBuildUnknownTarget(t *testing.T) {
	cfg := newProject(t, nil)
	service, _ := newBuildService(cfg, transform.NewMinifier(), nil)

	if _, err := service.Run(context.Background(), BuildInput{Targets: []string{"nope"}}); err == nil {
		t.Error("expected error for unknown target")
	}
}

func mustRead(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	return data
}
