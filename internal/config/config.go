// Package config loads the assetrev build configuration.
//
// The file is YAML (.yaml, .yml) or JSON with comments (.json, .jsonc).
// Values not present in the file keep the defaults from Default, which
// reproduce the classic css/js/copy pipeline over a static/ directory.
package config

import (
	"fmt"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/3-lines-studio/assetrev/internal/adapters/compress"
	"github.com/3-lines-studio/assetrev/internal/core"
)

const DefaultFile = "assetrev.yaml"

type TargetKind string

const (
	KindStylesheet TargetKind = "stylesheet"
	KindScript     TargetKind = "script"
	KindCopy       TargetKind = "copy"
	KindGroup      TargetKind = "group"
)

type Config struct {
	// SourceRoot is the directory source globs are evaluated against.
	SourceRoot string `yaml:"source_root" json:"source_root"`

	// OutputRoot receives processed files; target dests are relative to it.
	OutputRoot string `yaml:"output_root" json:"output_root"`

	// Manifest is where the logical -> physical mapping is written.
	Manifest string `yaml:"manifest" json:"manifest"`

	// Duplicates is "fail" or "overwrite".
	Duplicates string `yaml:"duplicates" json:"duplicates"`

	// Concurrency bounds assets processed in parallel per target.
	Concurrency int `yaml:"concurrency" json:"concurrency"`

	// Precompress lists sidecar encodings: gzip, zstd.
	Precompress []string `yaml:"precompress" json:"precompress"`

	// CacheFile persists minification results between runs. Empty disables it.
	CacheFile string `yaml:"cache_file" json:"cache_file"`

	Watch WatchConfig `yaml:"watch" json:"watch"`

	Targets map[string]Target `yaml:"targets" json:"targets"`
}

type WatchConfig struct {
	// Debounce collapses bursts of file events, e.g. "150ms".
	Debounce string `yaml:"debounce" json:"debounce"`
}

type Target struct {
	Kind    TargetKind `yaml:"kind" json:"kind"`
	Src     []string   `yaml:"src" json:"src"`
	Exclude []string   `yaml:"exclude" json:"exclude"`
	Dest    string     `yaml:"dest" json:"dest"`
	// Suffix is appended to the stem before revisioning, e.g. ".min".
	Suffix string `yaml:"suffix" json:"suffix"`
	// Revision embeds a content fingerprint in output names and records
	// them in the manifest.
	Revision bool     `yaml:"revision" json:"revision"`
	Deps     []string `yaml:"deps" json:"deps"`
}

func Default() *Config {
	return &Config{
		SourceRoot:  "static",
		OutputRoot:  "dist",
		Manifest:    "rev-manifest.json",
		Duplicates:  string(core.DuplicateFail),
		Concurrency: 4,
		Watch: WatchConfig{
			Debounce: "150ms",
		},
		Targets: map[string]Target{
			"css": {
				Kind:     KindStylesheet,
				Src:      []string{"css/*-v1.css"},
				Dest:     "css",
				Revision: true,
			},
			"js": {
				Kind:     KindScript,
				Src:      []string{"js/*.js"},
				Exclude:  []string{"js/*.min.js", "js/*_min.js"},
				Dest:     "js",
				Suffix:   ".min",
				Revision: true,
			},
			"copy": {
				Kind:    KindCopy,
				Src:     []string{"**/*"},
				Exclude: []string{"css/**", "js/**"},
			},
			"default": {
				Kind: KindGroup,
				Deps: []string{"css", "js", "copy"},
			},
		},
	}
}

func (c *Config) DuplicatePolicy() core.DuplicatePolicy {
	p, err := core.ParseDuplicatePolicy(c.Duplicates)
	if err != nil {
		return core.DuplicateFail
	}
	return p
}

func (c *Config) Encodings() []compress.Encoding {
	out := make([]compress.Encoding, 0, len(c.Precompress))
	for _, s := range c.Precompress {
		if enc, err := compress.ParseEncoding(s); err == nil {
			out = append(out, enc)
		}
	}
	return out
}

func (c *Config) DebounceDuration() time.Duration {
	d, err := time.ParseDuration(c.Watch.Debounce)
	if err != nil || d <= 0 {
		return 150 * time.Millisecond
	}
	return d
}

// TargetNames returns target names sorted alphabetically.
func (c *Config) TargetNames() []string {
	names := make([]string, 0, len(c.Targets))
	for name := range c.Targets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (c *Config) Validate() error {
	var errs []string
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Sprintf(format, args...))
	}

	if c.SourceRoot == "" {
		add("source_root is required")
	}
	if c.OutputRoot == "" {
		add("output_root is required")
	}
	if c.Manifest == "" {
		add("manifest is required")
	}
	if _, err := core.ParseDuplicatePolicy(c.Duplicates); err != nil {
		add("duplicates: %v", err)
	}
	if c.Concurrency < 0 {
		add("concurrency must not be negative")
	}
	for _, s := range c.Precompress {
		if _, err := compress.ParseEncoding(s); err != nil {
			add("precompress: %v", err)
		}
	}
	if c.Watch.Debounce != "" {
		if _, err := time.ParseDuration(c.Watch.Debounce); err != nil {
			add("watch.debounce: %v", err)
		}
	}
	if len(c.Targets) == 0 {
		add("at least one target is required")
	}

	for _, name := range c.TargetNames() {
		t := c.Targets[name]
		switch t.Kind {
		case KindStylesheet, KindScript, KindCopy:
			if len(t.Src) == 0 {
				add("target %q: src is required", name)
			}
			if t.Dest != "" {
				if path.IsAbs(filepath.ToSlash(t.Dest)) {
					add("target %q: dest must be relative to output_root", name)
				} else if dest := core.NormalizeLogicalPath(t.Dest); dest != "." {
					if err := core.ValidateLogicalPath(dest); err != nil {
						add("target %q: dest: %v", name, err)
					}
				}
			}
			if t.Kind == KindCopy && (t.Revision || t.Suffix != "") {
				add("target %q: copy targets cannot use revision or suffix", name)
			}
		case KindGroup:
			if len(t.Deps) == 0 {
				add("target %q: group needs deps", name)
			}
		default:
			add("target %q: unknown kind %q", name, t.Kind)
		}
		for _, dep := range t.Deps {
			if _, ok := c.Targets[dep]; !ok {
				add("target %q: unknown dependency %q", name, dep)
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
