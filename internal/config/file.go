package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// Load reads the config file at path on top of Default. Relative roots and
// file paths in the result are resolved against the config file's directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	cfg, err := Parse(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	cfg.Resolve(filepath.Dir(absPath))

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes data as YAML or JSONC depending on ext. A targets section
// in the file replaces the default targets entirely.
func Parse(data []byte, ext string) (*Config, error) {
	cfg := Default()
	defaults := cfg.Targets
	cfg.Targets = nil

	switch strings.ToLower(ext) {
	case ".json", ".jsonc":
		if err := json.Unmarshal(jsonc.ToJSON(data), cfg); err != nil {
			return nil, err
		}
	case ".yaml", ".yml", "":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q", ext)
	}

	if cfg.Targets == nil {
		cfg.Targets = defaults
	}
	return cfg, nil
}

func (c *Config) Resolve(baseDir string) {
	resolve := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(baseDir, p)
	}
	c.SourceRoot = resolve(c.SourceRoot)
	c.OutputRoot = resolve(c.OutputRoot)
	c.Manifest = resolve(c.Manifest)
	c.CacheFile = resolve(c.CacheFile)
}

func Marshal(cfg *Config) ([]byte, error) {
	return yaml.Marshal(cfg)
}
