// Package cache memoizes minification results by content so rebuilds in
// watch mode only pay for assets whose bytes changed.
package cache

import (
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/fxamacker/cbor/v2"
	"github.com/zeebo/blake3"

	"github.com/3-lines-studio/assetrev/internal/core"
)

const defaultMaxCost = 64 << 20

type Cache struct {
	mem *ristretto.Cache[string, []byte]

	mu    sync.Mutex
	index map[string][]byte
	path  string
}

type diskFormat struct {
	Version int               `cbor:"1,keyasint"`
	Entries map[string][]byte `cbor:"2,keyasint"`
}

const diskVersion = 1

// New creates a cache. When path is non-empty, entries are loaded from it
// and Save writes them back.
func New(path string) (*Cache, error) {
	mem, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: 1e5,
		MaxCost:     defaultMaxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create transform cache: %w", err)
	}

	c := &Cache{
		mem:   mem,
		index: make(map[string][]byte),
		path:  path,
	}
	if path != "" {
		c.load()
	}
	return c, nil
}

func Key(kind core.AssetKind, source []byte) string {
	h := blake3.New()
	_, _ = h.Write([]byte(kind))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write(source)
	return hex.EncodeToString(h.Sum(nil))
}

func (c *Cache) Get(key string) ([]byte, bool) {
	if c == nil {
		return nil, false
	}
	if v, ok := c.mem.Get(key); ok {
		return v, true
	}

	c.mu.Lock()
	v, ok := c.index[key]
	c.mu.Unlock()
	if ok {
		c.mem.Set(key, v, int64(len(v)))
	}
	return v, ok
}

func (c *Cache) Set(key string, value []byte) {
	if c == nil {
		return
	}
	c.mem.Set(key, value, int64(len(value)))
	if c.path != "" {
		c.mu.Lock()
		c.index[key] = value
		c.mu.Unlock()
	}
}

// Wait blocks until buffered writes are visible to Get.
func (c *Cache) Wait() {
	if c != nil {
		c.mem.Wait()
	}
}

func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.index)
}

// Prune drops persisted entries whose keys are not in live, so the cache
// file tracks the current source tree instead of growing forever.
func (c *Cache) Prune(live map[string]struct{}) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.index {
		if _, ok := live[key]; !ok {
			delete(c.index, key)
		}
	}
}

func (c *Cache) Save() error {
	if c == nil || c.path == "" {
		return nil
	}

	c.mu.Lock()
	data, err := cbor.Marshal(diskFormat{Version: diskVersion, Entries: c.index})
	c.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to encode transform cache: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(c.path), 0755); err != nil {
		return fmt.Errorf("failed to create cache dir: %w", err)
	}
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write transform cache: %w", err)
	}
	return os.Rename(tmp, c.path)
}

func (c *Cache) Close() {
	if c != nil {
		c.mem.Close()
	}
}

func (c *Cache) load() {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("failed to read transform cache", "path", c.path, "error", err)
		}
		return
	}

	var disk diskFormat
	if err := cbor.Unmarshal(data, &disk); err != nil {
		slog.Warn("ignoring corrupt transform cache", "path", c.path, "error", err)
		return
	}
	if disk.Version != diskVersion {
		slog.Warn("ignoring transform cache with unknown version", "path", c.path, "version", disk.Version)
		return
	}
	for k, v := range disk.Entries {
		c.index[k] = v
	}
}
