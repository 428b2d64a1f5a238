package usecase

import (
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/3-lines-studio/assetrev/internal/config"
	"github.com/3-lines-studio/assetrev/internal/core"
)

// BuildContext is the state of one build run. The orchestrator creates a
// fresh one per run and hands it to every pipeline invocation.
type BuildContext struct {
	ID       string
	Config   *config.Config
	Manifest *core.Manifest

	mu         sync.Mutex
	outputs    []Output
	failures   []error
	revisioned bool
	cacheKeys  map[string]struct{}
}

type Output struct {
	Target     string
	Logical    string
	Physical   string
	SourceSize int
	OutputSize int
	Cached     bool
	Copied     bool
}

func NewBuildContext(cfg *config.Config) *BuildContext {
	return &BuildContext{
		ID:        uuid.NewString(),
		Config:    cfg,
		Manifest:  core.NewManifest(cfg.DuplicatePolicy()),
		cacheKeys: make(map[string]struct{}),
	}
}

func (bc *BuildContext) addOutput(out Output) {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	bc.outputs = append(bc.outputs, out)
}

func (bc *BuildContext) addFailure(err error) {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	bc.failures = append(bc.failures, err)
}

func (bc *BuildContext) markRevisioned() {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	bc.revisioned = true
}

func (bc *BuildContext) useCacheKey(key string) {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	bc.cacheKeys[key] = struct{}{}
}

// Outputs returns written files sorted by physical path.
func (bc *BuildContext) Outputs() []Output {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	out := append([]Output(nil), bc.outputs...)
	sort.Slice(out, func(i, j int) bool { return out[i].Physical < out[j].Physical })
	return out
}

func (bc *BuildContext) Err() error {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	return errors.Join(bc.failures...)
}

func (bc *BuildContext) Revisioned() bool {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	return bc.revisioned
}
