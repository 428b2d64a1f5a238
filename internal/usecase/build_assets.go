package usecase

import (
	"context"
	"errors"
	"fmt"
	iofs "io/fs"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/3-lines-studio/assetrev/internal/adapters/cli"
	"github.com/3-lines-studio/assetrev/internal/adapters/glob"
	"github.com/3-lines-studio/assetrev/internal/cache"
	"github.com/3-lines-studio/assetrev/internal/config"
	"github.com/3-lines-studio/assetrev/internal/core"
	"github.com/3-lines-studio/assetrev/internal/graph"
)

const DefaultTarget = "default"

var ErrBuildFailed = errors.New("build failed")

type BuildInput struct {
	Targets []string
}

type BuildResult struct {
	Context  *BuildContext
	Plan     []string
	Manifest []byte
}

type BuildService struct {
	cfg      *config.Config
	pipeline *Pipeline
	fs       FileSystem
	cli      CLIOutput
	store    *cache.Cache
}

// NewBuildService wires a build. store may be nil to disable the transform
// cache.
func NewBuildService(cfg *config.Config, transformer Transformer, fs FileSystem, cli CLIOutput, store *cache.Cache) *BuildService {
	var tc TransformCache
	if store != nil {
		tc = store
	}
	return &BuildService{
		cfg:      cfg,
		pipeline: NewPipeline(transformer, fs, tc),
		fs:       fs,
		cli:      cli,
		store:    store,
	}
}

func TaskGraph(cfg *config.Config) (*graph.Graph, error) {
	tasks := make([]graph.Task, 0, len(cfg.Targets))
	for _, name := range cfg.TargetNames() {
		tasks = append(tasks, graph.Task{Name: name, Deps: cfg.Targets[name].Deps})
	}
	return graph.New(tasks)
}

// DefaultTargets is what a run with no explicit targets builds.
func DefaultTargets(cfg *config.Config) []string {
	if _, ok := cfg.Targets[DefaultTarget]; ok {
		return []string{DefaultTarget}
	}
	return cfg.TargetNames()
}

// Run executes the requested targets and their dependencies with a fresh
// BuildContext. The manifest is written once at the end, and only when no
// asset failed.
func (s *BuildService) Run(ctx context.Context, input BuildInput) (*BuildResult, error) {
	s.cli.PrintHeader("assetrev build")

	targets := input.Targets
	if len(targets) == 0 {
		targets = DefaultTargets(s.cfg)
	}

	g, err := TaskGraph(s.cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build task graph: %w", err)
	}
	plan, err := g.Plan(targets...)
	if err != nil {
		return nil, err
	}

	sources, err := s.fs.DirFS(s.cfg.SourceRoot)
	if err != nil {
		return nil, core.NewIOError(s.cfg.SourceRoot, err)
	}

	bc := NewBuildContext(s.cfg)
	result := &BuildResult{Context: bc, Plan: plan}
	slog.Debug("build started", "run", bc.ID, "plan", plan)

	report := cli.NewBuildReport(s.cli, s.cfg.OutputRoot)
	runErr := g.Run(ctx, plan, func(ctx context.Context, task graph.Task) error {
		return s.runTarget(ctx, bc, report, sources, task.Name)
	})
	if runErr != nil {
		report.AddError("build", "Build aborted", []string{runErr.Error()})
		report.Render()
		return result, runErr
	}

	if failErr := bc.Err(); failErr != nil {
		report.Render()
		return result, fmt.Errorf("%w: %w", ErrBuildFailed, failErr)
	}

	if bc.Revisioned() {
		data, err := s.pipeline.EmitManifest(bc)
		if err != nil {
			report.AddError(s.cfg.Manifest, "Failed to write manifest", []string{err.Error()})
			report.Render()
			return result, err
		}
		result.Manifest = data
	}

	s.saveCache(bc, plan)
	report.Render()
	slog.Debug("build finished", "run", bc.ID, "outputs", len(bc.Outputs()), "manifest_entries", bc.Manifest.Len())
	return result, nil
}

func (s *BuildService) runTarget(ctx context.Context, bc *BuildContext, report *cli.BuildReport, sources iofs.FS, name string) error {
	target := s.cfg.Targets[name]
	if target.Kind == config.KindGroup {
		return nil
	}

	step := report.StartStep(name)
	matches, err := glob.Select(sources, target.Src, target.Exclude)
	if err != nil {
		report.EndStep(step, false, 0)
		return fmt.Errorf("failed to select sources: %w", err)
	}
	if len(matches) == 0 {
		report.AddWarning(name, "No files matched", target.Src)
	}

	limit := s.cfg.Concurrency
	if limit <= 0 {
		limit = 1
	}

	var processed, failed atomic.Int64
	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(limit)

	for _, match := range matches {
		match := match
		group.Go(func() error {
			var out Output
			var err error
			if target.Kind == config.KindCopy {
				out, err = s.pipeline.CopyAsset(gctx, bc, name, target, match)
			} else {
				out, err = s.pipeline.ProcessAsset(gctx, bc, name, target, match)
			}

			if err != nil {
				if isFatal(err) {
					return err
				}
				failed.Add(1)
				bc.addFailure(err)
				message, details := describeError(err)
				report.AddError(match.Path, message, details)
				return nil
			}

			processed.Add(1)
			report.AddAsset(out.SourceSize, out.OutputSize)
			return nil
		})
	}

	err = group.Wait()
	report.EndStep(step, err == nil && failed.Load() == 0, int(processed.Load()))
	return err
}

func (s *BuildService) saveCache(bc *BuildContext, plan []string) {
	if s.store == nil {
		return
	}

	covered := make(map[string]bool, len(plan))
	for _, name := range plan {
		covered[name] = true
	}
	complete := true
	for _, name := range s.cfg.TargetNames() {
		if kind := s.cfg.Targets[name].Kind; (kind == config.KindStylesheet || kind == config.KindScript) && !covered[name] {
			complete = false
			break
		}
	}
	if complete {
		bc.mu.Lock()
		live := make(map[string]struct{}, len(bc.cacheKeys))
		for k := range bc.cacheKeys {
			live[k] = struct{}{}
		}
		bc.mu.Unlock()
		s.store.Prune(live)
	}

	if err := s.store.Save(); err != nil {
		slog.Warn("failed to save transform cache", "error", err)
	}
}

func describeError(err error) (string, []string) {
	var assetErr *core.AssetError
	if errors.As(err, &assetErr) {
		message := "Failed"
		switch {
		case errors.Is(err, core.ErrSyntax):
			message = "Syntax error"
		case errors.Is(err, core.ErrDuplicateLogicalName):
			message = "Duplicate logical name"
		case errors.Is(err, core.ErrInvalidName):
			message = "Invalid asset name"
		}

		var details []string
		if assetErr.Err != nil {
			detail := assetErr.Err.Error()
			if assetErr.Line > 0 {
				detail = fmt.Sprintf("line %d, column %d: %s", assetErr.Line, assetErr.Column, detail)
			}
			details = append(details, detail)
		}
		return message, details
	}
	return "Failed", []string{err.Error()}
}
