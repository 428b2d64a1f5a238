package usecase

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/3-lines-studio/assetrev/internal/adapters/glob"
	"github.com/3-lines-studio/assetrev/internal/config"
)

type WatchService struct {
	cfg      *config.Config
	build    *BuildService
	cli      CLIOutput
	debounce time.Duration

	afterRun func(*BuildResult, error)
}

func NewWatchService(cfg *config.Config, build *BuildService, cli CLIOutput) *WatchService {
	return &WatchService{
		cfg:      cfg,
		build:    build,
		cli:      cli,
		debounce: cfg.DebounceDuration(),
	}
}

// AffectedTargets returns the non-group targets of plan whose sources
// include rel (slash-separated, relative to the source root).
func AffectedTargets(cfg *config.Config, plan []string, rel string) []string {
	var affected []string
	for _, name := range plan {
		t := cfg.Targets[name]
		if t.Kind == config.KindGroup {
			continue
		}
		var include, exclude []string
		for _, p := range t.Src {
			if strings.HasPrefix(p, "!") {
				exclude = append(exclude, strings.TrimPrefix(p, "!"))
			} else {
				include = append(include, p)
			}
		}
		exclude = append(exclude, t.Exclude...)
		if glob.MatchesAny(include, rel) && !glob.MatchesAny(exclude, rel) {
			affected = append(affected, name)
		}
	}
	return affected
}

// Watch builds once, then rebuilds the same targets with a fresh
// BuildContext whenever a selected source changes. Build failures are
// reported and watching continues until ctx is cancelled.
func (w *WatchService) Watch(ctx context.Context, input BuildInput) error {
	targets := input.Targets
	if len(targets) == 0 {
		targets = DefaultTargets(w.cfg)
	}
	input.Targets = targets

	g, err := TaskGraph(w.cfg)
	if err != nil {
		return err
	}
	plan, err := g.Plan(targets...)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to start file watcher: %w", err)
	}
	defer watcher.Close()

	if err := w.addTree(watcher, w.cfg.SourceRoot); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.cfg.SourceRoot, err)
	}

	w.rebuild(ctx, input)
	w.cli.PrintStep("Watching %s for changes", w.cfg.SourceRoot)

	pending := make(map[string]struct{})
	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addTree(watcher, event.Name); err != nil {
						w.cli.PrintWarning("Cannot watch %s: %v", event.Name, err)
					}
				}
			}
			if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) {
				continue
			}

			rel, err := filepath.Rel(w.cfg.SourceRoot, event.Name)
			if err != nil || strings.HasPrefix(rel, "..") {
				continue
			}
			rel = filepath.ToSlash(rel)
			if len(AffectedTargets(w.cfg, plan, rel)) == 0 {
				continue
			}

			pending[rel] = struct{}{}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.cli.PrintWarning("File watcher error: %v", err)

		case <-fire:
			fire = nil
			changed := make([]string, 0, len(pending))
			for rel := range pending {
				changed = append(changed, rel)
			}
			sort.Strings(changed)
			pending = make(map[string]struct{})

			w.cli.PrintStep("Changed: %s", strings.Join(changed, ", "))
			w.rebuild(ctx, input)
		}
	}
}

func (w *WatchService) rebuild(ctx context.Context, input BuildInput) {
	result, err := w.build.Run(ctx, input)
	if err != nil {
		w.cli.PrintError("%v", err)
	}
	if w.afterRun != nil {
		w.afterRun(result, err)
	}
}

func (w *WatchService) addTree(watcher *fsnotify.Watcher, root string) error {
	outputRoot, _ := filepath.Abs(w.cfg.OutputRoot)
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if abs, _ := filepath.Abs(path); abs == outputRoot {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}
