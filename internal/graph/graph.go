// Package graph executes build targets as an explicit dependency DAG.
package graph

import (
	"context"
	"fmt"
	"sort"
)

type Task struct {
	Name string
	Deps []string
}

// Graph is an immutable, validated DAG of tasks. It is safe for
// concurrent read access.
type Graph struct {
	tasks map[string]Task
	names []string
}

// New validates tasks and rejects empty or duplicate names, unknown
// dependencies, self loops and cycles.
func New(tasks []Task) (*Graph, error) {
	if len(tasks) == 0 {
		return nil, invalidf("no tasks")
	}

	byName := make(map[string]Task, len(tasks))
	for _, t := range tasks {
		if t.Name == "" {
			return nil, invalidf("task name is required")
		}
		if _, exists := byName[t.Name]; exists {
			return nil, invalidf("duplicate task name: %q", t.Name)
		}
		byName[t.Name] = t
	}

	names := make([]string, 0, len(byName))
	for name, t := range byName {
		names = append(names, name)
		seen := make(map[string]struct{}, len(t.Deps))
		for _, dep := range t.Deps {
			if dep == name {
				return nil, invalidf("self-loop: %q", name)
			}
			if _, ok := byName[dep]; !ok {
				return nil, invalidf("task %q depends on unknown task %q", name, dep)
			}
			if _, dup := seen[dep]; dup {
				return nil, invalidf("task %q lists dependency %q twice", name, dep)
			}
			seen[dep] = struct{}{}
		}
	}
	sort.Strings(names)

	g := &Graph{tasks: byName, names: names}
	if err := g.validateAcyclic(); err != nil {
		return nil, err
	}
	return g, nil
}

// Plan returns the targets plus everything they depend on, in a
// deterministic topological order: dependencies first, ties broken by name.
func (g *Graph) Plan(targets ...string) ([]string, error) {
	if len(targets) == 0 {
		return nil, invalidf("no targets requested")
	}

	needed := make(map[string]struct{})
	var visit func(string)
	visit = func(name string) {
		if _, ok := needed[name]; ok {
			return
		}
		needed[name] = struct{}{}
		for _, dep := range g.tasks[name].Deps {
			visit(dep)
		}
	}
	for _, name := range targets {
		if _, ok := g.tasks[name]; !ok {
			return nil, &GraphError{Kind: ErrUnknownTask, Msg: fmt.Sprintf("%q", name)}
		}
		visit(name)
	}

	indeg := make(map[string]int, len(needed))
	dependents := make(map[string][]string, len(needed))
	for name := range needed {
		for _, dep := range g.tasks[name].Deps {
			indeg[name]++
			dependents[dep] = append(dependents[dep], name)
		}
	}

	var ready []string
	for name := range needed {
		if indeg[name] == 0 {
			ready = append(ready, name)
		}
	}
	sort.Strings(ready)

	order := make([]string, 0, len(needed))
	for len(ready) > 0 {
		name := ready[0]
		ready = ready[1:]
		order = append(order, name)

		for _, next := range dependents[name] {
			indeg[next]--
			if indeg[next] == 0 {
				ready = append(ready, next)
			}
		}
		sort.Strings(ready)
	}
	return order, nil
}

// Run executes fn for each task of plan in order and stops at the first
// error or when ctx is cancelled.
func (g *Graph) Run(ctx context.Context, plan []string, fn func(ctx context.Context, task Task) error) error {
	for _, name := range plan {
		if err := ctx.Err(); err != nil {
			return err
		}
		task, ok := g.tasks[name]
		if !ok {
			return &GraphError{Kind: ErrUnknownTask, Msg: fmt.Sprintf("%q", name)}
		}
		if err := fn(ctx, task); err != nil {
			return fmt.Errorf("task %s: %w", name, err)
		}
	}
	return nil
}

func (g *Graph) validateAcyclic() error {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int, len(g.names))
	var stack []string

	var visit func(string) error
	visit = func(name string) error {
		switch state[name] {
		case visiting:
			start := 0
			for i, n := range stack {
				if n == name {
					start = i
					break
				}
			}
			path := append(append([]string(nil), stack[start:]...), name)
			return cycleError(path)
		case done:
			return nil
		}

		state[name] = visiting
		stack = append(stack, name)
		deps := append([]string(nil), g.tasks[name].Deps...)
		sort.Strings(deps)
		for _, dep := range deps {
			if err := visit(dep); err != nil {
				return err
			}
		}
		stack = stack[:len(stack)-1]
		state[name] = done
		return nil
	}

	for _, name := range g.names {
		if err := visit(name); err != nil {
			return err
		}
	}
	return nil
}
