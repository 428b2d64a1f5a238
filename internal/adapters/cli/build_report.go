package cli

import (
	"fmt"
	"io"
	"sort"
	"sync"
	"time"
)

type BuildStep struct {
	Name      string
	StartTime time.Time
	EndTime   time.Time
	Success   bool
	Assets    int
}

type cliOutputWithColors interface {
	Green(text string) string
	Yellow(text string) string
	Red(text string) string
	Gray(text string) string
	Writer() io.Writer
	ErrWriter() io.Writer
}

type BuildError struct {
	Asset   string
	Message string
	Details []string
}

// BuildReport collects step results and per-asset problems for one run.
// AddError and AddWarning may be called from concurrent asset workers.
type BuildReport struct {
	colors      cliOutputWithColors
	mu          sync.Mutex
	steps       []*BuildStep
	warnings    []BuildError
	errors      []BuildError
	startTime   time.Time
	assetCount  int
	bytesIn     int64
	bytesOut    int64
	outputDir   string
	hasFailures bool
	now         func() time.Time
}

func NewBuildReport(colors cliOutputWithColors, outputDir string) *BuildReport {
	return &BuildReport{
		colors:    colors,
		steps:     make([]*BuildStep, 0),
		warnings:  make([]BuildError, 0),
		errors:    make([]BuildError, 0),
		startTime: time.Now(),
		outputDir: outputDir,
		now:       time.Now,
	}
}

func (r *BuildReport) StartStep(name string) *BuildStep {
	r.mu.Lock()
	defer r.mu.Unlock()
	step := &BuildStep{
		Name:      name,
		StartTime: r.now(),
	}
	r.steps = append(r.steps, step)
	return step
}

func (r *BuildReport) EndStep(step *BuildStep, success bool, assets int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	step.EndTime = r.now()
	step.Success = success
	step.Assets = assets
	if !success {
		r.hasFailures = true
	}
}

func (r *BuildReport) AddAsset(sourceSize, outputSize int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.assetCount++
	r.bytesIn += int64(sourceSize)
	r.bytesOut += int64(outputSize)
}

func (r *BuildReport) AddWarning(asset string, message string, details []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.warnings = append(r.warnings, BuildError{
		Asset:   asset,
		Message: message,
		Details: details,
	})
}

func (r *BuildReport) AddError(asset string, message string, details []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, BuildError{
		Asset:   asset,
		Message: message,
		Details: details,
	})
	r.hasFailures = true
}

func (r *BuildReport) Render() {
	r.mu.Lock()
	defer r.mu.Unlock()

	duration := r.now().Sub(r.startTime)
	sort.SliceStable(r.errors, func(i, j int) bool { return r.errors[i].Asset < r.errors[j].Asset })
	sort.SliceStable(r.warnings, func(i, j int) bool { return r.warnings[i].Asset < r.warnings[j].Asset })

	if len(r.errors) == 0 && len(r.warnings) == 0 {
		r.renderMinimal(duration)
	} else {
		r.renderVerbose(duration)
	}
}

func (r *BuildReport) renderMinimal(duration time.Duration) {
	out := r.colors.Writer()
	fmt.Fprintf(out, "  "+r.colors.Green("✓ ")+"%d assets processed (%s)\n", r.assetCount, r.sizeSummary())

	stepLines := make([]string, 0, len(r.steps))
	allSuccessful := true

	for _, step := range r.steps {
		if !step.Success {
			allSuccessful = false
			stepLines = append(stepLines, "  "+r.colors.Red("✗ ")+step.Name)
		}
	}

	if allSuccessful {
		fmt.Fprintf(out, "  "+r.colors.Green("✓ ")+"Build complete in %s\n", formatDuration(duration))
	} else {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Failed steps:")
		for _, line := range stepLines {
			fmt.Fprintln(out, line)
		}
	}

	if r.outputDir != "" {
		fmt.Fprintf(out, "\n  %s\n", r.colors.Gray("Output: "+r.outputDir))
	}
}

func (r *BuildReport) renderVerbose(duration time.Duration) {
	out := r.colors.Writer()
	errOut := r.colors.ErrWriter()
	fmt.Fprintf(out, "  %d assets processed (%s)\n", r.assetCount, r.sizeSummary())

	fmt.Fprintln(out)
	for _, step := range r.steps {
		status := r.colors.Green("✓")
		if !step.Success {
			status = r.colors.Red("✗")
		}
		fmt.Fprintf(out, "  %s %s\n", status, step.Name)
	}

	if len(r.errors) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintf(errOut, "  "+r.colors.Red("✗ ")+"Errors (%d):\n", len(r.errors))
		r.renderErrors(errOut, r.errors)
	}

	if len(r.warnings) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintf(out, "  "+r.colors.Yellow("⚠ ")+"Warnings (%d):\n", len(r.warnings))
		r.renderErrors(out, r.warnings)
	}

	fmt.Fprintln(out)
	if len(r.errors) > 0 {
		fmt.Fprintf(errOut, "  %s\n", r.colors.Red(fmt.Sprintf("Build failed after %s", formatDuration(duration))))
	} else {
		fmt.Fprintf(out, "  "+r.colors.Green("✓ ")+"Build complete in %s\n", formatDuration(duration))
	}

	if r.outputDir != "" {
		fmt.Fprintf(out, "\n  %s\n", r.colors.Gray("Output: "+r.outputDir))
	}
}

func (r *BuildReport) renderErrors(w io.Writer, errors []BuildError) {
	for _, err := range errors {
		fmt.Fprintf(w, "  %s %s\n", r.colors.Red("✗"), err.Asset)
		fmt.Fprintf(w, "    %s\n", err.Message)

		deduplicated := deduplicateStrings(err.Details)
		for _, detail := range deduplicated {
			fmt.Fprintf(w, "      • %s\n", detail)
		}
	}
}

func (r *BuildReport) HasFailures() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hasFailures
}

func (r *BuildReport) sizeSummary() string {
	return formatBytes(r.bytesIn) + " → " + formatBytes(r.bytesOut)
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%.0fms", float64(d)/float64(time.Millisecond))
	}
	return fmt.Sprintf("%.1fs", float64(d)/float64(time.Second))
}

func formatBytes(n int64) string {
	switch {
	case n < 1024:
		return fmt.Sprintf("%d B", n)
	case n < 1024*1024:
		return fmt.Sprintf("%.1f KiB", float64(n)/1024)
	}
	return fmt.Sprintf("%.1f MiB", float64(n)/(1024*1024))
}

func deduplicateStrings(items []string) []string {
	if len(items) <= 1 {
		return items
	}

	seen := make(map[string]int)
	order := make([]string, 0, len(items))
	for _, item := range items {
		if seen[item] == 0 {
			order = append(order, item)
		}
		seen[item]++
	}

	result := make([]string, 0, len(order))
	for _, item := range order {
		if count := seen[item]; count > 1 {
			result = append(result, fmt.Sprintf("%s (%d occurrences)", item, count))
		} else {
			result = append(result, item)
		}
	}

	return result
}
