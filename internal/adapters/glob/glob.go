package glob

import (
	"fmt"
	iofs "io/fs"
	"path"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

type Match struct {
	// Path is slash-separated and relative to the FS root.
	Path string
	// Base is the literal directory prefix of the pattern that matched.
	Base string
	// Rel is Path relative to Base; outputs keep this layout.
	Rel string
}

// Select expands include patterns over fsys and drops anything matching an
// exclude pattern. Include patterns starting with "!" are treated as
// excludes. Results are sorted by path; a file matched by several patterns
// is reported once, for the first pattern that matched it.
func Select(fsys iofs.FS, include, exclude []string) ([]Match, error) {
	var patterns []string
	excludes := append([]string(nil), exclude...)
	for _, p := range include {
		if strings.HasPrefix(p, "!") {
			excludes = append(excludes, strings.TrimPrefix(p, "!"))
			continue
		}
		patterns = append(patterns, p)
	}

	for _, p := range append(append([]string(nil), patterns...), excludes...) {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid glob pattern %q", p)
		}
	}

	seen := make(map[string]struct{})
	var matches []Match
	for _, pattern := range patterns {
		base, _ := doublestar.SplitPattern(pattern)
		if base == "." {
			base = ""
		}

		found, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("failed to expand %q: %w", pattern, err)
		}

		for _, p := range found {
			if _, dup := seen[p]; dup {
				continue
			}
			excluded, err := matchesAny(excludes, p)
			if err != nil {
				return nil, err
			}
			if excluded {
				continue
			}
			seen[p] = struct{}{}
			matches = append(matches, Match{Path: p, Base: base, Rel: relTo(base, p)})
		}
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].Path < matches[j].Path })
	return matches, nil
}

// MatchesAny reports whether name (slash-separated) matches any pattern.
func MatchesAny(patterns []string, name string) bool {
	ok, err := matchesAny(patterns, name)
	return err == nil && ok
}

func matchesAny(patterns []string, name string) (bool, error) {
	for _, p := range patterns {
		ok, err := doublestar.Match(p, name)
		if err != nil {
			return false, fmt.Errorf("invalid glob pattern %q: %w", p, err)
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

func relTo(base, p string) string {
	if base == "" {
		return p
	}
	rel := strings.TrimPrefix(p, base+"/")
	if rel == p {
		return path.Base(p)
	}
	return rel
}
