package core

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"
)

// NormalizeLogicalPath converts an OS path to the slash-separated relative
// form used as a manifest key.
func NormalizeLogicalPath(p string) string {
	p = filepath.ToSlash(p)
	p = strings.TrimPrefix(p, "./")
	p = strings.TrimPrefix(p, "/")
	if p == "" {
		return ""
	}
	return path.Clean(p)
}

func ValidateLogicalPath(p string) error {
	if p == "" {
		return fmt.Errorf("path cannot be empty")
	}

	if strings.HasPrefix(p, "/") {
		return fmt.Errorf("path must be relative")
	}

	if strings.Contains(p, "\\") {
		return fmt.Errorf("path must use forward slashes")
	}

	for _, segment := range strings.Split(p, "/") {
		if segment == ".." {
			return fmt.Errorf("path cannot contain parent directory references")
		}
	}

	if strings.ContainsAny(p, "*?[") {
		return fmt.Errorf("path cannot contain wildcards")
	}

	return nil
}

// JoinOutputPath joins a slash-separated destination and name, rejecting
// results that would escape the output root.
func JoinOutputPath(dest, name string) (string, error) {
	joined := NormalizeLogicalPath(path.Join(dest, name))
	if err := ValidateLogicalPath(joined); err != nil {
		return "", fmt.Errorf("invalid output path %q: %w", joined, err)
	}
	return joined, nil
}
