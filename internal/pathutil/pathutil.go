// Package pathutil normalizes and validates file paths against a project
// root, the one security boundary every import resolver and storage write
// must cross before touching the filesystem or persisting a path.
package pathutil

import (
	"path/filepath"
	"strings"
)

// Normalize cleans path and, if it is relative, joins it onto root. The
// result is always absolute and uses the OS path separator. Calling
// Normalize on an already-normalized path returns the same value
// (idempotent).
func Normalize(root, path string) string {
	if path == "" {
		return filepath.Clean(root)
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(root, path)
	}
	return filepath.Clean(path)
}

// Contains reports whether path, once normalized against root, stays within
// root. It is the gate every import resolver must pass before returning a
// resolved path, and the gate the indexer applies before writing a file
// record: a resolution or path that escapes the root returns false rather
// than the path.
func Contains(root, path string) bool {
	normRoot := filepath.Clean(root)
	normPath := Normalize(root, path)

	rel, err := filepath.Rel(normRoot, normPath)
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// Relative returns path expressed relative to root, using forward slashes
// regardless of OS, for storage as a project-relative chunk/file path. It
// assumes Contains(root, path) is already true.
func Relative(root, path string) (string, error) {
	rel, err := filepath.Rel(filepath.Clean(root), Normalize(root, path))
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}
