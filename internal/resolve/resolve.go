// Package resolve maps the import strings extracted by internal/chunk to
// concrete files within a project, so internal/graph can turn an import
// edge into a (source_chunk_id, target_chunk_id) pair instead of a bare
// string. Every resolver is gated through pathutil.Contains before it
// returns a path: a resolution that escapes the project root is treated
// the same as one that could not be found at all.
package resolve

import (
	"os"

	"github.com/codegraph-dev/codegraph/internal/pathutil"
)

// Resolver maps an import string found in sourceFile to an absolute path
// within projectRoot. The second return value is false when the import
// could not be mapped to a file that exists within the project root.
type Resolver interface {
	Resolve(importString, sourceFile, projectRoot string) (string, bool)
}

// New returns the resolver registered for language, if any. Languages
// without import-resolution rules (Go, Rust, Java, C++, SQL, HTML, CSS)
// still carry a Dependencies set on their chunks, but nothing resolves
// those specifiers to files; only the same-file and project-wide
// name-match lookups in internal/index's Pass 2 apply to them.
func New(language string) (Resolver, bool) {
	switch language {
	case "python":
		return NewPythonResolver(), true
	case "javascript", "jsx", "typescript", "tsx":
		return NewJSResolver(), true
	case "dart":
		return NewDartResolver(), true
	default:
		return nil, false
	}
}

// acceptIfExists applies the project-root containment check and confirms
// candidate names an existing, regular file before returning it. This is
// the single chokepoint every resolver funnels through.
func acceptIfExists(projectRoot, candidate string) (string, bool) {
	if candidate == "" || !pathutil.Contains(projectRoot, candidate) {
		return "", false
	}
	info, err := os.Stat(candidate)
	if err != nil || info.IsDir() {
		return "", false
	}
	return candidate, true
}

// acceptFirstExisting returns the first candidate that exists within
// projectRoot, trying them in order.
func acceptFirstExisting(projectRoot string, candidates []string) (string, bool) {
	for _, cand := range candidates {
		if path, ok := acceptIfExists(projectRoot, cand); ok {
			return path, true
		}
	}
	return "", false
}
