// Package priority ranks project-relative file paths for tie-breaking:
// which of several equally-confident candidates a usage resolves to, and
// which of several equally-scored search hits sorts first. Lower numbers
// win throughout.
package priority

import (
	"path/filepath"
	"strings"
)

// Tier orders path classes from most to least authoritative. Source
// directories rank highest, tests in the middle, generated/doc content
// lowest; everything else falls between source and tests.
const (
	TierSource    = 0
	TierDefault   = 1
	TierTest      = 2
	TierGenerated = 3
	TierDocs      = 4
)

var sourceDirs = []string{"src/", "lib/", "app/", "cmd/", "internal/", "pkg/"}

var testMarkers = []string{"test/", "tests/", "__tests__/", "spec/", "_test.", ".test.", ".spec.", "test_"}

var generatedMarkers = []string{"generated/", "gen/", ".gen.", ".pb.go", "_pb2.py", "vendor/", "node_modules/", "dist/", "build/"}

// Rank returns the tier for a project-root-relative, forward-slash path.
// The exact ordering is an implementation choice; what matters is that it
// is total and stable across calls for the same input.
func Rank(relPath string) int {
	p := filepath.ToSlash(relPath)
	lower := strings.ToLower(p)

	if strings.HasSuffix(lower, ".md") || strings.HasSuffix(lower, ".mdx") || strings.Contains(lower, "docs/") {
		return TierDocs
	}
	for _, m := range generatedMarkers {
		if strings.Contains(lower, m) {
			return TierGenerated
		}
	}
	for _, m := range testMarkers {
		if strings.Contains(lower, m) {
			return TierTest
		}
	}
	for _, d := range sourceDirs {
		if strings.HasPrefix(lower, d) || strings.Contains(lower, "/"+d) {
			return TierSource
		}
	}
	return TierDefault
}

// Less reports whether a should sort before b by file priority alone,
// breaking remaining ties lexically so ordering stays stable.
func Less(a, b string) bool {
	ra, rb := Rank(a), Rank(b)
	if ra != rb {
		return ra < rb
	}
	return a < b
}
