package resolve

import (
	"path/filepath"
	"strings"

	"github.com/codegraph-dev/codegraph/internal/pathutil"
)

// PythonResolver resolves Python import and from-import specifiers.
//
// Relative imports ("from .a.b import c") start at the source file's
// package directory and ascend once per leading dot beyond the first.
// Absolute imports ("import x.y") search ProjectRoot and any configured
// SourceRoots, trying each as a candidate package tree.
type PythonResolver struct {
	// SourceRoots are additional absolute directories searched for
	// absolute imports, beyond the project root itself (e.g. a "src"
	// layout's src/ directory). Optional.
	SourceRoots []string
}

// NewPythonResolver returns a resolver with no extra source roots.
func NewPythonResolver() *PythonResolver {
	return &PythonResolver{}
}

func (r *PythonResolver) Resolve(importString, sourceFile, projectRoot string) (string, bool) {
	importString = strings.TrimSpace(importString)
	if importString == "" {
		return "", false
	}
	if strings.HasPrefix(importString, ".") {
		return r.resolveRelative(importString, sourceFile, projectRoot)
	}
	return r.resolveAbsolute(importString, projectRoot)
}

func (r *PythonResolver) resolveRelative(importString, sourceFile, projectRoot string) (string, bool) {
	dotCount := 0
	for dotCount < len(importString) && importString[dotCount] == '.' {
		dotCount++
	}
	remainder := importString[dotCount:]

	packageDir := filepath.Dir(pathutil.Normalize(projectRoot, sourceFile))
	for i := 0; i < dotCount-1; i++ {
		packageDir = filepath.Dir(packageDir)
	}

	var comps []string
	if remainder != "" {
		comps = strings.Split(remainder, ".")
	}
	return acceptFirstExisting(projectRoot, modulePathCandidates(packageDir, comps))
}

func (r *PythonResolver) resolveAbsolute(importString, projectRoot string) (string, bool) {
	comps := strings.Split(importString, ".")

	heads := append([]string{projectRoot}, r.SourceRoots...)
	for _, head := range heads {
		if path, ok := acceptFirstExisting(projectRoot, modulePathCandidates(head, comps)); ok {
			return path, true
		}
	}
	return "", false
}

// modulePathCandidates builds the a/b.py and a/b/__init__.py candidates for
// a package directory plus dotted path components.
func modulePathCandidates(base string, comps []string) []string {
	target := base
	if len(comps) > 0 {
		target = filepath.Join(append([]string{base}, comps...)...)
	}
	return []string{
		target + ".py",
		filepath.Join(target, "__init__.py"),
	}
}
