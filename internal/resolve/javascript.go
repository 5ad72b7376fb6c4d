package resolve

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/codegraph-dev/codegraph/internal/pathutil"
)

// jsResolveExtensions is the order extensions are tried for an extension-less
// specifier, matching the project's declared module resolution order.
var jsResolveExtensions = []string{".ts", ".tsx", ".js", ".jsx", ".d.ts"}

// JSResolver resolves JavaScript/TypeScript import and require specifiers.
//
// Relative specifiers ("./foo", "../bar") resolve against the source
// file's directory. Bare specifiers ("lodash", "@app/widgets") are tried
// against tsconfig.json path aliases first, then against
// node_modules/<name>/package.json's main field.
type JSResolver struct{}

// NewJSResolver returns a resolver for JavaScript/TypeScript/JSX/TSX files.
func NewJSResolver() *JSResolver {
	return &JSResolver{}
}

func (r *JSResolver) Resolve(importString, sourceFile, projectRoot string) (string, bool) {
	importString = strings.TrimSpace(importString)
	if importString == "" {
		return "", false
	}
	if strings.HasPrefix(importString, ".") || strings.HasPrefix(importString, "/") {
		dir := filepath.Dir(pathutil.Normalize(projectRoot, sourceFile))
		base := filepath.Join(dir, importString)
		return resolveFileOrIndex(projectRoot, base)
	}

	if path, ok := r.resolveTSConfigPath(importString, projectRoot); ok {
		return path, true
	}
	return r.resolveNodeModules(importString, projectRoot)
}

// resolveFileOrIndex tries base verbatim, base+ext for each known
// extension, and base/index+ext for each known extension.
func resolveFileOrIndex(projectRoot, base string) (string, bool) {
	candidates := []string{base}
	for _, ext := range jsResolveExtensions {
		candidates = append(candidates, base+ext)
	}
	for _, ext := range jsResolveExtensions {
		candidates = append(candidates, filepath.Join(base, "index"+ext))
	}
	return acceptFirstExisting(projectRoot, candidates)
}

type tsconfigFile struct {
	CompilerOptions struct {
		BaseURL string              `json:"baseUrl"`
		Paths   map[string][]string `json:"paths"`
	} `json:"compilerOptions"`
}

// resolveTSConfigPath applies tsconfig.json's compilerOptions.paths alias
// table, supporting the single "*" wildcard form TypeScript itself allows.
func (r *JSResolver) resolveTSConfigPath(importString, projectRoot string) (string, bool) {
	data, err := os.ReadFile(filepath.Join(projectRoot, "tsconfig.json"))
	if err != nil {
		return "", false
	}
	var cfg tsconfigFile
	if err := json.Unmarshal(data, &cfg); err != nil {
		return "", false
	}
	if len(cfg.CompilerOptions.Paths) == 0 {
		return "", false
	}

	baseURL := cfg.CompilerOptions.BaseURL
	if baseURL == "" {
		baseURL = "."
	}
	baseDir := filepath.Join(projectRoot, baseURL)

	for pattern, targets := range cfg.CompilerOptions.Paths {
		suffix, ok := matchPathPattern(pattern, importString)
		if !ok {
			continue
		}
		for _, target := range targets {
			resolved := strings.Replace(target, "*", suffix, 1)
			if path, ok := resolveFileOrIndex(projectRoot, filepath.Join(baseDir, resolved)); ok {
				return path, true
			}
		}
	}
	return "", false
}

// matchPathPattern matches a tsconfig path key such as "@app/*" against
// importString, returning the text the "*" absorbed. A pattern without a
// wildcard must match importString exactly.
func matchPathPattern(pattern, importString string) (string, bool) {
	star := strings.IndexByte(pattern, '*')
	if star == -1 {
		if pattern == importString {
			return "", true
		}
		return "", false
	}
	prefix, suffix := pattern[:star], pattern[star+1:]
	if !strings.HasPrefix(importString, prefix) || !strings.HasSuffix(importString, suffix) {
		return "", false
	}
	return importString[len(prefix) : len(importString)-len(suffix)], true
}

type packageJSONFile struct {
	Main string `json:"main"`
}

// resolveNodeModules maps a bare specifier to
// node_modules/<name>/package.json's main field, falling back to
// node_modules/<name>/index.* when main is absent.
func (r *JSResolver) resolveNodeModules(importString, projectRoot string) (string, bool) {
	name, subpath := splitPackageSpecifier(importString)
	pkgDir := filepath.Join(projectRoot, "node_modules", name)

	if subpath != "" {
		return resolveFileOrIndex(projectRoot, filepath.Join(pkgDir, subpath))
	}

	data, err := os.ReadFile(filepath.Join(pkgDir, "package.json"))
	if err == nil {
		var pkg packageJSONFile
		if json.Unmarshal(data, &pkg) == nil && pkg.Main != "" {
			if path, ok := resolveFileOrIndex(projectRoot, filepath.Join(pkgDir, pkg.Main)); ok {
				return path, true
			}
		}
	}
	return resolveFileOrIndex(projectRoot, pkgDir)
}

// splitPackageSpecifier splits "name/sub/path" into ("name", "sub/path"),
// keeping a leading "@scope/name" together as the package name.
func splitPackageSpecifier(importString string) (name, subpath string) {
	parts := strings.SplitN(importString, "/", 2)
	if strings.HasPrefix(importString, "@") && len(parts) == 2 {
		scoped := strings.SplitN(parts[1], "/", 2)
		if len(scoped) == 2 {
			return parts[0] + "/" + scoped[0], scoped[1]
		}
		return parts[0] + "/" + parts[1], ""
	}
	if len(parts) == 2 {
		return parts[0], parts[1]
	}
	return importString, ""
}
