package chunk

import (
	"regexp"
	"strings"
)

// Import-specifier patterns. These run against the raw statement text
// already captured by extractGoContext/extractJSContext/etc., so they only
// need to pull the module/path portion out of a known statement shape, not
// re-parse the statement from scratch.
var (
	goImportSpecPattern     = regexp.MustCompile(`"([^"]+)"`)
	jsImportSpecPattern     = regexp.MustCompile(`from\s+['"` + "`" + `]([^'"` + "`" + `]+)['"` + "`" + `]|^\s*import\s+['"` + "`" + `]([^'"` + "`" + `]+)['"` + "`" + `]`)
	pythonFromImportPattern = regexp.MustCompile(`^\s*from\s+(\.*[\w.]*)\s+import`)
	pythonImportPattern     = regexp.MustCompile(`^\s*import\s+([\w.]+(?:\s*,\s*[\w.]+)*)`)
	rustUsePattern          = regexp.MustCompile(`use\s+([\w:{}, ]+);`)
	javaImportPattern       = regexp.MustCompile(`import\s+(?:static\s+)?([\w.]+(?:\.\*)?);`)
	cppIncludePattern       = regexp.MustCompile(`#include\s*[<"]([^>"]+)[>"]`)
	dartImportPattern       = regexp.MustCompile(`import\s+['"]([^'"]+)['"]`)
)

// extractDependencies derives the import-specifier set for a file from the
// raw context parts already extracted per language (package/import
// statement text). Go/Rust/Java/C++ specifiers are kept best-effort, since
// no resolver consumes them directly; Python/JS/TS specifiers feed the
// import resolvers and must be precise.
func extractDependencies(parts []string, language string) []string {
	var deps []string
	switch language {
	case "go":
		deps = findAllSubmatch(parts, goImportSpecPattern, 1)
	case "typescript", "tsx", "javascript", "jsx":
		deps = findAllJSSpecs(parts)
	case "python":
		deps = findAllPythonSpecs(parts)
	case "rust":
		deps = findAllSubmatch(parts, rustUsePattern, 1)
	case "java":
		deps = findAllSubmatch(parts, javaImportPattern, 1)
	case "cpp":
		deps = findAllSubmatch(parts, cppIncludePattern, 1)
	}
	return dedupeStrings(deps)
}

func findAllSubmatch(parts []string, re *regexp.Regexp, group int) []string {
	var out []string
	for _, part := range parts {
		for _, m := range re.FindAllStringSubmatch(part, -1) {
			if group < len(m) && m[group] != "" {
				out = append(out, m[group])
			}
		}
	}
	return out
}

func findAllJSSpecs(parts []string) []string {
	var out []string
	for _, part := range parts {
		for _, m := range jsImportSpecPattern.FindAllStringSubmatch(part, -1) {
			if m[1] != "" {
				out = append(out, m[1])
			} else if m[2] != "" {
				out = append(out, m[2])
			}
		}
	}
	return out
}

func findAllPythonSpecs(parts []string) []string {
	var out []string
	for _, part := range parts {
		if m := pythonFromImportPattern.FindStringSubmatch(part); m != nil {
			out = append(out, m[1])
			continue
		}
		if m := pythonImportPattern.FindStringSubmatch(part); m != nil {
			for _, mod := range strings.Split(m[1], ",") {
				mod = strings.TrimSpace(mod)
				if mod != "" {
					out = append(out, mod)
				}
			}
		}
	}
	return out
}

func dedupeStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// extractDartDependencies pulls import specifiers directly from Dart source
// text, since Dart files are chunked by RegexChunker without a tree-sitter
// pass over import declarations.
func extractDartDependencies(content string) []string {
	return dedupeStrings(findAllSubmatch([]string{content}, dartImportPattern, 1))
}
